package task

import "strings"

// Interaction describes the persistence action a handler must take against
// the external document store when its task completes.
type Interaction string

const (
	InteractNone              Interaction = "none"
	InteractInsert            Interaction = "insert"
	InteractInsertLater       Interaction = "insert_later"
	InteractUpdate            Interaction = "update"
	InteractInsertReport      Interaction = "insert_report"
	InteractInsertReportLater Interaction = "insert_report_later"
	InteractUpdateReport      Interaction = "update_report"
)

var knownInteractions = map[Interaction]struct{}{
	InteractNone:              {},
	InteractInsert:            {},
	InteractInsertLater:       {},
	InteractUpdate:            {},
	InteractInsertReport:      {},
	InteractInsertReportLater: {},
	InteractUpdateReport:      {},
}

// ParseInteraction validates a stored interaction value.
func ParseInteraction(value string) (Interaction, bool) {
	normalized := Interaction(strings.ToLower(strings.TrimSpace(value)))
	_, ok := knownInteractions[normalized]
	return normalized, ok
}

// Evolve maps the interaction of an ingestion task onto the interaction its
// follow-up processing task must carry. Once ingestion has inserted the
// record, the processing pass must update it rather than insert a duplicate;
// deferred inserts graduate to real ones. Unlisted values map to themselves.
func (i Interaction) Evolve() Interaction {
	switch i {
	case InteractInsert:
		return InteractUpdate
	case InteractInsertLater:
		return InteractInsert
	case InteractInsertReportLater:
		return InteractInsertReport
	case InteractInsertReport:
		return InteractUpdateReport
	default:
		return i
	}
}
