package document

import "strings"

// ExternalStatus is the coarse status mirrored to the external document store.
type ExternalStatus string

const (
	ExternalPending    ExternalStatus = "pending"
	ExternalProcessing ExternalStatus = "processing"
	ExternalCompleted  ExternalStatus = "completed"
	ExternalErrored    ExternalStatus = "errored"
)

// Stage identifies one ordered step of the processing pipeline. The string
// values are persisted, so they never change even when constants are renamed.
type Stage string

const (
	StageUnprocessed            Stage = "unprocessed"
	StageExtraction             Stage = "stage1"
	StageTranslation            Stage = "stage2"
	StageExtras                 Stage = "stage3"
	StageSummarizationCompleted Stage = "summarization_completed"
	StageEmbeddingsCompleted    Stage = "embeddings_completed"
	StageOrganizationAssigned   Stage = "organization_assigned"
	StageEncountersAnalyzed     Stage = "encounters_analyzed"
	StageUploadDocumentToDB     Stage = "upload_document_to_db"
	StageCompleted              Stage = "completed"
)

// completedIndex sorts StageCompleted after every other stage regardless of
// how many stages precede it.
const completedIndex = 1000

var stageIndexes = map[Stage]int{
	StageUnprocessed:            0,
	StageExtraction:             1,
	StageTranslation:            2,
	StageExtras:                 3,
	StageSummarizationCompleted: 4,
	StageEmbeddingsCompleted:    5,
	StageOrganizationAssigned:   6,
	StageEncountersAnalyzed:     7,
	StageUploadDocumentToDB:     8,
	StageCompleted:              completedIndex,
}

// StageIndex returns the position of a stage in pipeline order. Unknown
// stages report -1 so they sort before everything and fail loudly at dispatch.
func StageIndex(s Stage) int {
	idx, ok := stageIndexes[s]
	if !ok {
		return -1
	}
	return idx
}

// KnownStage reports whether s is a recognized pipeline stage.
func KnownStage(s Stage) bool {
	_, ok := stageIndexes[s]
	return ok
}

// ParseStage converts a stored string into a Stage.
func ParseStage(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if !KnownStage(normalized) {
		return "", false
	}
	return normalized, true
}

// ProcStage captures the pipeline position and error bookkeeping persisted
// alongside a record. IngestErrorMsg and SkipProcessing survive pipeline
// failures so a permanently broken file is not retried blindly.
type ProcStage struct {
	ExternalStatus     ExternalStatus `json:"external_status"`
	PipelineStage      Stage          `json:"pipeline_stage"`
	SkipProcessing     bool           `json:"skip_processing"`
	IsErrored          bool           `json:"is_errored"`
	IsCompleted        bool           `json:"is_completed"`
	IngestErrorMsg     string         `json:"ingest_error_msg,omitempty"`
	ProcessingErrorMsg string         `json:"processing_error_msg,omitempty"`
	DatabaseErrorMsg   string         `json:"database_error_msg,omitempty"`
}
