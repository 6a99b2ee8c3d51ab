// Package task defines the queued work envelope and its payload kinds.
//
// A Task wraps either a ScrapeRequest (fetch-and-ingest a remote file) or a
// document.Record (advance an existing record through the pipeline). The
// payload is a tagged union validated at construction so handlers never see a
// type/payload mismatch at dispatch time. The Interaction enum describes what
// persistence action the eventual handler performs; Evolve encodes the
// ingest-to-processing handoff rule that prevents double inserts.
package task
