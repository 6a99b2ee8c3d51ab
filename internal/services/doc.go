// Package services holds the shared error taxonomy for external
// collaborators and stage handlers.
//
// Handlers wrap failures with one of the sentinel markers so callers can
// classify outcomes without string matching: validation and invariant errors
// are permanent for the document in question, transient and external errors
// are retriable by re-enqueueing a fresh task. Subpackages implement the
// bridge clients (llm, docex, docdb, embed).
package services
