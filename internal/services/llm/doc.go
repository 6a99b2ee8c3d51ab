// Package llm wraps an OpenAI-compatible chat-completions endpoint with the
// retry and JSON-sanitizing behavior the ingestion and pipeline code relies
// on: bounded retries with backoff (honoring Retry-After), tolerance for
// providers that answer with streaming or legacy response shapes, and a
// decoder that strips code fences before parsing model JSON.
package llm
