// Package writers renders screening results: pretty JSON for storage and
// interchange, a per-position TSV summary, human-readable variant blocks,
// and a JSONL stream of progress events.
//
// Formats are looked up by name through the registry so commands never
// switch on format strings themselves.
package writers
