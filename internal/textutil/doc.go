// Package textutil provides small text helpers shared across the pipeline,
// currently filesystem-safe token sanitization for export folder names.
package textutil
