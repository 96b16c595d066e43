package graph

import "context"

// ParseResult holds the file metadata and raw import records extracted from
// a single source file, before specifier resolution.
type ParseResult struct {
	File    FileRecord
	Imports []RawImport
}

// Parser extracts raw import records from source files.
// Implementations: TreeSitterParser.
type Parser interface {
	// Parse extracts import records from a single source file. source is
	// the file content; lang determines which grammar to use.
	Parse(ctx context.Context, path string, source []byte, lang Language) (*ParseResult, error)

	// SupportedLanguages returns the languages this parser can handle.
	SupportedLanguages() []Language

	// Close releases parser resources (tree-sitter C memory).
	Close() error
}
