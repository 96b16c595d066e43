package graph

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// tsExtractor extracts raw import records from TypeScript/TSX source files:
// static imports, re-exports, dynamic import(), and require() calls.
type tsExtractor struct{}

func (e *tsExtractor) Extract(root *tree_sitter.Node, source []byte, filePath string) []RawImport {
	var imports []RawImport

	cursor := root.Walk()
	defer cursor.Close()

	e.walk(cursor, source, &imports)
	return imports
}

func (e *tsExtractor) walk(cursor *tree_sitter.TreeCursor, source []byte, imports *[]RawImport) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		if ri := e.extractStaticImport(node, source); ri != nil {
			*imports = append(*imports, *ri)
		}

	case "export_statement":
		if ri := e.extractReexport(node, source); ri != nil {
			*imports = append(*imports, *ri)
		}

	case "call_expression":
		if ri := e.extractCallImport(node, source); ri != nil {
			*imports = append(*imports, *ri)
		}
	}

	if cursor.GotoFirstChild() {
		e.walk(cursor, source, imports)
		for cursor.GotoNextSibling() {
			e.walk(cursor, source, imports)
		}
		cursor.GotoParent()
	}
}

// extractStaticImport handles `import ... from "X"` and `import "X"`.
func (e *tsExtractor) extractStaticImport(node *tree_sitter.Node, source []byte) *RawImport {
	specifier, ok := stringFieldOrChild(node, source, "source")
	if !ok {
		return nil
	}

	return &RawImport{
		Specifier:  specifier,
		Line:       uint32(node.StartPosition().Row) + 1,
		Text:       node.Utf8Text(source),
		Kind:       ImportStatic,
		IsTypeOnly: isTypeOnlyImportStatement(node, source),
	}
}

// extractReexport handles `export ... from "X"` and `export * from "X"`.
// A bare `export { a, b }` with no source clause is not a dependency edge.
func (e *tsExtractor) extractReexport(node *tree_sitter.Node, source []byte) *RawImport {
	specifier, ok := stringFieldOrChild(node, source, "source")
	if !ok {
		return nil
	}

	return &RawImport{
		Specifier:  specifier,
		Line:       uint32(node.StartPosition().Row) + 1,
		Text:       node.Utf8Text(source),
		Kind:       ImportReexport,
		IsTypeOnly: isTypeOnlyReexport(node, source),
	}
}

// extractCallImport handles dynamic `import("X")` and CommonJS `require("X")`.
func (e *tsExtractor) extractCallImport(node *tree_sitter.Node, source []byte) *RawImport {
	fnNode := node.ChildByFieldName("function")
	if fnNode == nil {
		return nil
	}

	var kind ImportKind
	switch {
	case fnNode.Kind() == "import":
		kind = ImportDynamic
	case fnNode.Kind() == "identifier" && fnNode.Utf8Text(source) == "require":
		kind = ImportRequire
	default:
		return nil
	}

	argsNode := node.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}

	var strNode *tree_sitter.Node
	for i := uint(0); i < argsNode.ChildCount(); i++ {
		child := argsNode.Child(i)
		if child != nil && child.Kind() == "string" {
			strNode = child
			break
		}
	}
	if strNode == nil {
		// Non-literal specifier (computed require/import) cannot be resolved statically.
		return nil
	}

	specifier := stringNodeValue(strNode, source)
	if specifier == "" {
		return nil
	}

	return &RawImport{
		Specifier:  specifier,
		Line:       uint32(node.StartPosition().Row) + 1,
		Text:       node.Utf8Text(source),
		Kind:       kind,
		IsTypeOnly: false,
	}
}

// stringFieldOrChild reads the "source" field of an import/export statement
// node, falling back to scanning direct children for a string literal.
func stringFieldOrChild(node *tree_sitter.Node, source []byte, field string) (string, bool) {
	strNode := node.ChildByFieldName(field)
	if strNode == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child != nil && child.Kind() == "string" {
				strNode = child
				break
			}
		}
	}
	if strNode == nil {
		return "", false
	}
	val := stringNodeValue(strNode, source)
	if val == "" {
		return "", false
	}
	return val, true
}

func stringNodeValue(strNode *tree_sitter.Node, source []byte) string {
	return strings.Trim(strNode.Utf8Text(source), "\"'`")
}

// isTypeOnlyImportStatement reports whether an import_statement is entirely
// type-only: either `import type ... from "X"` at the top level, or every
// named specifier carries its own `type` modifier with no default/namespace
// value import alongside. A mix of type and value imports is not type-only.
func isTypeOnlyImportStatement(node *tree_sitter.Node, source []byte) bool {
	if hasLeadingTypeKeyword(node, source) {
		return true
	}

	clause := findChildKind(node, "import_clause")
	if clause == nil {
		return false
	}
	return isClauseAllTypeSpecifiers(clause, source)
}

// isTypeOnlyReexport applies the same rule to `export ... from "X"`.
func isTypeOnlyReexport(node *tree_sitter.Node, source []byte) bool {
	if hasLeadingTypeKeyword(node, source) {
		return true
	}

	// `export * from "X"` has no specifier list to inspect; it re-exports
	// values by default.
	if findChildKind(node, "*") != nil {
		return false
	}

	clause := findChildKind(node, "export_clause")
	if clause == nil {
		return false
	}
	return isClauseAllTypeSpecifiers(clause, source)
}

// hasLeadingTypeKeyword detects the `import type` / `export type` form,
// where "type" appears as a direct child keyword before any clause.
func hasLeadingTypeKeyword(node *tree_sitter.Node, source []byte) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "import", "export":
			continue
		case "type":
			return true
		default:
			return false
		}
	}
	return false
}

func findChildKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}

// isClauseAllTypeSpecifiers walks an import_clause/export_clause and reports
// whether every binding inside it is individually marked `type`, with no
// default or namespace value import present.
func isClauseAllTypeSpecifiers(clause *tree_sitter.Node, source []byte) bool {
	sawSpecifier := false
	for i := uint(0); i < clause.ChildCount(); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Kind() {
		case "identifier", "namespace_import":
			// Default import or `* as ns` import: always a value import.
			return false
		case "named_imports", "export_clause":
			for j := uint(0); j < child.ChildCount(); j++ {
				spec := child.Child(j)
				if spec == nil || (spec.Kind() != "import_specifier" && spec.Kind() != "export_specifier") {
					continue
				}
				sawSpecifier = true
				if findChildKind(spec, "type") == nil {
					return false
				}
			}
		}
	}
	return sawSpecifier
}
