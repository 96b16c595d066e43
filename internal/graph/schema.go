// Package graph builds and analyzes the module-dependency graph: workspace
// and tsconfig indexing, import extraction, specifier resolution, and
// strongly-connected-component based cycle detection.
package graph

// FileID is an interned, stable integer identifying a resolved source file
// by its canonical repo-relative path. Assigned on first resolution by an
// Interner; immutable for the lifetime of an analysis run.
type FileID int32

// Language identifies the grammar used to parse a source file.
type Language string

const (
	LangTypeScript Language = "typescript" // .ts, .mjs, .cjs, .js
	LangTSX        Language = "tsx"        // .tsx, .jsx
)

// LanguageForExt maps a supported source extension to its Language, and
// reports whether the extension is one of the supported working-set
// extensions (spec §4.1 / §6).
func LanguageForExt(ext string) (Language, bool) {
	switch ext {
	case ".ts", ".mjs", ".cjs", ".js":
		return LangTypeScript, true
	case ".tsx", ".jsx":
		return LangTSX, true
	default:
		return "", false
	}
}

// ImportKind classifies a raw import record produced by the extractor.
type ImportKind string

const (
	ImportStatic   ImportKind = "static"   // import ... from "X"
	ImportDynamic  ImportKind = "dynamic"  // import("X")
	ImportRequire  ImportKind = "require"  // require("X")
	ImportReexport ImportKind = "reexport" // export ... from "X" / export * from "X"
)

// RawImport is a single import record extracted from one source file before
// resolution: a (source_file, raw_specifier, line, text, is_type_only) edge
// per spec §2 stage 3.
type RawImport struct {
	Specifier  string
	Line       uint32
	Text       string
	Kind       ImportKind
	IsTypeOnly bool
}

// EdgeKind classifies edges retained in the dependency graph. The core only
// ever stores IMPORTS edges; the type exists so the graph's edge-kind
// invariant (spec §3) is explicit at call sites.
type EdgeKind string

// EdgeKindImports is the only edge kind the cycle engine reasons about.
const EdgeKindImports EdgeKind = "IMPORTS"

// Edge is a directed dependency from_file -> to_file, carrying the metadata
// of the first (or representative) import statement that produced it, per
// spec §3.
type Edge struct {
	From       FileID
	To         FileID
	Line       uint32
	ImportText string
	IsTypeOnly bool
}

// FileRecord is the canonical metadata the graph keeps per FileID.
type FileRecord struct {
	ID       FileID
	Path     string // repo-relative, canonical, slash-separated
	Language Language
}

// Cycle is a non-empty ordered sequence of FileIDs forming one comprehensive
// path per spec §3/§4.4: each node appears once, and the last node has an
// edge back to the first. Edges pairs each hop with the Edge metadata used
// to render it; len(Edges) == len(Nodes) and Edges[i] is the edge from
// Nodes[i] to Nodes[(i+1)%len(Nodes)].
type Cycle struct {
	Nodes []FileID
	Edges []Edge
	Hash  string // 12 hex chars, rotation-invariant (§4.4)
}

// GraphStats summarizes a finalized dependency graph.
type GraphStats struct {
	FileCount int
	EdgeCount int
}

// Direction controls dependency-chain traversal direction for the query
// subcommand (SPEC_FULL §6a).
type Direction string

const (
	DirectionUpstream   Direction = "upstream"   // what does this file depend on?
	DirectionDownstream Direction = "downstream" // what depends on this file?
)

// DependencyChain is an ordered sequence of repo-relative paths forming a
// traversal path from a query root.
type DependencyChain struct {
	Paths []string
	Depth int
}

// ImpactResult describes the blast radius of changing a set of files
// (SPEC_FULL §6a), mirroring the teacher's impact-assessment query.
type ImpactResult struct {
	DirectlyAffected     []string
	TransitivelyAffected []string
	RiskScore            float64
}
