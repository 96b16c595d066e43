//go:build cgo

package graph

import (
	"context"
	"fmt"
	"math"
	"sort"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements Store using an in-memory KuzuDB instance. It requires
// CGO because the go-kuzu driver wraps KuzuDB's C library. Only the schema
// this tool needs is modeled: File and Cycle nodes, IMPORTS and IN_CYCLE
// relationships. Persistent on-disk graphs are out of scope; every run
// starts from an empty database.
type KuzuStore struct {
	db   *kuzu.Database
	conn *kuzu.Connection
}

var _ Store = (*KuzuStore)(nil)

// NewKuzuStore opens a fresh in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(":memory:", cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS File(
		id INT64,
		path STRING,
		language STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Cycle(
		hash STRING,
		node_count INT64,
		PRIMARY KEY(hash)
	)`,
	`CREATE REL TABLE IF NOT EXISTS IMPORTS(
		FROM File TO File,
		line INT64,
		import_text STRING,
		is_type_only BOOLEAN
	)`,
	`CREATE REL TABLE IF NOT EXISTS IN_CYCLE(FROM File TO Cycle, position INT64)`,
}

// InitSchema creates the File/Cycle node tables and IMPORTS/IN_CYCLE
// relationship tables if they do not already exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// AddFile inserts a File node.
func (s *KuzuStore) AddFile(_ context.Context, f FileRecord) error {
	return s.exec(
		"CREATE (f:File {id: $id, path: $path, language: $lang})",
		map[string]any{
			"id":   int64(f.ID),
			"path": f.Path,
			"lang": string(f.Language),
		},
	)
}

// AddEdge inserts an IMPORTS relationship between two already-inserted File
// nodes.
func (s *KuzuStore) AddEdge(_ context.Context, e Edge) error {
	return s.exec(
		`MATCH (a:File {id: $from}), (b:File {id: $to})
		 CREATE (a)-[:IMPORTS {line: $line, import_text: $text, is_type_only: $typeOnly}]->(b)`,
		map[string]any{
			"from":     int64(e.From),
			"to":       int64(e.To),
			"line":     int64(e.Line),
			"text":     e.ImportText,
			"typeOnly": e.IsTypeOnly,
		},
	)
}

// AddCycle inserts a Cycle node and one IN_CYCLE edge per member file,
// recording each file's position within the cycle's canonical node order.
func (s *KuzuStore) AddCycle(_ context.Context, c Cycle) error {
	if err := s.exec(
		"CREATE (cy:Cycle {hash: $hash, node_count: $n})",
		map[string]any{"hash": c.Hash, "n": int64(len(c.Nodes))},
	); err != nil {
		return err
	}
	for i, id := range c.Nodes {
		if err := s.exec(
			`MATCH (f:File {id: $id}), (cy:Cycle {hash: $hash})
			 CREATE (f)-[:IN_CYCLE {position: $pos}]->(cy)`,
			map[string]any{"id": int64(id), "hash": c.Hash, "pos": int64(i)},
		); err != nil {
			return err
		}
	}
	return nil
}

// GetFile retrieves a single File node by path, or nil if not found.
func (s *KuzuStore) GetFile(_ context.Context, path string) (*FileRecord, error) {
	rows, err := s.query(
		"MATCH (f:File {path: $path}) RETURN f.id, f.path, f.language",
		map[string]any{"path": path},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	r := rows[0]
	return &FileRecord{
		ID:       FileID(toInt(r[0])),
		Path:     toString(r[1]),
		Language: Language(toString(r[2])),
	}, nil
}

// GetCycles returns every recorded Cycle, with its node sequence restored in
// position order and edges reconstructed from the IMPORTS table between
// consecutive nodes.
func (s *KuzuStore) GetCycles(ctx context.Context) ([]Cycle, error) {
	rows, err := s.query("MATCH (cy:Cycle) RETURN cy.hash, cy.node_count", nil)
	if err != nil {
		return nil, err
	}

	out := make([]Cycle, 0, len(rows))
	for _, r := range rows {
		hash := toString(r[0])

		memberRows, err := s.query(
			`MATCH (f:File)-[rel:IN_CYCLE]->(cy:Cycle {hash: $hash})
			 RETURN f.id, rel.position`,
			map[string]any{"hash": hash},
		)
		if err != nil {
			return nil, err
		}
		sort.Slice(memberRows, func(i, j int) bool {
			return toInt(memberRows[i][1]) < toInt(memberRows[j][1])
		})

		nodes := make([]FileID, len(memberRows))
		for i, m := range memberRows {
			nodes[i] = FileID(toInt(m[0]))
		}

		edges := make([]Edge, 0, len(nodes))
		for i, from := range nodes {
			to := nodes[(i+1)%len(nodes)]
			edge, err := s.lookupEdge(from, to)
			if err != nil {
				return nil, err
			}
			if edge != nil {
				edges = append(edges, *edge)
			}
		}

		out = append(out, Cycle{Nodes: nodes, Edges: edges, Hash: hash})
	}
	return out, nil
}

func (s *KuzuStore) lookupEdge(from, to FileID) (*Edge, error) {
	rows, err := s.query(
		`MATCH (a:File {id: $from})-[r:IMPORTS]->(b:File {id: $to})
		 RETURN r.line, r.import_text, r.is_type_only`,
		map[string]any{"from": int64(from), "to": int64(to)},
	)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	r := rows[0]
	return &Edge{
		From:       from,
		To:         to,
		Line:       uint32(toInt(r[0])),
		ImportText: toString(r[1]),
		IsTypeOnly: toBool(r[2]),
	}, nil
}

// GetDependencies performs a BFS over IMPORTS edges starting from path.
func (s *KuzuStore) GetDependencies(_ context.Context, path string, direction Direction, maxDepth int) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		maxDepth = 10
	}

	type bfsEntry struct {
		paths []string
		depth int
	}
	visited := map[string]bool{path: true}
	queue := []bfsEntry{{paths: []string{path}, depth: 0}}
	var chains []DependencyChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		tip := cur.paths[len(cur.paths)-1]
		neighbors, err := s.fileNeighbors(tip, direction)
		if err != nil {
			return nil, err
		}
		for _, nb := range neighbors {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			newPath := append(append([]string{}, cur.paths...), nb)
			chains = append(chains, DependencyChain{Paths: newPath, Depth: cur.depth + 1})
			queue = append(queue, bfsEntry{paths: newPath, depth: cur.depth + 1})
		}
	}
	return chains, nil
}

func (s *KuzuStore) fileNeighbors(path string, direction Direction) ([]string, error) {
	var cypher string
	switch direction {
	case DirectionDownstream:
		cypher = "MATCH (a:File)-[:IMPORTS]->(b:File {path: $path}) RETURN a.path"
	case DirectionUpstream:
		cypher = "MATCH (a:File {path: $path})-[:IMPORTS]->(b:File) RETURN b.path"
	default:
		return nil, fmt.Errorf("kuzu: unknown direction: %s", direction)
	}
	rows, err := s.query(cypher, map[string]any{"path": path})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, toString(r[0]))
	}
	return out, nil
}

// AssessImpact walks IMPORTS edges downstream from each changed file to find
// direct and transitive dependents, then scores the blast radius as the
// transitive fan-out fraction of the whole file set.
func (s *KuzuStore) AssessImpact(ctx context.Context, changedFiles []string) (*ImpactResult, error) {
	totalFiles, err := s.countTable("File")
	if err != nil {
		return nil, err
	}

	directSet := map[string]bool{}
	transitiveSet := map[string]bool{}

	for _, f := range changedFiles {
		direct, err := s.GetDependencies(ctx, f, DirectionDownstream, 1)
		if err != nil {
			return nil, err
		}
		for _, c := range direct {
			directSet[c.Paths[len(c.Paths)-1]] = true
		}

		all, err := s.GetDependencies(ctx, f, DirectionDownstream, 10)
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			transitiveSet[c.Paths[len(c.Paths)-1]] = true
		}
	}

	changedMap := map[string]bool{}
	for _, f := range changedFiles {
		changedMap[f] = true
	}
	direct := filterKeys(directSet, changedMap)
	transitive := filterKeys(transitiveSet, changedMap)

	risk := 0.0
	if totalFiles > 0 {
		risk = math.Min(1.0, float64(len(transitive))/float64(totalFiles))
	}

	return &ImpactResult{
		DirectlyAffected:     direct,
		TransitivelyAffected: transitive,
		RiskScore:            risk,
	}, nil
}

// Stats returns file and edge counts.
func (s *KuzuStore) Stats(_ context.Context) (*GraphStats, error) {
	files, err := s.countTable("File")
	if err != nil {
		return nil, err
	}
	edges, err := s.countEdges("IMPORTS")
	if err != nil {
		return nil, err
	}
	return &GraphStats{FileCount: files, EdgeCount: edges}, nil
}

func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

func (s *KuzuStore) countTable(table string) (int, error) {
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN count(n)", table)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

func (s *KuzuStore) countEdges(relTable string) (int, error) {
	cypher := fmt.Sprintf("MATCH ()-[r:%s]->() RETURN count(r)", relTable)
	rows, err := s.query(cypher, nil)
	if err != nil {
		return 0, nil
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return 0, nil
	}
	return toInt(rows[0][0]), nil
}

func filterKeys(set, exclude map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		if !exclude[k] {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func toInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case int32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func toBool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}
