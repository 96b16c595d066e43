package graph

import "sync"

// Interner assigns stable FileIDs to canonical repo-relative paths. The same
// path always yields the same FileID within one Interner's lifetime; a new
// path is assigned the next sequential ID on first sight.
type Interner struct {
	mu      sync.Mutex
	byPath  map[string]FileID
	records []FileRecord
}

// NewInterner returns an empty Interner ready for use.
func NewInterner() *Interner {
	return &Interner{byPath: make(map[string]FileID)}
}

// Intern returns the FileID for path, assigning one and recording lang if
// this is the first time path has been seen. The language of a previously
// interned path is never overwritten.
func (in *Interner) Intern(path string, lang Language) FileID {
	in.mu.Lock()
	defer in.mu.Unlock()

	if id, ok := in.byPath[path]; ok {
		return id
	}
	id := FileID(len(in.records))
	in.byPath[path] = id
	in.records = append(in.records, FileRecord{ID: id, Path: path, Language: lang})
	return id
}

// Lookup returns the FileID already assigned to path, if any.
func (in *Interner) Lookup(path string) (FileID, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	id, ok := in.byPath[path]
	return id, ok
}

// Record returns the FileRecord for id. Panics if id is out of range, which
// indicates a caller holding a FileID from a different Interner.
func (in *Interner) Record(id FileID) FileRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.records[id]
}

// Len returns the number of distinct paths interned so far.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.records)
}

// Records returns a snapshot of all interned file records, ordered by
// FileID (i.e. by first-seen order).
func (in *Interner) Records() []FileRecord {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]FileRecord, len(in.records))
	copy(out, in.records)
	return out
}
