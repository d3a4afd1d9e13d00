package jsonstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Makepad-fr/taskman/internal/model"
)

// JSON-backed storage. Single file, human-readable, portable.
// No locking; fine for a local single-user tool.

const (
	// DefaultFileName is the data file used when nothing else is configured.
	DefaultFileName = "tasks.json"
	// SchemaVersion is the document version written by Save.
	SchemaVersion = 1
)

// ErrCorrupt marks a data file that exists but cannot be trusted.
var ErrCorrupt = errors.New("corrupt data file")

// State tells how a Snapshot was obtained.
type State int

const (
	// StateAbsent: no data file yet, empty start state.
	StateAbsent State = iota
	// StateLoaded: a current-version document was read.
	StateLoaded
	// StateLegacy: a bare task array from an older release was read.
	StateLegacy
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StateLoaded:
		return "loaded"
	case StateLegacy:
		return "legacy"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Snapshot is the result of Load.
type Snapshot struct {
	Tasks  []model.Task
	NextID int
	State  State
	// Dropped lists legacy records that could not be read, as
	// "record N: reason". Current-version documents never drop records.
	Dropped []string
}

type document struct {
	SchemaVersion int          `json:"schema_version"`
	NextID        int          `json:"next_id"`
	Tasks         []model.Task `json:"tasks"`
}

// Store reads and writes one data file.
type Store struct {
	path string
}

// New returns a Store for path. An empty path means DefaultFileName in the
// working directory.
func New(path string) *Store {
	if path == "" {
		path = DefaultFileName
	}
	return &Store{path: path}
}

// Path returns the data file location.
func (s *Store) Path() string { return s.path }

// Load reads the data file. A missing file is the empty first-run state.
// Anything present but unusable is reported as ErrCorrupt.
func (s *Store) Load() (Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{Tasks: []model.Task{}, State: StateAbsent}, nil
		}
		return Snapshot{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, s.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return Snapshot{Tasks: []model.Task{}, State: StateLoaded}, nil
	}

	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		// Older releases wrote arrays by hand and left backslashes and
		// control characters unescaped.
		if bytes.HasPrefix(bytes.TrimSpace(b), []byte("[")) {
			if rerr := json.Unmarshal(repairLegacyEscapes(b), &raw); rerr != nil {
				return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
			}
		} else {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
	}

	switch v := raw.(type) {
	case []any:
		snap, err := decodeLegacy(v)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		return snap, nil

	case map[string]any:
		ver, ok := v["schema_version"].(float64)
		if !ok {
			return Snapshot{}, fmt.Errorf("%w: %s: missing schema_version", ErrCorrupt, s.path)
		}
		if ver != SchemaVersion {
			return Snapshot{}, fmt.Errorf("%w: %s: unsupported schema_version %v", ErrCorrupt, s.path, ver)
		}
		if err := validate(v1Schema(), raw); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		var doc document
		if err := json.Unmarshal(b, &doc); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		if err := checkUniqueIDs(doc.Tasks); err != nil {
			return Snapshot{}, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.path, err)
		}
		if doc.Tasks == nil {
			doc.Tasks = []model.Task{}
		}
		return Snapshot{Tasks: doc.Tasks, NextID: doc.NextID, State: StateLoaded}, nil
	}

	return Snapshot{}, fmt.Errorf("%w: %s: top-level value is neither an object nor an array", ErrCorrupt, s.path)
}

// Save writes the whole collection as a current-version document. The file
// is replaced atomically through a temp file in the same directory.
func (s *Store) Save(tasks []model.Task, nextID int) error {
	if tasks == nil {
		tasks = []model.Task{}
	}
	doc := document{
		SchemaVersion: SchemaVersion,
		NextID:        nextID,
		Tasks:         tasks,
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	b = append(b, '\n')
	perm := os.FileMode(0o644)
	if fi, err := os.Stat(s.path); err == nil {
		perm = fi.Mode().Perm()
	}
	if err := atomicWriteFile(s.path, b, perm); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// decodeLegacy reads a bare task array record by record. Unreadable records
// and repeated ids are dropped; the file is corrupt only when records exist
// and none of them can be read.
func decodeLegacy(items []any) (Snapshot, error) {
	snap := Snapshot{Tasks: []model.Task{}, State: StateLegacy}
	seen := make(map[int]bool, len(items))
	var first error
	for i, item := range items {
		t, err := decodeLegacyRecord(item)
		if err == nil && seen[t.ID] {
			err = fmt.Errorf("duplicate task id %d", t.ID)
		}
		if err != nil {
			if first == nil {
				first = fmt.Errorf("record %d: %w", i, err)
			}
			snap.Dropped = append(snap.Dropped, fmt.Sprintf("record %d: %v", i, err))
			continue
		}
		seen[t.ID] = true
		snap.Tasks = append(snap.Tasks, t)
	}
	if len(items) > 0 && len(snap.Tasks) == 0 {
		return Snapshot{}, first
	}
	return snap, nil
}

func decodeLegacyRecord(item any) (model.Task, error) {
	var t model.Task
	if err := validate(legacySchema(), []any{item}); err != nil {
		return t, err
	}
	b, err := json.Marshal(item)
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(b, &t); err != nil {
		return t, err
	}
	return t, nil
}

// repairLegacyEscapes rewrites hand-written legacy arrays into valid JSON.
// Those files escaped only quotes, \n and \r inside strings, so any other
// backslash is a literal one and raw control characters are escaped here.
func repairLegacyEscapes(b []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(b) + len(b)/16)
	inString := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		switch {
		case !inString:
			if c == '"' {
				inString = true
			}
		case c == '"':
			inString = false
		case c == '\\':
			if i+1 < len(b) && (b[i+1] == '"' || b[i+1] == 'n' || b[i+1] == 'r') {
				out.WriteByte(c)
				out.WriteByte(b[i+1])
				i++
				continue
			}
			out.WriteString(`\\`)
			continue
		case c < 0x20:
			fmt.Fprintf(&out, `\u%04x`, c)
			continue
		}
		out.WriteByte(c)
	}
	return out.Bytes()
}

func checkUniqueIDs(tasks []model.Task) error {
	seen := make(map[int]bool, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			return fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = true
	}
	return nil
}

// atomicWriteFile writes content to a temp file next to path, syncs it and
// renames it over the destination.
func atomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
