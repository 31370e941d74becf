package query

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/boxdeck/pkg/errors"
)

// IndexFile is the name of the persisted index inside the cache directory.
const IndexFile = "queries.json"

// Index holds resolved measurement values. Values looked up or stored
// during the session are recorded as used so [Index.Prune] can drop the
// rest.
type Index struct {
	version       string
	oracleVersion string

	mu     sync.Mutex
	values map[Key]float64
	used   map[Key]float64
}

// NewIndex returns an empty index for the given versions.
func NewIndex(version, oracleVersion string) *Index {
	return &Index{
		version:       version,
		oracleVersion: oracleVersion,
		values:        make(map[Key]float64),
		used:          make(map[Key]float64),
	}
}

// indexFile is the on-disk format: queries is a list of
// [[method, payload], value] pairs.
type indexFile struct {
	Version       string            `json:"version"`
	OracleVersion string            `json:"oracle_version"`
	Queries       []json.RawMessage `json:"queries"`
}

// LoadIndex reads the index from path. A missing file, or one written by a
// different version of boxdeck or of the oracle, yields an empty index.
func LoadIndex(path, version, oracleVersion string, logger *log.Logger) (*Index, error) {
	if logger == nil {
		logger = log.Default()
	}
	idx := NewIndex(version, oracleVersion)

	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "read query index %s", path)
	}

	var f indexFile
	if err := json.Unmarshal(raw, &f); err != nil {
		logger.Warn("query index is corrupt; starting cold", "path", path, "error", err)
		return idx, nil
	}
	if f.Version != version {
		logger.Info("boxdeck version changed; query index dropped", "was", f.Version, "now", version)
		return idx, nil
	}
	if f.OracleVersion != oracleVersion {
		logger.Info("oracle version changed; query index dropped", "was", f.OracleVersion, "now", oracleVersion)
		return idx, nil
	}

	for _, entry := range f.Queries {
		key, value, err := decodeEntry(entry)
		if err != nil {
			logger.Warn("skipping malformed query index entry", "error", err)
			continue
		}
		idx.values[key] = value
	}
	return idx, nil
}

func decodeEntry(raw json.RawMessage) (Key, float64, error) {
	var pair [2]json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil {
		return Key{}, 0, err
	}
	var k [2]string
	if err := json.Unmarshal(pair[0], &k); err != nil {
		return Key{}, 0, err
	}
	var v float64
	if err := json.Unmarshal(pair[1], &v); err != nil {
		return Key{}, 0, err
	}
	return Key{Method: k[0], Payload: k[1]}, v, nil
}

// Save writes the index to path, sorted by key.
func (idx *Index) Save(path string) error {
	idx.mu.Lock()
	keys := make([]Key, 0, len(idx.values))
	for k := range idx.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Or(cmp.Compare(a.Method, b.Method), cmp.Compare(a.Payload, b.Payload))
	})
	f := indexFile{Version: idx.version, OracleVersion: idx.oracleVersion, Queries: make([]json.RawMessage, 0, len(keys))}
	for _, k := range keys {
		entry, err := json.Marshal([]any{[2]string{k.Method, k.Payload}, idx.values[k]})
		if err != nil {
			idx.mu.Unlock()
			return fmt.Errorf("encode %s: %w", k, err)
		}
		f.Queries = append(f.Queries, entry)
	}
	idx.mu.Unlock()

	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(errors.ErrCodeCacheUnavailable, err, "create %s", filepath.Dir(path))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeCacheUnavailable, err, "write query index %s", path)
	}
	return nil
}

// Get returns the value for key and marks it used.
func (idx *Index) Get(key Key) (float64, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	v, ok := idx.values[key]
	if ok {
		idx.used[key] = v
	}
	return v, ok
}

// Set stores a value and marks it used.
func (idx *Index) Set(key Key, v float64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.values[key] = v
	idx.used[key] = v
}

// Len returns the number of stored values.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.values)
}

// Prune keeps only the values used since the previous prune.
func (idx *Index) Prune() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.values = idx.used
	idx.used = make(map[Key]float64)
}

// Versions returns the boxdeck and oracle versions the index belongs to.
func (idx *Index) Versions() (string, string) {
	return idx.version, idx.oracleVersion
}
