package query

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/boxdeck/pkg/cache"
	"github.com/matzehuels/boxdeck/pkg/errors"
)

// fakeOracle returns len(payload) for every method and counts calls.
type fakeOracle struct {
	mu    sync.Mutex
	calls map[Key]int
	fail  map[Key]error
	delay time.Duration
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{calls: make(map[Key]int), fail: make(map[Key]error)}
}

func (f *fakeOracle) Measure(ctx context.Context, method, payload string) (float64, error) {
	k := Key{Method: method, Payload: payload}
	f.mu.Lock()
	f.calls[k]++
	err := f.fail[k]
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err != nil {
		return 0, err
	}
	return float64(len(payload)), nil
}

func (f *fakeOracle) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

func TestResolveDeduplicates(t *testing.T) {
	oracle := newFakeOracle()
	r := NewResolver(oracle, NewIndex("v", "o"), nil, 4, quietLogger())

	var reg Registry
	var got []float64
	key := Key{Method: MethodWidth, Payload: "hello"}
	for range 3 {
		reg.Add(key, func(v float64) { got = append(got, v) })
	}

	stats, err := r.Resolve(context.Background(), reg.Queries())
	if err != nil {
		t.Fatal(err)
	}
	if n := oracle.total(); n != 1 {
		t.Errorf("oracle called %d times, want 1", n)
	}
	if diff := cmp.Diff([]float64{5, 5, 5}, got); diff != "" {
		t.Errorf("callback values (-want +got):\n%s", diff)
	}
	want := Stats{Queries: 3, Distinct: 1, Missing: 1, Measured: 1}
	if diff := cmp.Diff(want, stats); diff != "" {
		t.Errorf("stats (-want +got):\n%s", diff)
	}
}

func TestResolveManyKeysConcurrently(t *testing.T) {
	oracle := newFakeOracle()
	oracle.delay = 5 * time.Millisecond
	r := NewResolver(oracle, NewIndex("v", "o"), nil, 8, quietLogger())

	var reg Registry
	results := make(map[string]float64)
	payloads := []string{"a", "bb", "ccc", "dddd", "eeeee", "a", "bb"}
	for _, p := range payloads {
		reg.Add(Key{Method: MethodWidth, Payload: p}, func(v float64) { results[p] = v })
	}
	if _, err := r.Resolve(context.Background(), reg.Queries()); err != nil {
		t.Fatal(err)
	}
	if n := oracle.total(); n != 5 {
		t.Errorf("oracle called %d times, want 5", n)
	}
	for _, p := range payloads {
		if results[p] != float64(len(p)) {
			t.Errorf("value for %q = %g", p, results[p])
		}
	}
}

func TestResolveUsesIndex(t *testing.T) {
	oracle := newFakeOracle()
	idx := NewIndex("v", "o")
	key := Key{Method: MethodHeight, Payload: "cached"}
	idx.Set(key, 42)
	r := NewResolver(oracle, idx, nil, 1, quietLogger())

	var got float64
	if _, err := r.Resolve(context.Background(), []Query{{Key: key, Callback: func(v float64) { got = v }}}); err != nil {
		t.Fatal(err)
	}
	if got != 42 || oracle.total() != 0 {
		t.Errorf("got %g with %d oracle calls", got, oracle.total())
	}
}

func TestResolveFailureAbortsAll(t *testing.T) {
	oracle := newFakeOracle()
	bad := Key{Method: MethodWidth, Payload: "bad"}
	oracle.fail[bad] = stderrors.New("parse failure")
	r := NewResolver(oracle, NewIndex("v", "o"), nil, 2, quietLogger())

	called := false
	queries := []Query{
		{Key: Key{Method: MethodWidth, Payload: "ok"}, Callback: func(float64) { called = true }},
		{Key: bad, Callback: func(float64) { called = true }},
	}
	_, err := r.Resolve(context.Background(), queries)
	if !errors.Is(err, errors.ErrCodeOracleFailed) {
		t.Fatalf("error = %v, want ORACLE_FAILED", err)
	}
	if called {
		t.Error("no callback may run when a measurement fails")
	}
	if want := bad.String(); !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name key %s", err, want)
	}
}

func TestResolveKeepsOracleErrorCode(t *testing.T) {
	oracle := newFakeOracle()
	bad := Key{Method: MethodX, Payload: "p"}
	oracle.fail[bad] = errors.New(errors.ErrCodeOracleProtocol, "not a number")
	r := NewResolver(oracle, NewIndex("v", "o"), nil, 1, quietLogger())
	_, err := r.Resolve(context.Background(), []Query{{Key: bad, Callback: func(float64) {}}})
	if !errors.Is(err, errors.ErrCodeOracleProtocol) {
		t.Errorf("error = %v, want ORACLE_PROTOCOL", err)
	}
}

func TestResolveSharedStore(t *testing.T) {
	shared, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key := Key{Method: MethodWidth, Payload: "shared"}

	first := newFakeOracle()
	r1 := NewResolver(first, NewIndex("v", "o"), shared, 1, quietLogger())
	if _, err := r1.Resolve(context.Background(), []Query{{Key: key, Callback: func(float64) {}}}); err != nil {
		t.Fatal(err)
	}

	second := newFakeOracle()
	r2 := NewResolver(second, NewIndex("v", "o"), shared, 1, quietLogger())
	var got float64
	stats, err := r2.Resolve(context.Background(), []Query{{Key: key, Callback: func(v float64) { got = v }}})
	if err != nil {
		t.Fatal(err)
	}
	if second.total() != 0 || got != 6 || stats.Shared != 1 {
		t.Errorf("second resolver: %d oracle calls, value %g, stats %+v", second.total(), got, stats)
	}

	// A different oracle version must not reuse shared values.
	third := newFakeOracle()
	r3 := NewResolver(third, NewIndex("v", "other"), shared, 1, quietLogger())
	if _, err := r3.Resolve(context.Background(), []Query{{Key: key, Callback: func(float64) {}}}); err != nil {
		t.Fatal(err)
	}
	if third.total() != 1 {
		t.Errorf("oracle version change: %d oracle calls, want 1", third.total())
	}
}

func TestIndexRoundTripAndVersioning(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFile)
	idx := NewIndex("1.0", "Inkscape 1.2")
	idx.Set(Key{Method: MethodWidth, Payload: "<text>a</text>"}, 12.5)
	idx.Set(Key{Method: MethodX, Payload: "b"}, -3)
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadIndex(path, "1.0", "Inkscape 1.2", quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := loaded.Get(Key{Method: MethodWidth, Payload: "<text>a</text>"}); !ok || v != 12.5 {
		t.Errorf("loaded value = %g, %v", v, ok)
	}
	if loaded.Len() != 2 {
		t.Errorf("loaded %d entries, want 2", loaded.Len())
	}

	for _, tc := range []struct{ version, oracle string }{
		{"1.1", "Inkscape 1.2"},
		{"1.0", "Inkscape 1.3"},
	} {
		cold, err := LoadIndex(path, tc.version, tc.oracle, quietLogger())
		if err != nil {
			t.Fatal(err)
		}
		if cold.Len() != 0 {
			t.Errorf("versions %v: index not dropped", tc)
		}
	}
}

func TestIndexFileFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), IndexFile)
	idx := NewIndex("1.0", "ink")
	idx.Set(Key{Method: "inkscape-w", Payload: "p"}, 2)
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"version":"1.0","oracle_version":"ink","queries":[[["inkscape-w","p"],2]]}`
	if string(data) != want {
		t.Errorf("file = %s\nwant  %s", data, want)
	}
}

func TestLoadIndexMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	idx, err := LoadIndex(filepath.Join(dir, "none.json"), "v", "o", quietLogger())
	if err != nil || idx.Len() != 0 {
		t.Errorf("missing file: len %d, err %v", idx.Len(), err)
	}

	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	idx, err = LoadIndex(corrupt, "v", "o", quietLogger())
	if err != nil || idx.Len() != 0 {
		t.Errorf("corrupt file: len %d, err %v", idx.Len(), err)
	}
}

func TestIndexPrune(t *testing.T) {
	idx := NewIndex("v", "o")
	a := Key{Method: MethodWidth, Payload: "a"}
	b := Key{Method: MethodWidth, Payload: "b"}
	idx.Set(a, 1)
	idx.Set(b, 2)
	idx.Prune()

	// New session: only a is touched.
	if _, ok := idx.Get(a); !ok {
		t.Fatal("a missing")
	}
	idx.Prune()
	if idx.Len() != 1 {
		t.Errorf("after prune len = %d, want 1", idx.Len())
	}
	if _, ok := idx.Get(b); ok {
		t.Error("untouched key survived prune")
	}
}

func TestRegistry(t *testing.T) {
	var reg Registry
	a := Key{Method: MethodWidth, Payload: "a"}
	b := Key{Method: MethodHeight, Payload: "a"}
	reg.Add(a, func(float64) {})
	reg.Add(b, func(float64) {})
	reg.Add(a, func(float64) {})

	if reg.Len() != 3 {
		t.Errorf("Len = %d", reg.Len())
	}
	if diff := cmp.Diff([]Key{a, b}, reg.Keys()); diff != "" {
		t.Errorf("Keys (-want +got):\n%s", diff)
	}
	if got := reg.Drain(); len(got) != 3 || reg.Len() != 0 {
		t.Errorf("Drain returned %d, left %d", len(got), reg.Len())
	}
}

func TestKeyString(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    string
	}{
		{"short", "<text/>", `inkscape-w("<text/>")`},
		{"ascii truncated", strings.Repeat("a", 70), `inkscape-w("` + strings.Repeat("a", 57) + `...")`},
		{"runes truncated", strings.Repeat("é", 70), `inkscape-w("` + strings.Repeat("é", 57) + `...")`},
		{"runes at limit", strings.Repeat("é", 60), `inkscape-w("` + strings.Repeat("é", 60) + `")`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Key{Method: MethodWidth, Payload: tt.payload}.String()
			if got != tt.want {
				t.Errorf("String() = %s, want %s", got, tt.want)
			}
		})
	}
}
