package cache

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/matzehuels/boxdeck/pkg/errors"
	"github.com/matzehuels/boxdeck/pkg/observability"
)

// Constructor materializes the artifact for payload at path.
type Constructor func(ctx context.Context, payload []byte, path, kind string) error

// Artifact is a single-assignment future for one cache entry.
type Artifact struct {
	path string
	done chan struct{}
	err  error
}

func newArtifact(path string) *Artifact {
	return &Artifact{path: path, done: make(chan struct{})}
}

func resolvedArtifact(path string) *Artifact {
	a := newArtifact(path)
	close(a.done)
	return a
}

func (a *Artifact) resolve(err error) {
	a.err = err
	close(a.done)
}

// Path returns the location of the artifact. The file may not exist yet if
// the artifact is not [Artifact.Ready].
func (a *Artifact) Path() string { return a.path }

// Done is closed once construction has finished, successfully or not.
func (a *Artifact) Done() <-chan struct{} { return a.done }

// Ready reports whether construction has finished.
func (a *Artifact) Ready() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Wait blocks until construction has finished and returns the path, or the
// constructor's error.
func (a *Artifact) Wait(ctx context.Context) (string, error) {
	select {
	case <-a.done:
		if a.err != nil {
			return "", a.err
		}
		return a.path, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ArtifactCache is a content-addressed directory of derived files.
//
// The touched set, the set of files on disk and the in-progress futures
// share one mutex. Constructors run outside of it.
type ArtifactCache struct {
	dir     string
	version string
	hasher  versionHasher

	mu         sync.Mutex
	files      map[string]struct{}
	touched    map[string]struct{}
	inProgress map[string]*Artifact
}

// NewArtifactCache opens (creating if needed) the cache directory and
// indexes the entries already present.
func NewArtifactCache(dir, version string) (*ArtifactCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "create cache directory %s", dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "read cache directory %s", dir)
	}
	files := make(map[string]struct{})
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), "cache.") {
			files[e.Name()] = struct{}{}
		}
	}
	return &ArtifactCache{
		dir:        dir,
		version:    version,
		hasher:     newVersionHasher(version),
		files:      files,
		touched:    make(map[string]struct{}),
		inProgress: make(map[string]*Artifact),
	}, nil
}

// Dir returns the cache directory.
func (c *ArtifactCache) Dir() string { return c.dir }

// Version returns the version folded into every key.
func (c *ArtifactCache) Version() string { return c.version }

// Name returns the file name used for payload and kind.
func (c *ArtifactCache) Name(payload []byte, kind string) string {
	return fileName(c.hasher.sum(payload), kind)
}

// Ensure returns the artifact for (payload, kind), running build if the
// file does not exist yet.
//
// If another caller is already building the same key, wait selects the
// behaviour: true blocks until that build finishes, false returns its
// unresolved future immediately. A failed build is reported to the claimer
// and every waiter; the key then stays in progress for the rest of the
// session and later calls observe the same failure.
func (c *ArtifactCache) Ensure(ctx context.Context, payload []byte, kind string, build Constructor, wait bool) (*Artifact, error) {
	if err := errors.ValidateKind(kind); err != nil {
		return nil, err
	}
	name := c.Name(payload, kind)
	path := filepath.Join(c.dir, name)

	c.mu.Lock()
	c.touched[name] = struct{}{}
	if a, ok := c.inProgress[name]; ok {
		c.mu.Unlock()
		if !wait {
			return a, nil
		}
		if _, err := a.Wait(ctx); err != nil {
			return a, err
		}
		return a, nil
	}
	if _, ok := c.files[name]; ok {
		c.mu.Unlock()
		observability.Cache().OnCacheHit(ctx, kind)
		return resolvedArtifact(path), nil
	}
	a := newArtifact(path)
	c.inProgress[name] = a
	c.mu.Unlock()

	observability.Cache().OnCacheMiss(ctx, kind)
	if err := build(ctx, payload, path, kind); err != nil {
		err = errors.Wrap(errors.ErrCodeBuildFailed, err, "build %s artifact %s", kind, name)
		a.resolve(err)
		return a, err
	}

	size := 0
	if info, err := os.Stat(path); err == nil {
		size = int(info.Size())
	}

	c.mu.Lock()
	c.files[name] = struct{}{}
	delete(c.inProgress, name)
	c.mu.Unlock()

	a.resolve(nil)
	observability.Cache().OnCacheSet(ctx, kind, size)
	return a, nil
}

// EnsureFile is [ArtifactCache.Ensure] with the payload read from filename.
func (c *ArtifactCache) EnsureFile(ctx context.Context, filename, kind string, build Constructor, wait bool) (*Artifact, error) {
	payload, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read %s", filename)
	}
	return c.Ensure(ctx, payload, kind, build, wait)
}

// Memo returns the cached output of fn for payload, computing and storing
// it on a miss.
func (c *ArtifactCache) Memo(ctx context.Context, payload []byte, kind string, fn func([]byte) ([]byte, error)) ([]byte, error) {
	a, err := c.Ensure(ctx, payload, kind, func(_ context.Context, payload []byte, path, _ string) error {
		out, err := fn(payload)
		if err != nil {
			return err
		}
		return os.WriteFile(path, out, 0644)
	}, true)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(a.Path())
}

// Lookup returns the path of an existing entry by file name.
func (c *ArtifactCache) Lookup(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.files[name]; !ok {
		return "", ErrNotFound
	}
	return filepath.Join(c.dir, name), nil
}

// Entries returns the sorted file names of all materialized entries.
func (c *ArtifactCache) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.files))
	for name := range c.files {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Touched returns the number of keys requested during this session.
func (c *ArtifactCache) Touched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.touched)
}

// RemoveUnused deletes every entry not touched during this session and
// returns the removed file names.
func (c *ArtifactCache) RemoveUnused() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []string
	for name := range c.files {
		if _, ok := c.touched[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return removed, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "remove %s", name)
		}
		delete(c.files, name)
		removed = append(removed, name)
	}
	slices.Sort(removed)
	return removed, nil
}

// Clear deletes every entry regardless of the touched set.
func (c *ArtifactCache) Clear() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for name := range c.files {
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !os.IsNotExist(err) {
			return n, errors.Wrap(errors.ErrCodeCacheUnavailable, err, "remove %s", name)
		}
		delete(c.files, name)
		n++
	}
	return n, nil
}
