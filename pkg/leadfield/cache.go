package leadfield

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/simnibs/ti-orchestrator/pkg/fe"
	"github.com/simnibs/ti-orchestrator/pkg/subject"
	"github.com/simnibs/ti-orchestrator/pkg/tierr"
)

// Cache serves leadfields by fingerprint, building them on demand and
// persisting the result as Dir/leadfield.hdf5, where Dir is one net's
// leadfield directory (layout.Project.LeadfieldDir): leadfields are built lazily on first
// request and cached on disk thereafter. Concurrent requests for the same
// fingerprint coalesce onto a single build: the request that arrives first
// builds, the rest wait for it to finish and share its result. No
// golang.org/x/sync/singleflight is available in the retrieval pack
// (DESIGN.md), so coalescing is hand-rolled with a map of in-flight builds
// guarded by a mutex, each tracked with its own completion channel — the
// same "one goroutine owns the slow step, others block on a channel" shape
// the teacher uses for its convergence loops, applied here to a build
// instead of an iteration.
type Cache struct {
	Dir          string
	Lib          fe.Library
	Conductivity fe.ConductivityModel

	mu       sync.Mutex
	inflight map[string]*buildState
}

type buildState struct {
	done   chan struct{}
	result *Leadfield
	err    error
}

// NewCache constructs a Cache rooted at dir.
func NewCache(dir string, lib fe.Library, conductivity fe.ConductivityModel) *Cache {
	return &Cache{Dir: dir, Lib: lib, Conductivity: conductivity, inflight: make(map[string]*buildState)}
}

func (c *Cache) path(fp Fingerprint) string {
	return filepath.Join(c.Dir, "leadfield.hdf5")
}

// Get returns the leadfield for fp, building and caching it if absent. If
// another caller is already building the same fingerprint, Get waits for
// that build to finish, bounded by waitTimeout; exceeding the bound returns
// a tierr.CacheBuildTimeout error rather than blocking indefinitely.
func (c *Cache) Get(ctx context.Context, subj *subject.Subject, net subject.NetTable, fp Fingerprint, waitTimeout time.Duration) (*Leadfield, error) {
	path := c.path(fp)
	if lf, err := Load(path, fp); err == nil {
		return lf, nil
	}

	key := fp.Key()

	c.mu.Lock()
	if st, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		return waitFor(ctx, st, waitTimeout, fp)
	}
	st := &buildState{done: make(chan struct{})}
	c.inflight[key] = st
	c.mu.Unlock()

	lf, err := c.build(ctx, subj, net, fp, path)
	st.result, st.err = lf, err
	close(st.done)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	return lf, err
}

func waitFor(ctx context.Context, st *buildState, waitTimeout time.Duration, fp Fingerprint) (*Leadfield, error) {
	timer := time.NewTimer(waitTimeout)
	defer timer.Stop()
	select {
	case <-st.done:
		return st.result, st.err
	case <-timer.C:
		return nil, tierr.New(tierr.CacheBuildTimeout, fp.Key(), fmt.Sprintf("waited %s for an in-progress leadfield build", waitTimeout))
	case <-ctx.Done():
		return nil, tierr.Wrap(tierr.Cancelled, fp.Key(), "leadfield cache wait", ctx.Err())
	}
}

func (c *Cache) build(ctx context.Context, subj *subject.Subject, net subject.NetTable, fp Fingerprint, path string) (*Leadfield, error) {
	lf, err := Build(ctx, c.Lib, subj, net, fp, c.Conductivity)
	if err != nil {
		return nil, fmt.Errorf("leadfield cache: building %s: %w", fp.Key(), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("leadfield cache: %w", err)
	}
	if err := Save(path, lf); err != nil {
		return nil, fmt.Errorf("leadfield cache: %w", err)
	}
	return lf, nil
}
