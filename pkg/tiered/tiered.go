// Package tiered implements the Coordinator: one storage instance per
// (DatabaseType, TemperatureTier) pair, opened with indexing enabled and
// resolved to a {type}/{tier}/ subpath under a platform-appropriate data
// directory.
package tiered

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/orneryd/convergedb/pkg/entity"
	"github.com/orneryd/convergedb/pkg/hyberr"
	"github.com/orneryd/convergedb/pkg/indexmgr"
	"github.com/orneryd/convergedb/pkg/query"
	"github.com/orneryd/convergedb/pkg/store"
	"github.com/orneryd/convergedb/pkg/vector"
)

// DatabaseType enumerates the top-level domains this engine keeps separate
// databases for.
type DatabaseType string

const (
	Conversations DatabaseType = "conversations"
	Knowledge     DatabaseType = "knowledge"
)

// TemperatureTier buckets a database by access recency. None means
// untiered: the database has exactly one instance, stored directly under
// its type directory rather than a tier subdirectory.
type TemperatureTier string

const (
	Active  TemperatureTier = "active"
	Recent  TemperatureTier = "recent"
	Archive TemperatureTier = "archive"
	None    TemperatureTier = ""
)

// instance bundles the three layers that sit on top of one opened Store.
type instance struct {
	kv       *store.Store
	entities *entity.Store
	vectors  *vector.Index
	exec     *query.Executor
}

func (i *instance) Close() error { return i.kv.Close() }

// Coordinator owns every open (type, tier) instance and routes calls to
// the active tier by default.
type Coordinator struct {
	mu        sync.RWMutex
	dataDir   string
	storeOpts store.Options
	vecCfg    func() (vector.ManagerConfig, error)
	instances map[key]*instance
}

type key struct {
	typ  DatabaseType
	tier TemperatureTier
}

// NewCoordinator creates a Coordinator rooted at dataDir. mgrCfg builds the
// vector manager's settings (dimensions, metric, HNSW parameters, segment
// size) every opened instance uses — typically dbconfig.Config.ManagerConfig.
func NewCoordinator(dataDir string, storeOpts store.Options, mgrCfg func() (vector.ManagerConfig, error)) *Coordinator {
	return &Coordinator{
		dataDir:   dataDir,
		storeOpts: storeOpts,
		vecCfg:    mgrCfg,
		instances: make(map[key]*instance),
	}
}

// DefaultDataDir resolves the per-user application-data directory for this
// platform.
func DefaultDataDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", hyberr.Wrap(hyberr.Storage, "tiered.DefaultDataDir", err)
	}
	return filepath.Join(base, "convergedb"), nil
}

// path resolves the on-disk file for (typ, tier). An untiered database
// skips the tier segment entirely.
func (c *Coordinator) path(typ DatabaseType, tier TemperatureTier) string {
	if tier == None {
		return filepath.Join(c.dataDir, string(typ), "db")
	}
	return filepath.Join(c.dataDir, string(typ), string(tier), "db")
}

// Open returns the instance for (typ, tier), opening it (and its parent
// directory) on first use. Subsequent calls for the same pair return the
// same instance.
func (c *Coordinator) Open(typ DatabaseType, tier TemperatureTier) (*entity.Store, *query.Executor, error) {
	k := key{typ, tier}

	c.mu.RLock()
	if inst, ok := c.instances[k]; ok {
		c.mu.RUnlock()
		return inst.entities, inst.exec, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[k]; ok {
		return inst.entities, inst.exec, nil
	}

	p := c.path(typ, tier)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, nil, hyberr.Wrap(hyberr.EnvOpen, "tiered.Open", err)
	}

	kv, err := store.Open(p, c.storeOpts)
	if err != nil {
		return nil, nil, err
	}

	mgrCfg, err := c.vecCfg()
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	vecIdx, err := vector.NewIndex(mgrCfg)
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	mgr := indexmgr.New(vecIdx)
	entities := entity.NewStore(kv, mgr)

	if err := rebuildVectorIndex(entities, vecIdx); err != nil {
		_ = kv.Close()
		return nil, nil, err
	}

	exec := query.NewExecutor(kv, entities, vecIdx)

	inst := &instance{kv: kv, entities: entities, vectors: vecIdx, exec: exec}
	c.instances[k] = inst
	log.Printf("[tiered] opened %s/%s at %s", typ, tier, p)
	return inst.entities, inst.exec, nil
}

// rebuildVectorIndex replays every durable embedding into vecIdx, since the
// in-memory HNSW graph has no direct on-disk representation (see
// pkg/indexmgr.Manager.IndexEmbedding's doc comment).
func rebuildVectorIndex(entities *entity.Store, vecIdx *vector.Index) error {
	return entities.ForEachEmbedding(func(e *entity.Embedding) error {
		return vecIdx.Add(string(e.ID), e.Vector, nil)
	})
}

// Active is a convenience for Open(typ, Active), the default routing target
// for high-level calls.
func (c *Coordinator) Active(typ DatabaseType) (*entity.Store, *query.Executor, error) {
	return c.Open(typ, Active)
}

// QueryAll fans q out across every opened tier of typ and concatenates
// results, for analytical calls that must see the whole temperature range.
func (c *Coordinator) QueryAll(ctx context.Context, typ DatabaseType, q query.ConvergedQuery) ([]query.Result, error) {
	c.mu.RLock()
	var execs []*query.Executor
	for _, tier := range []TemperatureTier{Active, Recent, Archive} {
		if inst, ok := c.instances[key{typ, tier}]; ok {
			execs = append(execs, inst.exec)
		}
	}
	c.mu.RUnlock()

	var all []query.Result
	for _, exec := range execs {
		rows, err := exec.Execute(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
	}
	return all, nil
}

// VectorStats returns the opened instance's vector index statistics; it
// opens the instance first if not already open.
func (c *Coordinator) VectorStats(typ DatabaseType, tier TemperatureTier) (vector.Stats, error) {
	if _, _, err := c.Open(typ, tier); err != nil {
		return vector.Stats{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.instances[key{typ, tier}].vectors.Stats(), nil
}

// Close closes every opened instance, collecting the first error
// encountered but attempting to close all of them regardless.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var firstErr error
	for k, inst := range c.instances {
		if err := inst.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tiered.Close: %s/%s: %w", k.typ, k.tier, err)
		}
	}
	c.instances = make(map[key]*instance)
	return firstErr
}
