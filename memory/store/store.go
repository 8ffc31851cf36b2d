// Package store selects a storage backend by configuration. Each backend is
// an explicit named variant; nothing is inferred from object shape.
package store

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
	"github.com/becomeliminal/memgraph-go/memory/store/badgerstore"
	"github.com/becomeliminal/memgraph-go/memory/store/chromem"
	"github.com/becomeliminal/memgraph-go/memory/store/inmem"
)

// Backend names a storage variant.
type Backend string

const (
	// BackendInMemory is the map-backed reference store.
	BackendInMemory Backend = "inmemory"

	// BackendChromem is the chromem-go vector-indexed store.
	BackendChromem Backend = "chromem"

	// BackendBadger is the persistent BadgerDB store.
	BackendBadger Backend = "badger"
)

// Config selects and configures a backend.
type Config struct {
	// Backend names the variant. Default: BackendInMemory.
	Backend Backend

	// DataDir is the data directory for persistent backends.
	DataDir string

	// SyncWrites forces fsync after each write on persistent backends.
	SyncWrites bool

	// Logger is passed to the backend. Nil means no logging.
	Logger *zap.Logger
}

// Open creates the configured store.
func Open(cfg Config) (memory.Store, error) {
	switch cfg.Backend {
	case BackendInMemory, "":
		return inmem.New(cfg.Logger), nil
	case BackendChromem:
		return chromem.New(cfg.Logger)
	case BackendBadger:
		return badgerstore.Open(badgerstore.Options{
			DataDir:    cfg.DataDir,
			SyncWrites: cfg.SyncWrites,
			Logger:     cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", memory.ErrConfiguration, cfg.Backend)
	}
}
