// Package badgerstore provides a persistent Store backed by BadgerDB.
//
// Nodes are stored as JSON values under byte-prefixed keys with a secondary
// entity index:
//
//	0x01 + nodeID                             -> JSON(Node)
//	0x02 + uvarint(len(entityID)) + entityID + nodeID -> empty
//
// Vector search scans the entity index and scores candidates in process with
// the shared similarity function; traversal delegates to memory.Traverse.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/becomeliminal/memgraph-go/memory"
)

// Key prefixes. Single bytes keep keys compact.
const (
	prefixNode   = byte(0x01)
	prefixEntity = byte(0x02)
)

// Options configures the badger store.
type Options struct {
	// DataDir is the directory for data files. Ignored when InMemory is set.
	DataDir string

	// InMemory runs badger without persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but more durable.
	SyncWrites bool

	// Logger for the store's own logging. Badger's internal logger is
	// disabled either way.
	Logger *zap.Logger
}

// Store persists nodes in a badger database.
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) a badger-backed store.
func Open(opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var bopts badger.Options
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		bopts = badger.DefaultOptions(opts.DataDir)
	}
	bopts = bopts.WithSyncWrites(opts.SyncWrites).WithLogger(nil)

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, &memory.ProviderError{Op: "badger.open", Err: err}
	}
	return &Store{db: db, log: log}, nil
}

func nodeKey(id string) []byte {
	return append([]byte{prefixNode}, id...)
}

func entityKey(entityID, id string) []byte {
	return append(entityPrefix(entityID), id...)
}

// entityPrefix length-prefixes the entity id so no entity's index entries
// can share a key prefix with another's, whatever bytes the id contains.
func entityPrefix(entityID string) []byte {
	key := make([]byte, 0, 1+binary.MaxVarintLen64+len(entityID))
	key = append(key, prefixEntity)
	key = binary.AppendUvarint(key, uint64(len(entityID)))
	return append(key, entityID...)
}

func encodeNode(n *memory.Node) ([]byte, error) {
	stored := n.Clone()
	stored.Similarity = 0 // ephemeral, never persisted
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, &memory.ProviderError{Op: "badger.encode", Err: err}
	}
	return data, nil
}

func decodeNode(data []byte) (*memory.Node, error) {
	var n memory.Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, &memory.ProviderError{Op: "badger.decode", Err: err}
	}
	if n.OutgoingEdges == nil {
		n.OutgoingEdges = []string{}
	}
	return &n, nil
}

// getNode reads and decodes a node inside a transaction.
func getNode(txn *badger.Txn, id string) (*memory.Node, error) {
	item, err := txn.Get(nodeKey(id))
	if err == badger.ErrKeyNotFound {
		return nil, fmt.Errorf("%w: %s", memory.ErrNotFound, id)
	}
	if err != nil {
		return nil, &memory.ProviderError{Op: "badger.get", Err: err}
	}
	data, err := item.ValueCopy(nil)
	if err != nil {
		return nil, &memory.ProviderError{Op: "badger.get", Err: err}
	}
	return decodeNode(data)
}

// Create persists a new node, assigning id and timestamps.
func (s *Store) Create(ctx context.Context, node *memory.Node) (*memory.Node, error) {
	stored := node.Clone()
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	data, err := encodeNode(stored)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(stored.ID)); err == nil {
			return &memory.ProviderError{Op: fmt.Sprintf("badger.create: duplicate id %s", stored.ID)}
		}
		if err := txn.Set(nodeKey(stored.ID), data); err != nil {
			return &memory.ProviderError{Op: "badger.set", Err: err}
		}
		if err := txn.Set(entityKey(stored.EntityID, stored.ID), nil); err != nil {
			return &memory.ProviderError{Op: "badger.set_index", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("node stored", zap.String("id", stored.ID), zap.String("entity_id", stored.EntityID))
	return stored, nil
}

// Get returns the node with the given id.
func (s *Store) Get(ctx context.Context, id string) (*memory.Node, error) {
	var node *memory.Node
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		node, err = getNode(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return node, nil
}

// Update applies a partial update inside one transaction.
func (s *Store) Update(ctx context.Context, id string, update memory.NodeUpdate) (*memory.Node, error) {
	var updated *memory.Node
	err := s.db.Update(func(txn *badger.Txn) error {
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}
		if update.Content != nil {
			node.Content = *update.Content
		}
		if update.Embedding != nil {
			node.Embedding = *update.Embedding
		}
		if update.OutgoingEdges != nil {
			node.OutgoingEdges = *update.OutgoingEdges
		}
		node.UpdatedAt = time.Now().UTC()

		data, err := encodeNode(node)
		if err != nil {
			return err
		}
		if err := txn.Set(nodeKey(id), data); err != nil {
			return &memory.ProviderError{Op: "badger.set", Err: err}
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the node and its entity index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		node, err := getNode(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(nodeKey(id)); err != nil {
			return &memory.ProviderError{Op: "badger.delete", Err: err}
		}
		if err := txn.Delete(entityKey(node.EntityID, id)); err != nil {
			return &memory.ProviderError{Op: "badger.delete_index", Err: err}
		}
		return nil
	})
}

// listByEntity loads all of an entity's nodes via the index prefix.
func (s *Store) listByEntity(entityID string) ([]*memory.Node, error) {
	prefix := entityPrefix(entityID)
	var nodes []*memory.Node
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		iopts.Prefix = prefix
		it := txn.NewIterator(iopts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			node, err := getNode(txn, id)
			if err != nil {
				return err
			}
			nodes = append(nodes, node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// ListByEntity returns every node owned by the entity.
func (s *Store) ListByEntity(ctx context.Context, entityID string) ([]*memory.Node, error) {
	return s.listByEntity(entityID)
}

// VectorSearch scans the entity's nodes and ranks them by Similarity01.
func (s *Store) VectorSearch(ctx context.Context, entityID string, embedding []float32, limit int, threshold float64) ([]*memory.Node, error) {
	nodes, err := s.listByEntity(entityID)
	if err != nil {
		return nil, err
	}

	var matches []*memory.Node
	for _, node := range nodes {
		if node.Embedding == nil {
			continue
		}
		sim := memory.Similarity01(embedding, node.Embedding)
		if sim < threshold {
			continue
		}
		node.Similarity = sim
		matches = append(matches, node)
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Connected returns nodes reachable from fromID within depth hops.
func (s *Store) Connected(ctx context.Context, fromID string, depth int) ([]*memory.Node, error) {
	return memory.Traverse(ctx, s, []string{fromID}, depth)
}

// ConnectedFromMany returns nodes reachable from any start within depth hops.
func (s *Store) ConnectedFromMany(ctx context.Context, fromIDs []string, depth int) ([]*memory.Node, error) {
	return memory.Traverse(ctx, s, fromIDs, depth)
}

// SetOutgoingEdges replaces the node's edge set.
func (s *Store) SetOutgoingEdges(ctx context.Context, id string, edges []string) error {
	_, err := s.Update(ctx, id, memory.NodeUpdate{OutgoingEdges: &edges})
	return err
}

// SetEmbedding replaces the node's embedding.
func (s *Store) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	_, err := s.Update(ctx, id, memory.NodeUpdate{Embedding: &embedding})
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &memory.ProviderError{Op: "badger.close", Err: err}
	}
	return nil
}
