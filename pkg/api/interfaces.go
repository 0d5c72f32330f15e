// Package api provides interfaces for dependency injection
package api

import (
	"context"

	"github.com/ssargent/fxtree/pkg/index"
	"github.com/ssargent/fxtree/pkg/store"
)

// IKVStore is the subset of *store.KVStore the HTTP server depends on,
// narrowed to an interface so handlers can be tested against a fake.
type IKVStore interface {
	Put(key, value []byte) error
	Get(key []byte) ([]byte, error)
	Delete(key []byte) error
	ListKeys(prefix []byte) ([]string, error)
	PutRelationship(fromKey, toKey, relation string) error
	DeleteRelationship(fromKey, toKey, relation string) error
	GetRelationships(query store.RelationshipQuery) ([]store.RelationshipResult, error)
	Explain(ctx context.Context, opts store.ExplainOptions) (*store.ExplainResult, error)
	Stats() *store.StoreStats
	IndexRange(field string, start, end interface{}) ([]store.KeyValuePair, error)
	IndexStat(field string) index.IndexStats
}

// ServerStarter defines the interface for starting the API server
type ServerStarter interface {
	// StartServer starts the API server with the given configuration
	StartServer(kvStore *store.KVStore, port int, apiKey string) error
}

// ServerFactory creates server instances
type ServerFactory interface {
	// CreateServerStarter creates a server starter
	CreateServerStarter() ServerStarter
}
