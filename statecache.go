// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package statecache is the encrypted local persistence layer of a
// cloud-storage client. It caches the server-synchronized object graph —
// file and folder nodes, contacts, pending contact requests, root container
// handles — so a client can resume a session without re-downloading the
// remote state, while keeping the cached records and their relationships
// unreadable to casual inspection of the storage medium.
package statecache

import (
	"log/slog"

	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/crypt"
	"github.com/poiesic/statecache/query"
	"github.com/poiesic/statecache/storage"
	"github.com/poiesic/statecache/storage/badger"
)

// Cache is one open cache session: a badger backend, the encrypted record
// table keyed for this session, and a background query worker.
type Cache struct {
	backend *badger.Backend
	table   *storage.Table
	worker  *query.Worker
	logger  *slog.Logger
}

type cacheOptions struct {
	inMemory   bool
	callbacks  query.Callbacks
	queueDepth int
	logger     *slog.Logger
}

// CacheOption configures Open.
type CacheOption func(*cacheOptions)

// WithInMemory opens an in-memory cache, mostly for tests.
func WithInMemory() CacheOption {
	return func(o *cacheOptions) {
		o.inMemory = true
	}
}

// WithCallbacks registers the receiver for asynchronous query results.
func WithCallbacks(cb query.Callbacks) CacheOption {
	return func(o *cacheOptions) {
		o.callbacks = cb
	}
}

// WithQueueDepth sets the pending-query buffer size of the worker.
func WithQueueDepth(depth int) CacheOption {
	return func(o *cacheOptions) {
		o.queueDepth = depth
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) CacheOption {
	return func(o *cacheOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open opens (or creates) the cache at filePath, derives the session key
// bundle from the master secret and starts the query worker.
func Open(filePath string, master []byte, opts ...CacheOption) (*Cache, error) {
	options := &cacheOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	keys, err := crypt.DeriveKeys(master)
	if err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	table := storage.NewTable(backend,
		storage.WithKeys(keys),
		storage.WithLogger(options.logger))

	workerOpts := []query.WorkerOption{query.WithWorkerLogger(options.logger)}
	if options.queueDepth > 0 {
		workerOpts = append(workerOpts, query.WithQueueDepth(options.queueDepth))
	}
	worker := query.NewWorker(options.callbacks, workerOpts...)

	return &Cache{
		backend: backend,
		table:   table,
		worker:  worker,
		logger:  options.logger,
	}, nil
}

// Close drains the query worker, then closes the table and the backend.
func (c *Cache) Close() error {
	c.worker.Shutdown()
	<-c.worker.Done()

	if err := c.table.Close(); err != nil {
		c.logger.Error("error closing record table", "err", err)
	}
	if err := c.backend.Close(); err != nil {
		c.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Table returns the encrypted record table for synchronous access.
func (c *Cache) Table() *storage.Table {
	return c.table
}

// Worker returns the background query worker.
func (c *Cache) Worker() *query.Worker {
	return c.worker
}

// EnqueueChildFileCount schedules an asynchronous file count under parent;
// the result arrives through the session callbacks.
func (c *Cache) EnqueueChildFileCount(parent core.Handle) error {
	return c.worker.Enqueue(query.NewQuery(c.table, query.TypeChildFileCount, parent))
}

// EnqueueChildFolderCount schedules an asynchronous folder count under
// parent.
func (c *Cache) EnqueueChildFolderCount(parent core.Handle) error {
	return c.worker.Enqueue(query.NewQuery(c.table, query.TypeChildFolderCount, parent))
}
