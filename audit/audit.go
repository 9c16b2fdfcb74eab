package audit

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/statecache/core"
)

// NodeReader is the slice of the record store the scanner needs.
type NodeReader interface {
	NodeHandles() ([]core.Handle, error)
	GetNode(h core.Handle) ([]byte, error)
}

// Report summarizes one integrity scan. Corrupt holds the handles of nodes
// whose payloads no longer decrypt; those are the rows a client must fetch
// from the server again.
type Report struct {
	Scanned int
	Corrupt []core.Handle
}

// Scanner verifies that every cached node payload still decrypts under the
// session keys. Rows are checked concurrently on a worker pool; the scan
// itself never fails on a corrupt row, it reports it.
type Scanner struct {
	table  NodeReader
	pool   *ants.Pool
	logger *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner) error

// WithPoolSize sets the worker pool size for concurrent verification.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Scanner) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) error {
		if logger != nil {
			s.logger = logger
		}
		return nil
	}
}

// NewScanner creates a Scanner over the given store.
func NewScanner(table NodeReader, opts ...Option) (*Scanner, error) {
	if table == nil {
		return nil, errors.New("node reader required")
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Scanner{
		table:  table,
		pool:   pool,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	return s, nil
}

// Scan checks every cached node and reports the ones that fail to decrypt.
// Context cancellation stops the submission of further checks; rows already
// submitted still finish.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	handles, err := s.table.NodeHandles()
	if err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		corrupt []core.Handle
	)

	report := &Report{}
	for _, h := range handles {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		report.Scanned++
		handle := h
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			if _, err := s.table.GetNode(handle); err != nil {
				s.logger.Warn("corrupt node payload", "handle", uint64(handle), "err", err)
				mu.Lock()
				corrupt = append(corrupt, handle)
				mu.Unlock()
			}
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return nil, err
		}
	}

	wg.Wait()
	report.Corrupt = corrupt
	return report, nil
}

// Release releases the worker pool. The scanner must not be used after.
func (s *Scanner) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
