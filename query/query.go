package query

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/statecache/core"
)

// Type selects the table read a Query performs.
type Type int

const (
	// TypeChildFileCount counts the file nodes under the query's parent.
	TypeChildFileCount Type = iota + 1
	// TypeChildFolderCount counts the folder nodes under the query's parent.
	TypeChildFolderCount

	// typeShutdown is the reserved sentinel that stops the worker.
	typeShutdown
)

// Counter is the slice of the record store the query pipeline reads from.
type Counter interface {
	ChildFileCount(parent core.Handle) (int, error)
	ChildFolderCount(parent core.Handle) (int, error)
}

// Callbacks receives asynchronous query results. Each method is invoked
// exactly once per completed query, on the worker goroutine.
type Callbacks interface {
	ChildFileCountResult(n int, err error)
	ChildFolderCountResult(n int, err error)
}

// Query is one asynchronous read. It is created by the caller, handed to a
// Worker, executed once and discarded; a Query is never reused.
//
// The table reference may be nil: the query then completes with
// ErrUnavailable, which lets a worker be constructed and fed before the
// record store is ready.
type Query struct {
	typ    Type
	parent core.Handle
	table  Counter

	number int
	err    error
}

// NewQuery creates a query against the given table.
func NewQuery(table Counter, typ Type, parent core.Handle) *Query {
	return &Query{typ: typ, parent: parent, table: table}
}

// Type returns the query's type.
func (q *Query) Type() Type { return q.typ }

// Number returns the numeric result after execution.
func (q *Query) Number() int { return q.number }

// Err returns the execution error, nil on success.
func (q *Query) Err() error { return q.err }

// execute dispatches on the query type and records result and error in
// place. All failures are captured here; execute never panics on data
// errors.
func (q *Query) execute(logger *slog.Logger) {
	if q.table == nil {
		q.err = ErrUnavailable
		return
	}

	switch q.typ {
	case TypeChildFileCount:
		q.number, q.err = q.table.ChildFileCount(q.parent)
		if q.err != nil {
			q.err = fmt.Errorf("%w: %w", ErrReadFailed, q.err)
		}

	case TypeChildFolderCount:
		q.number, q.err = q.table.ChildFolderCount(q.parent)
		if q.err != nil {
			q.err = fmt.Errorf("%w: %w", ErrReadFailed, q.err)
		}

	default:
		logger.Warn("execution of unknown query type", "type", int(q.typ))
		q.err = ErrInvalidType
	}
}
