package query_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/statecache/core"
	"github.com/poiesic/statecache/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCounter records the order of table reads. All calls happen on the
// worker goroutine, so the slice needs no locking as long as it is read
// after the worker is done.
type stubCounter struct {
	files   map[core.Handle]int
	folders map[core.Handle]int
	err     error
	calls   []string
}

func (c *stubCounter) ChildFileCount(parent core.Handle) (int, error) {
	c.calls = append(c.calls, fmt.Sprintf("files:%d", uint64(parent)))
	return c.files[parent], c.err
}

func (c *stubCounter) ChildFolderCount(parent core.Handle) (int, error) {
	c.calls = append(c.calls, fmt.Sprintf("folders:%d", uint64(parent)))
	return c.folders[parent], c.err
}

type result struct {
	kind string
	n    int
	err  error
}

// recorder collects callback invocations; same goroutine discipline as
// stubCounter.
type recorder struct {
	results []result
}

func (r *recorder) ChildFileCountResult(n int, err error) {
	r.results = append(r.results, result{"files", n, err})
}

func (r *recorder) ChildFolderCountResult(n int, err error) {
	r.results = append(r.results, result{"folders", n, err})
}

func waitDone(t *testing.T, w *query.Worker) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not drain in time")
	}
}

func TestWorker_FIFOOrder(t *testing.T) {
	counter := &stubCounter{
		files:   map[core.Handle]int{1: 10, 3: 30},
		folders: map[core.Handle]int{2: 20},
	}
	rec := &recorder{}
	w := query.NewWorker(rec)

	require.NoError(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFileCount, 1)))
	require.NoError(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFolderCount, 2)))
	require.NoError(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFileCount, 3)))

	w.Shutdown()
	waitDone(t, w)

	assert.Equal(t, []string{"files:1", "folders:2", "files:3"}, counter.calls)
	require.Len(t, rec.results, 3)
	assert.Equal(t, result{"files", 10, nil}, rec.results[0])
	assert.Equal(t, result{"folders", 20, nil}, rec.results[1])
	assert.Equal(t, result{"files", 30, nil}, rec.results[2])
}

func TestWorker_ShutdownDrainsThenRefuses(t *testing.T) {
	counter := &stubCounter{files: map[core.Handle]int{}, folders: map[core.Handle]int{}}
	rec := &recorder{}
	w := query.NewWorker(rec)

	for i := 0; i < 10; i++ {
		require.NoError(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFileCount, core.Handle(i))))
	}
	w.Shutdown()
	w.Shutdown() // idempotent
	waitDone(t, w)

	assert.Len(t, rec.results, 10, "everything enqueued before shutdown must complete")
	assert.ErrorIs(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFileCount, 0)), query.ErrShutdown)
}

func TestWorker_NilTable(t *testing.T) {
	rec := &recorder{}
	w := query.NewWorker(rec)

	require.NoError(t, w.Enqueue(query.NewQuery(nil, query.TypeChildFolderCount, 7)))
	w.Shutdown()
	waitDone(t, w)

	require.Len(t, rec.results, 1)
	assert.ErrorIs(t, rec.results[0].err, query.ErrUnavailable)
}

func TestWorker_ReadFailure(t *testing.T) {
	cause := errors.New("backend gone")
	counter := &stubCounter{files: map[core.Handle]int{}, folders: map[core.Handle]int{}, err: cause}
	rec := &recorder{}
	w := query.NewWorker(rec)

	require.NoError(t, w.Enqueue(query.NewQuery(counter, query.TypeChildFileCount, 1)))
	w.Shutdown()
	waitDone(t, w)

	require.Len(t, rec.results, 1)
	assert.ErrorIs(t, rec.results[0].err, query.ErrReadFailed)
	assert.ErrorIs(t, rec.results[0].err, cause)
}

func TestWorker_UnknownTypeHasNoCallback(t *testing.T) {
	counter := &stubCounter{files: map[core.Handle]int{}, folders: map[core.Handle]int{}}
	rec := &recorder{}
	w := query.NewWorker(rec)

	q := query.NewQuery(counter, query.Type(99), 1)
	require.NoError(t, w.Enqueue(q))
	w.Shutdown()
	waitDone(t, w)

	assert.Empty(t, rec.results, "unknown types complete without a callback")
	assert.Empty(t, counter.calls)
	assert.ErrorIs(t, q.Err(), query.ErrInvalidType)
}

func TestWorker_NilCallbacks(t *testing.T) {
	counter := &stubCounter{files: map[core.Handle]int{1: 5}, folders: map[core.Handle]int{}}
	w := query.NewWorker(nil)

	q := query.NewQuery(counter, query.TypeChildFileCount, 1)
	require.NoError(t, w.Enqueue(q))
	w.Shutdown()
	waitDone(t, w)

	assert.Equal(t, 5, q.Number())
	assert.NoError(t, q.Err())
}
