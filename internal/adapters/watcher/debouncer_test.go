package watcher_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ember/internal/adapters/watcher"
	"go.trai.ch/ember/internal/core/domain"
)

func event(path string, kind domain.ChangeKind) domain.ChangeEvent {
	return domain.ChangeEvent{
		Path:      domain.NewInternedString(path),
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

type recorder struct {
	mu      sync.Mutex
	batches [][]domain.ChangeEvent
}

func (r *recorder) callback(events []domain.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
}

func (r *recorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recorder) batch(i int) []domain.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[i]
}

func TestDebouncer_CoalescesRapidSaves(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(500*time.Millisecond, rec.callback)

		// Two writes to the same file 300ms apart with a 500ms window must
		// produce exactly one modified event.
		d.Add(event("/src/main.swift", domain.ChangeModified))
		time.Sleep(300 * time.Millisecond)
		d.Add(event("/src/main.swift", domain.ChangeModified))

		time.Sleep(600 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, rec.batchCount())
		batch := rec.batch(0)
		require.Len(t, batch, 1)
		assert.Equal(t, "/src/main.swift", batch[0].Path.String())
		assert.Equal(t, domain.ChangeModified, batch[0].Kind)
	})
}

func TestDebouncer_LatestEventPerPathWins(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(100*time.Millisecond, rec.callback)

		d.Add(event("/src/main.swift", domain.ChangeCreated))
		time.Sleep(10 * time.Millisecond)
		d.Add(event("/src/main.swift", domain.ChangeDeleted))

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, rec.batchCount())
		batch := rec.batch(0)
		require.Len(t, batch, 1)
		assert.Equal(t, domain.ChangeDeleted, batch[0].Kind)
	})
}

func TestDebouncer_EmitsTimestampAscending(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(100*time.Millisecond, rec.callback)

		d.Add(event("/src/c.swift", domain.ChangeModified))
		time.Sleep(time.Millisecond)
		d.Add(event("/src/a.swift", domain.ChangeModified))
		time.Sleep(time.Millisecond)
		d.Add(event("/src/b.swift", domain.ChangeModified))

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Equal(t, 1, rec.batchCount())
		batch := rec.batch(0)
		require.Len(t, batch, 3)
		assert.Equal(t, "/src/c.swift", batch[0].Path.String())
		assert.Equal(t, "/src/a.swift", batch[1].Path.String())
		assert.Equal(t, "/src/b.swift", batch[2].Path.String())
	})
}

func TestDebouncer_WindowRestartsPerEvent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(100*time.Millisecond, rec.callback)

		d.Add(event("/src/a.swift", domain.ChangeModified))
		time.Sleep(60 * time.Millisecond)
		d.Add(event("/src/b.swift", domain.ChangeModified))
		time.Sleep(60 * time.Millisecond)

		// 120ms after the first event, but only 60ms after the last one.
		synctest.Wait()
		assert.Equal(t, 0, rec.batchCount())

		time.Sleep(50 * time.Millisecond)
		synctest.Wait()
		require.Equal(t, 1, rec.batchCount())
		assert.Len(t, rec.batch(0), 2)
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(time.Hour, rec.callback)

		d.Add(event("/src/a.swift", domain.ChangeModified))
		d.Flush()

		require.Equal(t, 1, rec.batchCount())
		assert.Len(t, rec.batch(0), 1)

		// Nothing pending afterwards: the stale timer must not re-emit.
		time.Sleep(2 * time.Hour)
		synctest.Wait()
		assert.Equal(t, 1, rec.batchCount())
	})
}

func TestDebouncer_FlushEmpty(t *testing.T) {
	rec := &recorder{}
	d := watcher.NewDebouncer(100*time.Millisecond, rec.callback)

	d.Flush()
	assert.Equal(t, 0, rec.batchCount())
}

func TestDebouncer_StopDropsPending(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		rec := &recorder{}
		d := watcher.NewDebouncer(100*time.Millisecond, rec.callback)

		d.Add(event("/src/a.swift", domain.ChangeModified))
		d.Stop()

		time.Sleep(200 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, rec.batchCount())

		// Events after Stop are ignored.
		d.Add(event("/src/b.swift", domain.ChangeModified))
		time.Sleep(200 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, rec.batchCount())
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := watcher.NewDebouncer(50*time.Millisecond, nil)

		d.Add(event("/src/a.swift", domain.ChangeModified))
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		d.Flush()
	})
}
