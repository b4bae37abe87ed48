package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired []TimerPayload
	done  chan struct{}
}

func newRecorder(expected int) *recorder {
	return &recorder{done: make(chan struct{}, expected)}
}

func (r *recorder) callback(p TimerPayload) {
	r.mu.Lock()
	r.fired = append(r.fired, p)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestLocalSchedulerFires(t *testing.T) {
	rec := newRecorder(1)
	l := NewLocal(rec.callback)
	defer l.Stop()

	p := TimerPayload{GameCode: "ABC123", Seat: 1, TrickNumber: 3}
	require.NoError(t, l.Schedule("turn-ABC123-3-1", time.Now().Add(10*time.Millisecond), p))

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}

	assert.Equal(t, []TimerPayload{p}, rec.fired)
}

func TestScheduleIsIdempotentPerName(t *testing.T) {
	rec := newRecorder(2)
	l := NewLocal(rec.callback)
	defer l.Stop()

	p := TimerPayload{GameCode: "ABC123", Seat: 1, TrickNumber: 3}
	name := "turn-ABC123-3-1"
	require.NoError(t, l.Schedule(name, time.Now().Add(20*time.Millisecond), p))
	require.NoError(t, l.Schedule(name, time.Now().Add(20*time.Millisecond), p))

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	// Give a duplicate (if any) time to fire too
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 1, rec.count(), "re-scheduling the same name must not double-fire")
}

func TestCancelStopsTimer(t *testing.T) {
	rec := newRecorder(1)
	l := NewLocal(rec.callback)
	defer l.Stop()

	name := "turn-ABC123-3-1"
	require.NoError(t, l.Schedule(name, time.Now().Add(30*time.Millisecond), TimerPayload{}))
	require.NoError(t, l.Cancel(name))

	time.Sleep(80 * time.Millisecond)
	assert.Zero(t, rec.count(), "canceled timer must not fire")
}

func TestNameFreedAfterFiring(t *testing.T) {
	rec := newRecorder(2)
	l := NewLocal(rec.callback)
	defer l.Stop()

	name := "turn-ABC123-3-1"
	require.NoError(t, l.Schedule(name, time.Now().Add(5*time.Millisecond), TimerPayload{Seat: 1}))
	<-rec.done

	// The name is reusable once its timer fired
	require.NoError(t, l.Schedule(name, time.Now().Add(5*time.Millisecond), TimerPayload{Seat: 2}))
	<-rec.done

	assert.Equal(t, 2, rec.count())
}
