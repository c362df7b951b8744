package coil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockZeroValueUsable(t *testing.T) {
	var l Lock
	assert.False(t, l.Locked())
	l.Acquire()
	assert.True(t, l.Locked())
	l.Release()
	assert.False(t, l.Locked())
}

func TestLockReleaseWhenFreeIsNoop(t *testing.T) {
	var l Lock
	assert.NotPanics(t, func() { l.Release() })
	l.Acquire()
	l.Release()
	l.Release()
	assert.False(t, l.Locked())
}

func TestNotificationNotifyAllWakesEveryWaiter(t *testing.T) {
	n := NewNotification()
	order := make(chan int, 3)
	var wg sync.WaitGroup

	for i := 0; i < 3; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			n.Wait()
			order <- i
		}()
	}

	// Give the waiters a chance to enqueue in goroutine-start order. This
	// is inherently best-effort for ordering, so the assertion below only
	// checks that all three are woken, not their exact order.
	time.Sleep(50 * time.Millisecond)
	n.NotifyAll()
	wg.Wait()
	close(order)

	seen := map[int]bool{}
	for v := range order {
		seen[v] = true
	}
	assert.Len(t, seen, 3)
}

func TestNotifyOneWakesSingleWaiter(t *testing.T) {
	n := NewNotification()
	woke := make(chan struct{}, 2)

	for i := 0; i < 2; i++ {
		go func() {
			n.Wait()
			woke <- struct{}{}
		}()
	}
	time.Sleep(20 * time.Millisecond)

	n.NotifyOne()
	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("expected one waiter to wake")
	}
	select {
	case <-woke:
		t.Fatal("expected only one waiter to wake")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestEventSetClearWait(t *testing.T) {
	e := NewEvent()
	assert.False(t, e.IsSet())

	require.NoError(t, e.Set())
	assert.True(t, e.IsSet())
	assert.ErrorIs(t, e.Set(), ErrEventAlreadySet)

	e.Wait() // must return immediately

	require.NoError(t, e.Clear())
	assert.False(t, e.IsSet())
	assert.ErrorIs(t, e.Clear(), ErrEventNotSet)
}

func TestEventWaitBlocksUntilSet(t *testing.T) {
	e := NewEvent()
	done := make(chan struct{})
	go func() {
		e.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Wait returned before Set")
	case <-time.After(30 * time.Millisecond):
	}

	require.NoError(t, e.Set())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait never returned after Set")
	}
}

func TestSemaphoreLimitsConcurrency(t *testing.T) {
	sem := NewSemaphore(2)
	var active, maxActive int32
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem.Acquire()
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			sem.Release()
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, maxActive, int32(2))
	assert.Equal(t, 2, sem.Remaining())
}

func TestBarrierReleasesAllParticipantsTogether(t *testing.T) {
	const n = 5
	b := NewBarrier(n)
	var wg sync.WaitGroup
	released := make(chan int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			b.Push()
			released <- id
		}(i)
	}

	wg.Wait()
	close(released)
	count := 0
	for range released {
		count++
	}
	assert.Equal(t, n, count)
}

func TestBarrierIsCyclic(t *testing.T) {
	b := NewBarrier(2)
	var wg sync.WaitGroup
	for cycle := 0; cycle < 3; cycle++ {
		wg.Add(2)
		for i := 0; i < 2; i++ {
			go func() {
				defer wg.Done()
				b.Push()
			}()
		}
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("barrier did not complete three cycles")
	}
}

func TestQueuePolicyRaise(t *testing.T) {
	q := NewQueue(1, PolicyRaise)
	require.NoError(t, q.Add("a"))
	assert.ErrorIs(t, q.Add("b"), ErrQueueFull)
	assert.Equal(t, 1, q.Len())
}

func TestQueuePolicyDrop(t *testing.T) {
	q := NewQueue(1, PolicyDrop)
	require.NoError(t, q.Add("a"))
	require.NoError(t, q.Add("b"))
	assert.Equal(t, 1, q.Len())
	assert.Equal(t, "a", q.Pop())
}

func TestQueuePolicyBlockSuspendsUntilPop(t *testing.T) {
	q := NewQueue(1, PolicyBlock)
	require.NoError(t, q.Add("a"))

	addDone := make(chan struct{})
	go func() {
		require.NoError(t, q.Add("b"))
		close(addDone)
	}()

	select {
	case <-addDone:
		t.Fatal("blocking Add returned before room was made")
	case <-time.After(30 * time.Millisecond):
	}

	assert.Equal(t, "a", q.Pop())

	select {
	case <-addDone:
	case <-time.After(time.Second):
		t.Fatal("blocking Add never completed after Pop")
	}
	assert.Equal(t, 1, q.Len())
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue(0, PolicyRaise)
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Add(i))
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, i, q.Pop())
	}
}
