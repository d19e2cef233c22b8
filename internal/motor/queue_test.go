package motor

import (
	"context"
	"sync"
	"testing"
	"time"
)

// recordingController collects applied speed sets and signals each apply.
type recordingController struct {
	mu      sync.Mutex
	applied []Speeds
	signal  chan struct{}
}

func newRecordingController() *recordingController {
	return &recordingController{signal: make(chan struct{}, 128)}
}

func (c *recordingController) UpdateSpeeds(s Speeds) error {
	c.mu.Lock()
	c.applied = append(c.applied, s)
	c.mu.Unlock()
	c.signal <- struct{}{}
	return nil
}

func (c *recordingController) snapshot() []Speeds {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Speeds, len(c.applied))
	copy(out, c.applied)
	return out
}

func (c *recordingController) waitForApplies(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.signal:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for apply %d of %d", i+1, n)
		}
	}
}

func TestQueueAppliesInFIFOOrder(t *testing.T) {
	q := NewQueue()
	driver := newRecordingController()

	want := []Speeds{
		{10, 0, 0, 0},
		{0, -90, 0, 0},
		{0, 0, 100, 100},
	}
	for _, s := range want {
		q.Enqueue(s)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, driver)
	}()

	driver.waitForApplies(t, len(want))
	cancel()
	<-done

	got := driver.snapshot()
	if len(got) != len(want) {
		t.Fatalf("applied %d updates, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("apply %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestQueueMultipleProducers(t *testing.T) {
	q := NewQueue()
	driver := newRecordingController()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = q.Run(ctx, driver)
	}()

	const perProducer = 10
	var wg sync.WaitGroup
	for p := 0; p < 3; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Speeds{Forward: p*100 + i})
			}
		}(p)
	}
	wg.Wait()

	driver.waitForApplies(t, 3*perProducer)
	cancel()
	<-done

	// Per-producer order must be preserved even though producers interleave.
	got := driver.snapshot()
	last := map[int]int{0: -1, 1: -1, 2: -1}
	for _, s := range got {
		p, i := s[Forward]/100, s[Forward]%100
		if i <= last[p] {
			t.Fatalf("producer %d updates reordered: %d after %d", p, i, last[p])
		}
		last[p] = i
	}
}

func TestQueueStopExitsCleanly(t *testing.T) {
	q := NewQueue()
	driver := newRecordingController()

	done := make(chan error, 1)
	go func() {
		done <- q.Run(context.Background(), driver)
	}()

	q.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() after Stop = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not exit after Stop")
	}

	// Stop is idempotent.
	q.Stop()
}

// stallingController parks its first apply until released, like a serial
// driver mid-write.
type stallingController struct {
	recordingController
	entered chan struct{}
	release chan struct{}
	first   sync.Once
}

func newStallingController() *stallingController {
	c := stallingController{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c.signal = make(chan struct{}, 128)
	return &c
}

func (c *stallingController) UpdateSpeeds(s Speeds) error {
	c.first.Do(func() {
		close(c.entered)
		<-c.release
	})
	return c.recordingController.UpdateSpeeds(s)
}

func TestQueueDrainsPendingAtShutdown(t *testing.T) {
	q := NewQueue()
	driver := newStallingController()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- q.Run(ctx, driver)
	}()

	// The consumer picks up the dive command and stalls inside the driver
	// while the shutdown sequence enqueues the fail-safe zero and cancels.
	dive := Speeds{Front: 100, Back: 100}
	q.Enqueue(dive)
	select {
	case <-driver.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer never reached the driver")
	}
	q.Enqueue(Zero)
	cancel()
	close(driver.release)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not exit after cancel")
	}

	got := driver.snapshot()
	if len(got) != 2 || got[0] != dive || got[1] != Zero {
		t.Fatalf("applied %v, want [%v %v]", got, dive, Zero)
	}
}

func TestQueueEnqueueNeverBlocks(t *testing.T) {
	q := NewQueue()

	// No consumer running: fill well past capacity and expect no deadlock.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < defaultQueueCapacity*4; i++ {
			q.Enqueue(Speeds{Forward: i})
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue blocked with no consumer")
	}
}
