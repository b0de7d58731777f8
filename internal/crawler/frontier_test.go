package crawler

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestFrontierBreadthFirstOrder(t *testing.T) {
	f := NewFrontier(10)
	ctx := context.Background()

	f.Add(ctx, "https://a.test/deep", 2, "")
	f.Add(ctx, "https://a.test/", 0, "")
	f.Add(ctx, "https://a.test/shallow", 1, "")

	want := []string{"https://a.test/", "https://a.test/shallow", "https://a.test/deep"}
	for _, expected := range want {
		item, ok := f.Next()
		if !ok {
			t.Fatalf("frontier drained before %q", expected)
		}
		if item.URL != expected {
			t.Fatalf("got %q, want %q", item.URL, expected)
		}
		f.Done()
	}
}

func TestFrontierSameDepthIsAdmissionOrder(t *testing.T) {
	f := NewFrontier(10)
	ctx := context.Background()

	urls := []string{"https://a.test/1", "https://a.test/2", "https://a.test/3"}
	for _, u := range urls {
		f.Add(ctx, u, 1, "")
	}
	for _, expected := range urls {
		item, _ := f.Next()
		if item.URL != expected {
			t.Fatalf("got %q, want %q", item.URL, expected)
		}
		f.Done()
	}
}

func TestFrontierFirstEnqueuerWins(t *testing.T) {
	f := NewFrontier(10)
	ctx := context.Background()

	if !f.Add(ctx, "https://a.test/", 0, "") {
		t.Fatal("first add rejected")
	}
	if f.Add(ctx, "https://a.test/", 3, "") {
		t.Fatal("duplicate add accepted")
	}

	item, _ := f.Next()
	if item.Depth != 0 {
		t.Fatalf("depth = %d, want the first enqueuer's 0", item.Depth)
	}
}

func TestFrontierDrainReleasesWorkers(t *testing.T) {
	f := NewFrontier(10)
	ctx := context.Background()
	f.Add(ctx, "https://a.test/", 0, "")

	var wg sync.WaitGroup
	results := make(chan bool, 6)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				_, ok := f.Next()
				results <- ok
				if !ok {
					return
				}
				f.Done()
			}
		}()
	}
	wg.Wait()

	got := 0
	close(results)
	for ok := range results {
		if ok {
			got++
		}
	}
	if got != 1 {
		t.Fatalf("delivered %d items, want 1", got)
	}
}

func TestFrontierAddBeyondSizeHintDoesNotBlock(t *testing.T) {
	f := NewFrontier(1)
	ctx := context.Background()

	added := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			f.Add(ctx, "https://a.test/"+string(rune('a'+i)), 0, "")
		}
		close(added)
	}()

	select {
	case <-added:
	case <-time.After(time.Second):
		t.Fatal("producer blocked with no consumer running")
	}

	for i := 0; i < 5; i++ {
		if _, ok := f.Next(); !ok {
			t.Fatalf("frontier drained after %d of 5 items", i)
		}
		f.Done()
	}
}

func TestFrontierAddHonorsCancelledContext(t *testing.T) {
	f := NewFrontier(1)
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	if f.Add(cancelled, "https://a.test/", 0, "") {
		t.Fatal("add accepted under a cancelled context")
	}
	// The rejected URL stays admissible for a live producer.
	if !f.Add(context.Background(), "https://a.test/", 0, "") {
		t.Fatal("url rejected for cancellation was marked seen")
	}
}

// A lone worker is producer and consumer at once; enqueuing links must not
// depend on another worker draining the queue.
func TestFrontierSingleWorkerDrainsWhileProducing(t *testing.T) {
	f := NewFrontier(1)
	ctx := context.Background()
	f.Add(ctx, "https://a.test/0", 0, "")

	processed := make(chan int)
	go func() {
		count := 0
		for {
			item, ok := f.Next()
			if !ok {
				processed <- count
				return
			}
			count++
			if item.Depth < 2 {
				f.Add(ctx, item.URL+"/l", item.Depth+1, item.URL)
				f.Add(ctx, item.URL+"/r", item.Depth+1, item.URL)
			}
			f.Done()
		}
	}()

	select {
	case count := <-processed:
		// Full binary tree of depth 2: 1 + 2 + 4 pages.
		if count != 7 {
			t.Fatalf("processed %d pages, want 7", count)
		}
	case <-time.After(time.Second):
		t.Fatal("single worker deadlocked while enqueuing links")
	}
}

func TestFrontierCloseUnblocks(t *testing.T) {
	f := NewFrontier(10)
	f.Add(context.Background(), "https://a.test/", 0, "")
	f.Next()

	done := make(chan bool)
	go func() {
		// Queue is empty with one item in flight, so this blocks until Close.
		_, ok := f.Next()
		done <- ok
	}()

	select {
	case <-done:
		t.Fatal("Next returned before Close")
	case <-time.After(50 * time.Millisecond):
	}

	f.Close()
	if ok := <-done; ok {
		t.Fatal("Next reported an item after Close")
	}
}
