// Package crawler implements the breadth-first web crawl: a deduplicating
// frontier, URL admission filters, robots.txt handling, page renderers, and
// the per-job driver loop.
package crawler

import (
	"container/heap"
	"context"
	"sync"
)

// Item is one admitted URL waiting to be fetched.
type Item struct {
	URL       string
	Depth     int
	ParentURL string

	seq uint64
}

// itemHeap orders by depth, then admission sequence, which yields
// breadth-first order even with concurrent producers.
type itemHeap []Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Depth != h[j].Depth {
		return h[i].Depth < h[j].Depth
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Frontier is the crawl queue. Each URL is admitted once (first enqueuer
// wins), so the queue never holds more than one item per distinct URL; that
// dedup set is the memory bound. Admission never blocks: crawl workers both
// produce and consume, and a worker waiting for queue space could be the
// only consumer left. Next returns false once the queue is empty and no
// admitted item is still in flight, which is the drain signal for the
// worker pool.
type Frontier struct {
	mu       sync.Mutex
	notEmpty *sync.Cond

	queue   itemHeap
	seen    map[string]struct{}
	nextSeq uint64
	// inflight counts admitted items not yet marked Done.
	inflight int
	closed   bool
}

// NewFrontier creates a frontier. sizeHint presizes the queue allocation.
func NewFrontier(sizeHint int) *Frontier {
	if sizeHint < 1 {
		sizeHint = 1
	}
	f := &Frontier{
		queue: make(itemHeap, 0, sizeHint),
		seen:  make(map[string]struct{}),
	}
	f.notEmpty = sync.NewCond(&f.mu)
	return f
}

// Add admits the URL unless it was seen before. It never blocks and returns
// false for duplicates, a closed frontier, or a cancelled context. A URL
// rejected for cancellation is not marked seen.
func (f *Frontier) Add(ctx context.Context, url string, depth int, parentURL string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed || ctx.Err() != nil {
		return false
	}
	if _, ok := f.seen[url]; ok {
		return false
	}
	f.seen[url] = struct{}{}

	f.nextSeq++
	heap.Push(&f.queue, Item{URL: url, Depth: depth, ParentURL: parentURL, seq: f.nextSeq})
	f.inflight++
	f.notEmpty.Signal()
	return true
}

// Next blocks for the next item. It returns false when the frontier has
// drained (empty queue, nothing in flight) or was closed.
func (f *Frontier) Next() (Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for len(f.queue) == 0 && f.inflight > 0 && !f.closed {
		f.notEmpty.Wait()
	}
	if f.closed || len(f.queue) == 0 {
		return Item{}, false
	}

	item := heap.Pop(&f.queue).(Item)
	return item, true
}

// Done marks one previously dequeued item as fully processed. The last Done
// with an empty queue releases every blocked Next.
func (f *Frontier) Done() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--
	if f.inflight == 0 {
		f.notEmpty.Broadcast()
	}
}

// Close releases every waiter; pending items are dropped.
func (f *Frontier) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.notEmpty.Broadcast()
}
