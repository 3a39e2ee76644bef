package queue

import (
	"sync"

	"github.com/oktal/photon/internal/domain"
	"github.com/oktal/photon/internal/ports"
)

// MemQueue is a bounded in-memory queue that preserves FIFO ordering between
// the collection and ingest sides of the pipeline.
type MemQueue struct {
	mu   sync.Mutex
	data []ports.QueuedPoint
	cap  int
}

func NewMemQueue(capacity int) *MemQueue {
	return &MemQueue{
		data: make([]ports.QueuedPoint, 0, capacity),
		cap:  capacity,
	}
}

func (q *MemQueue) Enqueue(id ports.WALEntryID, p *domain.Point) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedPoint{ID: id, Point: p})
	return true
}

func (q *MemQueue) DequeueBatch(max int) []ports.QueuedPoint {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedPoint, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.PointQueue = (*MemQueue)(nil)
