package ports

import "github.com/oktal/photon/internal/domain"

type QueuedPoint struct {
	ID    WALEntryID
	Point *domain.Point
}

type PointQueue interface {
	Enqueue(id WALEntryID, p *domain.Point) bool
	DequeueBatch(max int) []QueuedPoint
	Len() int
}
