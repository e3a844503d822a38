package storage

import "clpool/internal/model"

// Storage defines a sink for engine events and pool registry records.
type Storage interface {
	PutEventBatch(events []model.EventRecord) error
	PutPoolBatch(pools []model.Pool) error
}
