package storage

import (
	"github.com/san-kum/haptix/internal/device"
)

// SessionSink buffers a run in memory and saves it on Flush.
type SessionSink struct {
	store   *Store
	meta    RunMetadata
	records []device.Record
	summary func() map[string]float64
	id      string
}

// NewSessionSink saves into store with meta as the run's metadata.
// summary, if not nil, supplies the metrics stored with the run.
func NewSessionSink(store *Store, meta RunMetadata, summary func() map[string]float64) *SessionSink {
	return &SessionSink{store: store, meta: meta, summary: summary}
}

func (s *SessionSink) Append(r device.Record) {
	s.records = append(s.records, r)
}

func (s *SessionSink) Flush() error {
	if s.summary != nil {
		s.meta.Metrics = s.summary()
	}
	id, err := s.store.Save(s.meta, s.records)
	if err != nil {
		return err
	}
	s.id = id
	s.meta.ID = id
	return nil
}

// ID is the saved run's ID, empty before the first Flush.
func (s *SessionSink) ID() string { return s.id }

func (s *SessionSink) Len() int { return len(s.records) }
