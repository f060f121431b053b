// Package series holds the rolling, time-aligned metric series that the
// dashboard renders. A Store is the single owner of DashboardState.
package series

import (
	"sync"
	"time"

	"github.com/rileyhilliard/stylesync/internal/logger"
	"github.com/rileyhilliard/stylesync/internal/snapshot"
)

// DefaultLabelFormat renders ingest instants as wall-clock time.
const DefaultLabelFormat = "15:04:05"

// Point is one ingested sample. Every series in DashboardState is a
// projection of the same ring of points, so they cannot drift apart.
type Point struct {
	Label  string
	At     time.Time
	CPU    float64
	Memory float64
	Disk   float64
}

// DashboardState is a read-only copy of the store contents.
type DashboardState struct {
	// Current is nil until the first snapshot is ingested.
	Current      *snapshot.MetricSnapshot
	CPUSeries    []float64
	LabelSeries  []string
	MemorySeries []float64
	DiskSeries   []float64
	// Ingested counts every Ingest since creation or the last Reset.
	Ingested  uint64
	UpdatedAt time.Time
}

// Loading reports whether no snapshot has arrived yet.
func (s DashboardState) Loading() bool {
	return s.Current == nil
}

// Store owns the current snapshot and the rolling series.
type Store struct {
	mu          sync.RWMutex
	points      *Ring[Point]
	current     *snapshot.MetricSnapshot
	ingested    uint64
	updatedAt   time.Time
	labelFormat string
	now         func() time.Time
	log         logger.Logger

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

// Option configures a Store.
type Option func(*Store)

// WithCapacity sets the window size. Values <= 0 keep DefaultCapacity.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.points = NewRing[Point](n)
		}
	}
}

// WithLabelFormat sets the time layout used for series labels.
func WithLabelFormat(layout string) Option {
	return func(s *Store) {
		if layout != "" {
			s.labelFormat = layout
		}
	}
}

// WithClock replaces time.Now as the source of ingest instants.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore creates an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		points:      NewRing[Point](DefaultCapacity),
		labelFormat: DefaultLabelFormat,
		now:         time.Now,
		log:         logger.Noop(),
		subs:        make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest replaces the current snapshot and appends one point labelled with
// the ingestion instant. When the window is full the oldest point is evicted
// from every series at once. Ingest never blocks on subscribers.
func (s *Store) Ingest(snap snapshot.MetricSnapshot) {
	at := s.now()

	s.mu.Lock()
	cur := snap
	s.current = &cur
	evicted := s.points.Push(Point{
		Label:  at.Format(s.labelFormat),
		At:     at,
		CPU:    snap.CPUPercent,
		Memory: snap.Memory.Percent,
		Disk:   snap.Disk.Percent,
	})
	s.ingested++
	s.updatedAt = at
	n := s.ingested
	s.mu.Unlock()

	s.log.Debug("ingest #%d cpu=%.1f evicted=%t", n, snap.CPUPercent, evicted)
	s.notify()
}

// Snapshot returns a copy of the current state. It is safe to call at any
// time, including before the first Ingest.
func (s *Store) Snapshot() DashboardState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pts := s.points.All()
	state := DashboardState{
		CPUSeries:    make([]float64, len(pts)),
		LabelSeries:  make([]string, len(pts)),
		MemorySeries: make([]float64, len(pts)),
		DiskSeries:   make([]float64, len(pts)),
		Ingested:     s.ingested,
		UpdatedAt:    s.updatedAt,
	}
	for i, p := range pts {
		state.CPUSeries[i] = p.CPU
		state.LabelSeries[i] = p.Label
		state.MemorySeries[i] = p.Memory
		state.DiskSeries[i] = p.Disk
	}
	if s.current != nil {
		cur := *s.current
		state.Current = &cur
	}
	return state
}

// Points returns the stored points in arrival order.
func (s *Store) Points() []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points.All()
}

// Reset clears the series and the current snapshot, then notifies.
func (s *Store) Reset() {
	s.mu.Lock()
	s.points.Clear()
	s.current = nil
	s.ingested = 0
	s.updatedAt = time.Time{}
	s.mu.Unlock()

	s.notify()
}

// Len returns the number of points in the window.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points.Len()
}

// Cap returns the window capacity.
func (s *Store) Cap() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.points.Cap()
}

// Subscribe registers for change notifications. The channel has a buffer of
// one and notifications coalesce: a reader that falls behind sees a single
// pending signal and should re-read Snapshot. The returned func unsubscribes
// and closes the channel; calling it more than once is safe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
