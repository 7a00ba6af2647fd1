// Package snapshot hands each completed ranked view to consumers.
package snapshot

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"BlockScreener/internal/model"
)

// Snapshot is one published ranked view. It must not be mutated.
type Snapshot struct {
	ID          string            `json:"id"`
	Block       string            `json:"block"`
	Rows        []model.RankedRow `json:"rows"`
	Stats       model.CycleStats  `json:"stats"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Publisher keeps the latest snapshot and offers it on a single-slot
// channel. A slow consumer only ever sees the newest view.
type Publisher struct {
	mu     sync.RWMutex
	latest *Snapshot
	ch     chan *Snapshot

	subMu sync.Mutex
	subs  map[chan *Snapshot]struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{
		ch:   make(chan *Snapshot, 1),
		subs: make(map[chan *Snapshot]struct{}),
	}
}

// Publish copies rows into a new snapshot and makes it the latest.
func (p *Publisher) Publish(block string, rows []model.RankedRow, stats model.CycleStats) *Snapshot {
	cp := make([]model.RankedRow, len(rows))
	copy(cp, rows)
	s := &Snapshot{
		ID:          uuid.NewString(),
		Block:       block,
		Rows:        cp,
		Stats:       stats,
		GeneratedAt: time.Now(),
	}

	p.mu.Lock()
	p.latest = s
	p.mu.Unlock()

	offer(p.ch, s)
	p.subMu.Lock()
	for sub := range p.subs {
		offer(sub, s)
	}
	p.subMu.Unlock()
	return s
}

// Updates is the primary single-slot stream.
func (p *Publisher) Updates() <-chan *Snapshot { return p.ch }

// Latest returns the most recent snapshot, or nil before the first publish.
func (p *Publisher) Latest() *Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest
}

// Subscribe registers an extra single-slot stream, e.g. for a websocket
// client. The returned func unregisters it.
func (p *Publisher) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)
	p.subMu.Lock()
	p.subs[ch] = struct{}{}
	p.subMu.Unlock()
	if s := p.Latest(); s != nil {
		offer(ch, s)
	}
	return ch, func() {
		p.subMu.Lock()
		delete(p.subs, ch)
		p.subMu.Unlock()
	}
}

// offer replaces any unconsumed value in a one-slot channel.
func offer(ch chan *Snapshot, s *Snapshot) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
