package stats

import (
	"fmt"
	"strings"
	"sync"

	"github.com/discogram/discogram/pkg/bus"
)

// Outcome is how processing of one inbound event ended.
type Outcome string

const (
	Relayed  Outcome = "relayed"
	Filtered Outcome = "filtered"
	Ignored  Outcome = "ignored"
	Failed   Outcome = "failed"
)

// Aggregate holds the counters for one direction of the bridge.
type Aggregate struct {
	Events      int
	Relayed     int
	Filtered    int
	Ignored     int
	Failed      int
	Attachments int
	Dropped     int
}

// Store keeps relay counters in memory, keyed by source platform.
type Store struct {
	mu   sync.RWMutex
	aggs map[bus.Platform]Aggregate
}

func NewStore() *Store {
	return &Store{aggs: make(map[bus.Platform]Aggregate)}
}

// Record counts one finished event. attachments is the number of items
// handed to the destination, dropped the number cut by limits.
func (s *Store) Record(from bus.Platform, outcome Outcome, attachments, dropped int) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	agg := s.aggs[from]
	agg.Events++
	switch outcome {
	case Relayed:
		agg.Relayed++
	case Filtered:
		agg.Filtered++
	case Ignored:
		agg.Ignored++
	case Failed:
		agg.Failed++
	}
	agg.Attachments += attachments
	agg.Dropped += dropped
	s.aggs[from] = agg
}

func (s *Store) Get(from bus.Platform) Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aggs[from]
}

// Summary renders one line per direction, e.g.
// "discord->telegram relayed=1,204 filtered=9 ignored=3 failed=2 attachments=310 dropped=0".
func (s *Store) Summary() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines := make([]string, 0, 2)
	for _, from := range []bus.Platform{bus.Discord, bus.Telegram} {
		agg, ok := s.aggs[from]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s->%s relayed=%s filtered=%s ignored=%s failed=%s attachments=%s dropped=%s",
			from, from.Opposite(),
			GroupedInt(agg.Relayed),
			GroupedInt(agg.Filtered),
			GroupedInt(agg.Ignored),
			GroupedInt(agg.Failed),
			GroupedInt(agg.Attachments),
			GroupedInt(agg.Dropped),
		))
	}
	if len(lines) == 0 {
		return "no events"
	}
	return strings.Join(lines, "\n")
}
