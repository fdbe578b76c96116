package analytics

import (
	"context"
	"sort"
	"time"

	"guildkeeper/internal/storage"
)

type Service struct {
	store storage.Store
}

func New(store storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
}

// EventCount is one row of a report ordered by frequency.
type EventCount struct {
	Event string
	Count int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
	}
	return report, nil
}

// TopEvents returns up to n events, most frequent first, ties by name.
func (r Report) TopEvents(n int) []EventCount {
	counts := make([]EventCount, 0, len(r.ByEvent))
	for event, count := range r.ByEvent {
		counts = append(counts, EventCount{Event: event, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Event < counts[j].Event
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
