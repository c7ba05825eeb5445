package schedule

import (
	"sync"
	"time"

	"github.com/kilianp07/hems/core/model"
)

// MemoryStore is the in-process Store implementation. It backs tests and
// deployments that do not need persistence across restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[int]model.ScheduleEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[int]model.ScheduleEntry{}}
}

func (s *MemoryStore) Schedule(date string) (map[int]model.ScheduleEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int]model.ScheduleEntry, len(s.data[date]))
	for h, e := range s.data[date] {
		out[h] = e
	}
	return out, nil
}

func (s *MemoryStore) Hour(date string, hour int) (model.ScheduleEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[date][hour]
	return e, ok, nil
}

func (s *MemoryStore) Set(entry model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set(entry)
	return nil
}

func (s *MemoryStore) set(entry model.ScheduleEntry) {
	day := s.data[entry.Date]
	if day == nil {
		day = map[int]model.ScheduleEntry{}
		s.data[entry.Date] = day
	}
	day[entry.Hour] = entry
}

func (s *MemoryStore) ClearHour(date string, hour int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if day, ok := s.data[date]; ok {
		delete(day, hour)
		if len(day) == 0 {
			delete(s.data, date)
		}
	}
	return nil
}

func (s *MemoryStore) ClearDate(date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, date)
	return nil
}

func (s *MemoryStore) SetManual(date string, hour int, manual bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.data[date][hour]; ok {
		e.Manual = manual
		s.data[date][hour] = e
	}
	return nil
}

func (s *MemoryStore) ManualHours(date string) (map[int]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[int]bool{}
	for h, e := range s.data[date] {
		if e.Manual {
			out[h] = true
		}
	}
	return out, nil
}

func (s *MemoryStore) ReplaceAuto(dates []string, entries []model.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, date := range dates {
		day := s.data[date]
		for h, e := range day {
			if !e.Manual {
				delete(day, h)
			}
		}
		if len(day) == 0 {
			delete(s.data, date)
		}
	}
	for _, e := range entries {
		if cur, ok := s.data[e.Date][e.Hour]; ok && cur.Manual {
			continue
		}
		e.Manual = false
		s.set(e)
	}
	return nil
}

func (s *MemoryStore) Cleanup(cutoff time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	limit := cutoff.Format(model.DateLayout)
	for date := range s.data {
		// ISO dates compare lexicographically; malformed keys are dropped too.
		if _, err := time.Parse(model.DateLayout, date); err != nil || date < limit {
			delete(s.data, date)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }
