package sandbox

import (
	"math"
	"strings"
	"sync"
	"time"
	"travelchat/app/model"

	"github.com/elliotchance/pie/v2"
)

// store keeps recommendations in creation order. Reads return newest first.
type store struct {
	mu      sync.RWMutex
	records []model.Recommendation
	created map[int]time.Time
	nextID  int
}

func newStore() *store {
	return &store{
		created: make(map[int]time.Time),
		nextID:  1,
	}
}

func (s *store) add(text string, exclude []string, numPlaces int, places []model.Place, now time.Time) model.Recommendation {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.Recommendation{
		ID:           s.nextID,
		Text:         text,
		Exclude:      append([]string{}, exclude...),
		NumPlaces:    numPlaces,
		ResponseJSON: append([]model.Place{}, places...),
		CreatedAt:    now.UTC().Format(time.RFC3339Nano),
	}
	s.nextID++
	s.records = append(s.records, rec)
	s.created[rec.ID] = now.UTC()

	return cloneRecommendation(rec)
}

func (s *store) page(limit, offset int) []model.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Recommendation, 0, limit)
	for i := len(s.records) - 1 - offset; i >= 0 && len(result) < limit; i-- {
		result = append(result, cloneRecommendation(s.records[i]))
	}

	return result
}

func (s *store) recent(n int) []model.Recommendation {
	return s.page(n, 0)
}

func (s *store) get(id int) (model.Recommendation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexLocked(id)
	if i < 0 {
		return model.Recommendation{}, false
	}

	return cloneRecommendation(s.records[i]), true
}

func (s *store) remove(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false
	}

	s.records = append(s.records[:i], s.records[i+1:]...)
	delete(s.created, id)

	return true
}

// search matches term case-insensitively against the request text.
func (s *store) search(term string, limit int) []model.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	term = strings.ToLower(term)
	matches := pie.Filter(s.records, func(rec model.Recommendation) bool {
		return strings.Contains(strings.ToLower(rec.Text), term)
	})

	result := make([]model.Recommendation, 0, min(limit, len(matches)))
	for i := len(matches) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, cloneRecommendation(matches[i]))
	}

	return result
}

func (s *store) stats(now time.Time) model.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result model.Stats
	if len(s.records) == 0 {
		return result
	}

	today := now.UTC().Format(time.DateOnly)
	total := 0
	for _, rec := range s.records {
		total += rec.NumPlaces
		if s.created[rec.ID].Format(time.DateOnly) == today {
			result.TodayRequests++
		}
	}

	result.TotalRequests = len(s.records)
	result.AveragePlaces = math.Round(float64(total)/float64(len(s.records))*100) / 100

	return result
}

func (s *store) indexLocked(id int) int {
	return pie.FindFirstUsing(s.records, func(rec model.Recommendation) bool {
		return rec.ID == id
	})
}

func cloneRecommendation(rec model.Recommendation) model.Recommendation {
	rec.Exclude = append([]string{}, rec.Exclude...)
	rec.ResponseJSON = append([]model.Place{}, rec.ResponseJSON...)
	return rec
}
