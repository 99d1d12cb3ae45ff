package model

import (
	"fmt"
	"time"
)

const (
	MinPlaces     = 2
	MaxPlaces     = 5
	DefaultPlaces = 3
)

type Coords struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place is a single suggested destination. Coordinates are not range checked.
type Place struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Coords      Coords `json:"coords"`
}

// Recommendation is one prompt plus the places the service suggested for it.
// It is immutable once received; only create and delete exist.
type Recommendation struct {
	ID           int      `json:"id" validate:"gt=0"`
	Text         string   `json:"text" validate:"required"`
	Exclude      []string `json:"exclude"`
	NumPlaces    int      `json:"num_places"`
	ResponseJSON []Place  `json:"response_json" validate:"required,dive"`
	CreatedAt    string   `json:"created_at" validate:"required"`
}

type Stats struct {
	TotalRequests int     `json:"total_requests"`
	TodayRequests int     `json:"today_requests"`
	AveragePlaces float64 `json:"average_places"`
}

var createdAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// CreatedTime parses the server assigned timestamp. Timestamps without a zone are UTC.
func (r Recommendation) CreatedTime() (time.Time, bool) {
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// DisplayCreatedAt formats created_at for people, falling back to the raw value.
func (r Recommendation) DisplayCreatedAt(loc *time.Location) string {
	t, ok := r.CreatedTime()
	if !ok {
		return r.CreatedAt
	}

	if loc != nil {
		t = t.In(loc)
	}

	return t.Format("02.01.2006, 15:04:05")
}

func (c Coords) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Lat, c.Lng)
}

func ValidPlaceCount(n int) bool {
	return n >= MinPlaces && n <= MaxPlaces
}
