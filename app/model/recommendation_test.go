package model

import (
	"testing"
	"time"
)

func TestDisplayCreatedAt(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"2025-03-14T09:26:53.589793+00:00", "14.03.2025, 09:26:53"},
		{"2025-03-14T09:26:53Z", "14.03.2025, 09:26:53"},
		{"2025-03-14T09:26:53.589793", "14.03.2025, 09:26:53"},
		{"2025-03-14 09:26:53+00:00", "14.03.2025, 09:26:53"},
		{"yesterday", "yesterday"},
	}

	for _, tc := range cases {
		rec := Recommendation{CreatedAt: tc.raw}
		if got := rec.DisplayCreatedAt(time.UTC); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.raw, tc.want, got)
		}
	}
}

func TestCoordsString(t *testing.T) {
	c := Coords{Lat: 41.890210, Lng: 12.492231}
	if got := c.String(); got != "41.8902, 12.4922" {
		t.Fatalf("unexpected coords: %s", got)
	}
}

func TestValidPlaceCount(t *testing.T) {
	for n := 0; n <= 6; n++ {
		want := n >= 2 && n <= 5
		if ValidPlaceCount(n) != want {
			t.Fatalf("ValidPlaceCount(%d) != %v", n, want)
		}
	}
}
