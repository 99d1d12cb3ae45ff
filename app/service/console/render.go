package console

import (
	"fmt"
	"io"
	"strings"
	"travelchat/app/model"
)

const helpText = `Type a request and press Enter to send it. End a line with \ to keep writing.
  /chat          show this session's recommendations
  /history       show saved recommendations
  /more          load the next page of history
  /places N      places per request (2-5)
  /clear         clear this session's list (saved history is kept)
  /delete ID     delete a saved recommendation
  /show ID       show one recommendation
  /search TEXT   search saved requests
  /stats         request statistics
  /quit          exit`

func (s *Service) ShowChat(items []model.Recommendation, draft string, places int, pending bool) {
	var b strings.Builder

	fmt.Fprintf(&b, "== Chat (%d) ==\n", len(items))
	if len(items) == 0 {
		b.WriteString("Describe a trip and get place suggestions.\n")
	}
	for _, rec := range items {
		s.writeRecommendation(&b, rec)
	}

	switch {
	case pending:
		b.WriteString("... looking for places\n")
	case draft != "":
		fmt.Fprintf(&b, "draft (%d places): %s\n", places, draft)
	default:
		fmt.Fprintf(&b, "places per request: %d\n", places)
	}

	s.write(b.String())
}

func (s *Service) ShowHistory(items []model.Recommendation, loading bool) {
	var b strings.Builder

	fmt.Fprintf(&b, "== History (%d) ==\n", len(items))
	switch {
	case loading:
		b.WriteString("... loading\n")
	case len(items) == 0:
		b.WriteString("History is empty.\n")
	}
	for _, rec := range items {
		s.writeRecommendation(&b, rec)
	}

	s.write(b.String())
}

func (s *Service) ShowOne(rec model.Recommendation) {
	var b strings.Builder
	s.writeRecommendation(&b, rec)
	s.write(b.String())
}

func (s *Service) ShowFound(query string, items []model.Recommendation) {
	var b strings.Builder

	fmt.Fprintf(&b, "== Search %q (%d) ==\n", query, len(items))
	for _, rec := range items {
		s.writeRecommendation(&b, rec)
	}

	s.write(b.String())
}

func (s *Service) ShowStats(stats model.Stats) {
	s.write(fmt.Sprintf("Total requests: %d\nToday: %d\nAverage places: %.2f\n",
		stats.TotalRequests, stats.TodayRequests, stats.AveragePlaces))
}

func (s *Service) ShowHelp() {
	s.write(helpText + "\n")
}

func (s *Service) Notice(msg string) {
	s.write("* " + msg + "\n")
}

func (s *Service) writeRecommendation(w io.Writer, rec model.Recommendation) {
	fmt.Fprintf(w, "#%d  %s\n", rec.ID, rec.DisplayCreatedAt(s.loc))
	fmt.Fprintf(w, "  > %s\n", strings.ReplaceAll(rec.Text, "\n", "\n    "))
	if len(rec.Exclude) > 0 {
		fmt.Fprintf(w, "  excluded: %s\n", strings.Join(rec.Exclude, ", "))
	}
	for i, place := range rec.ResponseJSON {
		fmt.Fprintf(w, "  %d. %s (%s)\n", i+1, place.Name, place.Coords)
		if place.Description != "" {
			fmt.Fprintf(w, "     %s\n", place.Description)
		}
	}
}

func (s *Service) write(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	io.WriteString(s.out, text)
}
