// Package schedule retrieves MLB season schedules from the public
// statsapi and answers the planning questions the harvester asks:
// which dates have games, whether a date's games are final, and
// whether a season is over.
package schedule

import (
	"sort"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// GameDay is one date on a season schedule.
type GameDay struct {
	Date       statcast.Date
	TotalGames int
	FinalGames int
}

// Final reports whether every game on the date reached final status.
func (d GameDay) Final() bool {
	return d.TotalGames > 0 && d.FinalGames == d.TotalGames
}

// Season is the schedule for one year and game type.
type Season struct {
	Year     int
	GameType statcast.GameType
	Days     []GameDay
}

// sortDays keeps Days in ascending date order.
func (s *Season) sortDays() {
	sort.Slice(s.Days, func(i, j int) bool {
		return s.Days[i].Date.Before(s.Days[j].Date)
	})
}

// OpeningDay returns the first scheduled game date.
func (s *Season) OpeningDay() (statcast.Date, bool) {
	if len(s.Days) == 0 {
		return statcast.Date{}, false
	}
	return s.Days[0].Date, true
}

// LastScheduledDay returns the final scheduled game date.
func (s *Season) LastScheduledDay() (statcast.Date, bool) {
	if len(s.Days) == 0 {
		return statcast.Date{}, false
	}
	return s.Days[len(s.Days)-1].Date, true
}

// Day looks up the schedule entry for a date.
func (s *Season) Day(d statcast.Date) (GameDay, bool) {
	for _, day := range s.Days {
		if day.Date == d {
			return day, true
		}
	}
	return GameDay{}, false
}

// HasGames reports whether any games are scheduled on the date.
func (s *Season) HasGames(d statcast.Date) bool {
	_, ok := s.Day(d)
	return ok
}

// FinalOn reports whether the date's games have all reached final
// status. Dates with no scheduled games report false.
func (s *Season) FinalOn(d statcast.Date) bool {
	day, ok := s.Day(d)
	return ok && day.Final()
}

// MostRecentFinal returns the latest date whose games are all final.
func (s *Season) MostRecentFinal() (statcast.Date, bool) {
	for i := len(s.Days) - 1; i >= 0; i-- {
		if s.Days[i].Final() {
			return s.Days[i].Date, true
		}
	}
	return statcast.Date{}, false
}

// CompletedRange returns opening day through the most recent final
// date, the widest range with settled data. Empty when nothing has
// completed yet.
func (s *Season) CompletedRange() statcast.DateRange {
	open, ok := s.OpeningDay()
	if !ok {
		return statcast.DateRange{}
	}
	last, ok := s.MostRecentFinal()
	if !ok {
		return statcast.DateRange{}
	}
	return statcast.DateRange{Start: open, End: last}
}

// Closed reports whether the season is over and its trailing grace
// window has elapsed. While a season is open (or within the grace
// window, when the provider may still recalculate derived statistics)
// cumulative batted-ball data must be refreshed on every run.
func (s *Season) Closed(today statcast.Date, graceDays int) bool {
	last, ok := s.LastScheduledDay()
	if !ok {
		return false
	}
	for _, day := range s.Days {
		if !day.Final() {
			return false
		}
	}
	return today.After(last.AddDays(graceDays))
}
