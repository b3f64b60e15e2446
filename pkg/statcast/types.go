// Package statcast provides the Baseball Savant statcast search client
// with retry handling, truncation detection, and typed failures, plus
// the shared data model for harvested pitch data.
package statcast

import (
	"fmt"
	"time"
)

// MaxSearchRows is the absolute per-request row ceiling enforced by the
// statcast search endpoint. Requests matching more rows than this are
// silently truncated at the cap.
const MaxSearchRows = 25000

// FirstMLBSeason is the first year of recorded MLB play.
const FirstMLBSeason = 1876

// Date is a calendar date (no time of day, no location).
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// ParseDate parses an ISO-8601 date string (2006-01-02).
func ParseDate(iso string) (Date, error) {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", iso, err)
	}
	return DateOf(t), nil
}

// DateOf truncates a time.Time to its calendar date.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Today returns the current calendar date in local time.
func Today() Date {
	return DateOf(time.Now())
}

// String returns the ISO-8601 form (2006-01-02).
func (d Date) String() string {
	return d.time().Format("2006-01-02")
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return d.time().Before(other.time())
}

// After reports whether d falls after other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.time().AddDate(0, 0, n))
}

func (d Date) time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start Date
	End   Date
}

// NewDateRange validates and builds a DateRange.
func NewDateRange(start, end Date) (DateRange, error) {
	r := DateRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks the Start <= End invariant.
func (r DateRange) Validate() error {
	if r.IsZero() {
		return nil
	}
	if r.End.Before(r.Start) {
		return fmt.Errorf("invalid date range: start %s is after end %s", r.Start, r.End)
	}
	return nil
}

// IsZero reports whether r is the zero (empty) range.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Days returns the number of calendar dates the range covers.
func (r DateRange) Days() int {
	if r.IsZero() {
		return 0
	}
	return int(r.End.time().Sub(r.Start.time()).Hours()/24) + 1
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Dates returns every date in the range in ascending order.
func (r DateRange) Dates() []Date {
	if r.IsZero() {
		return nil
	}
	dates := make([]Date, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		dates = append(dates, d)
	}
	return dates
}

// Halves splits the range into two halves at its midpoint. The second
// return is false when the range covers a single date and cannot be
// split further.
func (r DateRange) Halves() (DateRange, DateRange, bool) {
	days := r.Days()
	if days <= 1 {
		return DateRange{}, DateRange{}, false
	}
	mid := r.Start.AddDays(days/2 - 1)
	return DateRange{Start: r.Start, End: mid},
		DateRange{Start: mid.AddDays(1), End: r.End},
		true
}

// EventCategory distinguishes the two harvested pitch event classes.
type EventCategory string

const (
	// CategoryNonBBE covers pitches that did not put a ball in play.
	// Their data is static once the date's games are final.
	CategoryNonBBE EventCategory = "NonBBE"

	// CategoryBBE covers batted ball events, whose derived statistics
	// are recalculated as the season's batted balls accumulate.
	CategoryBBE EventCategory = "BBE"
)

// GameType is a single-letter statsapi game type code.
type GameType string

const (
	GameTypePreseason GameType = "S"
	GameTypeRegular   GameType = "R"
	GameTypeWildcard  GameType = "F"
	GameTypeDivSeries GameType = "D"
	GameTypeLCS       GameType = "L"
	GameTypeWS        GameType = "W"
)

// GameTypes lists all recognized game type codes.
func GameTypes() []GameType {
	return []GameType{
		GameTypePreseason,
		GameTypeRegular,
		GameTypeWildcard,
		GameTypeDivSeries,
		GameTypeLCS,
		GameTypeWS,
	}
}

// ParseGameType validates a game type code string.
func ParseGameType(code string) (GameType, error) {
	gt := GameType(code)
	if gt.Word() == "Unknown" {
		return "", fmt.Errorf("%q is not a recognized game type code", code)
	}
	return gt, nil
}

// Word converts the code to its full word form, used in file names.
func (g GameType) Word() string {
	switch g {
	case GameTypePreseason:
		return "Preseason"
	case GameTypeRegular:
		return "Regular"
	case GameTypeWildcard:
		return "Wildcard"
	case GameTypeDivSeries:
		return "DivisionSeries"
	case GameTypeLCS:
		return "LeagueChampionshipSeries"
	case GameTypeWS:
		return "WorldSeries"
	default:
		return "Unknown"
	}
}

// IsValidSeason checks that a year falls in the range of MLB history.
// The statsapi has no data for any year beyond next year.
func IsValidSeason(season int) bool {
	return season >= FirstMLBSeason && season <= time.Now().Year()+1
}

// DayCounts holds the statcast pitch counts for one game date, as
// reported by the grouped pitch-count search. Pitches is the total
// event count; BBE the batted-ball subset.
type DayCounts struct {
	Pitches int
	BBE     int
}

// NonBBE returns the non-batted-ball event count for the day.
func (c DayCounts) NonBBE() int {
	return c.Pitches - c.BBE
}

// PitchRecord is one row of statcast search output. The identifying
// columns are parsed out; everything else rides along in Fields as an
// opaque payload.
type PitchRecord struct {
	GamePK      int
	AtBat       int
	PitchNumber int
	GameDate    Date
	Description string

	// Fields is the full raw CSV row, in header order.
	Fields []string
}

// ID derives the stable unique identifier for the pitch.
func (r PitchRecord) ID() string {
	return fmt.Sprintf("%d-%d-%d", r.GamePK, r.AtBat, r.PitchNumber)
}

// IsBBE reports whether the pitch was hit into play.
func (r PitchRecord) IsBBE() bool {
	return r.Description == descriptionHitIntoPlay
}

const descriptionHitIntoPlay = "hit_into_play"
