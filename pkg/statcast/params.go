package statcast

import (
	"net/url"
	"strings"
)

// paramDelimiter separates multi-value filter codes in the statcast
// search query dialect (url-encoded as %7C).
const paramDelimiter = "|"

// SeasonTypes mirrors the 'Season Type' filters of the statcast search
// page. All fields false means no filter, which the endpoint treats the
// same as all fields true.
type SeasonTypes struct {
	Regular            bool
	Playoffs           bool
	Wildcard           bool
	DivisionSeries     bool
	LeagueChampionship bool
	WorldSeries        bool
	SpringTraining     bool
}

// SeasonTypesForGameType builds a single-type filter from a statsapi
// game type code. An unrecognized code yields the unfiltered value.
func SeasonTypesForGameType(gt GameType) SeasonTypes {
	return SeasonTypes{
		Regular:            gt == GameTypeRegular,
		Wildcard:           gt == GameTypeWildcard,
		DivisionSeries:     gt == GameTypeDivSeries,
		LeagueChampionship: gt == GameTypeLCS,
		WorldSeries:        gt == GameTypeWS,
		SpringTraining:     gt == GameTypePreseason,
	}
}

// encode produces the hfGT query value, e.g. "R|" or "W|".
func (s SeasonTypes) encode() string {
	var b strings.Builder
	if s.Regular {
		b.WriteString(string(GameTypeRegular) + paramDelimiter)
	}
	if s.Playoffs {
		// There is no statsapi gameType code for 'playoffs'.
		b.WriteString("PO" + paramDelimiter)
	}
	if s.Wildcard {
		b.WriteString(string(GameTypeWildcard) + paramDelimiter)
	}
	if s.DivisionSeries {
		b.WriteString(string(GameTypeDivSeries) + paramDelimiter)
	}
	if s.LeagueChampionship {
		b.WriteString(string(GameTypeLCS) + paramDelimiter)
	}
	if s.WorldSeries {
		b.WriteString(string(GameTypeWS) + paramDelimiter)
	}
	if s.SpringTraining {
		b.WriteString(string(GameTypePreseason) + paramDelimiter)
	}
	return b.String()
}

// PitchResultTypes mirrors the 'Pitch Result' filters. The site offers
// sixteen result types, but selecting all of them is equivalent to
// selecting none, so only the batted-ball-events-only case matters here.
type PitchResultTypes struct {
	BattedBallEventsOnly bool
}

// encode produces the hfPR query value.
func (p PitchResultTypes) encode() string {
	if p.BattedBallEventsOnly {
		return `hit\.\.into\.\.play` + paramDelimiter
	}
	return ""
}

// SearchParams collects the query parameters for one statcast search
// request. Values observed from the search page's generated URLs define
// the dialect: hfGT carries season types, hfPR pitch results,
// game_date_gt/game_date_lt the inclusive date window.
type SearchParams struct {
	StartDate    Date
	EndDate      Date
	SeasonTypes  SeasonTypes
	PitchResults PitchResultTypes
	GroupBy      string
	ResultType   string
}

// detailParams configures a pitch-detail search returning one row per
// pitch event.
func detailParams(r DateRange, gt GameType, bbeOnly bool) SearchParams {
	return SearchParams{
		StartDate:    r.Start,
		EndDate:      r.End,
		SeasonTypes:  SeasonTypesForGameType(gt),
		PitchResults: PitchResultTypes{BattedBallEventsOnly: bbeOnly},
		ResultType:   "details",
	}
}

// countParams configures a pitch-count search returning aggregated
// counts per team and game date.
func countParams(r DateRange, gt GameType, bbeOnly bool) SearchParams {
	return SearchParams{
		StartDate:    r.Start,
		EndDate:      r.End,
		SeasonTypes:  SeasonTypesForGameType(gt),
		PitchResults: PitchResultTypes{BattedBallEventsOnly: bbeOnly},
		GroupBy:      "team-date",
	}
}

// Values renders the params as url query values.
func (p SearchParams) Values() url.Values {
	return url.Values{
		"all":          {"true"},
		"game_date_gt": {p.StartDate.String()},
		"game_date_lt": {p.EndDate.String()},
		"hfGT":         {p.SeasonTypes.encode()},
		"hfPR":         {p.PitchResults.encode()},
		"group_by":     {p.GroupBy},
		"type":         {p.ResultType},
	}
}
