// Package refdata loads the wOBA linear-weight reference tables the
// harvester validates at startup. The tables ship as CSV files with
// one row per season.
package refdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// SeasonConstants holds one season's wOBA linear weights.
type SeasonConstants struct {
	Season    int
	WOBA      float64
	WOBAScale float64
	WBB       float64
	WHBP      float64
	W1B       float64
	W2B       float64
	W3B       float64
	WHR       float64
}

// ConstantForEvent returns the linear weight for a plate appearance
// outcome as it appears in pitch data events. Unweighted outcomes
// (outs, strikeouts) return 0.
func (c SeasonConstants) ConstantForEvent(event string) float64 {
	switch event {
	case "walk":
		return c.WBB
	case "hit_by_pitch":
		return c.WHBP
	case "single":
		return c.W1B
	case "double":
		return c.W2B
	case "triple":
		return c.W3B
	case "home_run":
		return c.WHR
	default:
		return 0
	}
}

// ConstantHistory maps seasons to their constants.
type ConstantHistory map[int]SeasonConstants

// ForSeason looks up a season's constants.
func (h ConstantHistory) ForSeason(season int) (SeasonConstants, bool) {
	c, ok := h[season]
	return c, ok
}

var wobaColumns = []string{"Season", "wOBA", "wOBAScale", "wBB", "wHBP", "w1B", "w2B", "w3B", "wHR"}

// LoadFile reads a constants table from a CSV file.
func LoadFile(path string) (ConstantHistory, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open constants table: %w", err)
	}
	defer f.Close()

	history, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("constants table %s: %w", path, err)
	}
	return history, nil
}

// Load reads a constants table. Every listed season must be a valid
// MLB season and appear at most once.
func Load(r io.Reader) (ConstantHistory, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range wobaColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}

	history := make(ConstantHistory)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		season, err := strconv.Atoi(row[idx["Season"]])
		if err != nil {
			return nil, fmt.Errorf("parse Season: %w", err)
		}
		if !statcast.IsValidSeason(season) {
			return nil, fmt.Errorf("season %d out of range", season)
		}
		if _, dup := history[season]; dup {
			return nil, fmt.Errorf("duplicate season %d", season)
		}

		c := SeasonConstants{Season: season}
		for col, dst := range map[string]*float64{
			"wOBA": &c.WOBA, "wOBAScale": &c.WOBAScale,
			"wBB": &c.WBB, "wHBP": &c.WHBP,
			"w1B": &c.W1B, "w2B": &c.W2B, "w3B": &c.W3B, "wHR": &c.WHR,
		} {
			v, err := strconv.ParseFloat(row[idx[col]], 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s for season %d: %w", col, season, err)
			}
			*dst = v
		}
		history[season] = c
	}

	if len(history) == 0 {
		return nil, fmt.Errorf("constants table has no rows")
	}
	return history, nil
}
