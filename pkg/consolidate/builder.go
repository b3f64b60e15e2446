// Package consolidate assembles the season master artifact from the
// published daily and cumulative files.
package consolidate

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/statforge/statcast-harvester/pkg/artifact"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

// MissingDatesError reports daily artifacts required for consolidation
// that have not been published. Nothing is written when it is returned.
type MissingDatesError struct {
	Dates []statcast.Date
}

func (e *MissingDatesError) Error() string {
	names := make([]string, len(e.Dates))
	for i, d := range e.Dates {
		names[i] = d.String()
	}
	return fmt.Sprintf("missing daily artifacts for %d dates: %s",
		len(e.Dates), strings.Join(names, ", "))
}

// Input describes one consolidation.
type Input struct {
	Season   int
	GameType statcast.GameType

	// Range bounds which cumulative rows are consolidated.
	Range statcast.DateRange

	// ExpectedDates are the completed game dates whose daily artifacts
	// must all be present before a master is built.
	ExpectedDates []statcast.Date
}

// Builder writes season master artifacts.
type Builder struct {
	store  *artifact.Store
	logger zerolog.Logger
}

// New creates a builder over an artifact store.
func New(store *artifact.Store) *Builder {
	return &Builder{
		store:  store,
		logger: log.With().Str("component", "consolidate").Logger(),
	}
}

// Build unions the expected daily artifacts with the season cumulative
// artifact into a single chronologically ordered master file and
// publishes it atomically. Where a pitch appears in both a daily and
// the cumulative artifact, the cumulative row wins: its derived
// statistics are the freshest. Returns the published file name and its
// row count.
func (b *Builder) Build(in Input) (string, int, error) {
	var missing []statcast.Date
	for _, date := range in.ExpectedDates {
		if !b.store.Exists(artifact.DailyFileName(date)) {
			missing = append(missing, date)
		}
	}
	if len(missing) > 0 {
		return "", 0, &MissingDatesError{Dates: missing}
	}

	master := &statcast.Dataset{}
	for _, date := range in.ExpectedDates {
		daily, err := b.store.ReadDataset(artifact.DailyFileName(date))
		if err != nil {
			return "", 0, err
		}
		if err := master.Append(daily); err != nil {
			return "", 0, fmt.Errorf("consolidate %s: %w", date, err)
		}
	}

	// Cumulative rows append after the dailies so dedup keeps them.
	cumulativeName := artifact.CumulativeFileName(in.Season, in.GameType)
	if b.store.Exists(cumulativeName) {
		cumulative, err := b.store.ReadDataset(cumulativeName)
		if err != nil {
			return "", 0, err
		}
		inRange := cumulative.Filter(func(r statcast.PitchRecord) bool {
			return in.Range.Contains(r.GameDate)
		})
		if err := master.Append(inRange); err != nil {
			return "", 0, fmt.Errorf("consolidate cumulative: %w", err)
		}
	}

	master.DedupKeepLast()
	master.SortChronological()

	name := artifact.MasterFileName(in.Season, in.GameType)
	if err := b.store.WriteDataset(name, master); err != nil {
		return "", 0, err
	}

	b.logger.Info().
		Str("artifact", name).
		Int("rows", master.Len()).
		Int("daily_files", len(in.ExpectedDates)).
		Msg("Master artifact consolidated")

	return name, master.Len(), nil
}
