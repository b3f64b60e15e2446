package consolidate

import (
	"errors"
	"strconv"
	"testing"

	"github.com/statforge/statcast-harvester/pkg/artifact"
	"github.com/statforge/statcast-harvester/pkg/statcast"
)

func date(day int) statcast.Date {
	return statcast.NewDate(2023, 4, day)
}

var header = []string{"game_pk", "game_date", "at_bat_number", "pitch_number", "description"}

func pitch(gamePK int, d statcast.Date, atBat, num int, desc string) statcast.PitchRecord {
	return statcast.PitchRecord{
		GamePK: gamePK, AtBat: atBat, PitchNumber: num,
		GameDate: d, Description: desc,
		Fields: []string{
			strconv.Itoa(gamePK), d.String(), strconv.Itoa(atBat), strconv.Itoa(num), desc,
		},
	}
}

func testStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func writeDaily(t *testing.T, store *artifact.Store, d statcast.Date, records ...statcast.PitchRecord) {
	t.Helper()
	err := store.WriteDataset(artifact.DailyFileName(d), &statcast.Dataset{Header: header, Records: records})
	if err != nil {
		t.Fatalf("write daily %s: %v", d, err)
	}
}

func TestBuildMissingDates(t *testing.T) {
	store := testStore(t)
	writeDaily(t, store, date(1), pitch(1, date(1), 1, 1, "ball"))

	b := New(store)
	_, _, err := b.Build(Input{
		Season:        2023,
		GameType:      statcast.GameTypeRegular,
		Range:         statcast.DateRange{Start: date(1), End: date(3)},
		ExpectedDates: []statcast.Date{date(1), date(2), date(3)},
	})

	var missing *MissingDatesError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected MissingDatesError, got %v", err)
	}
	if len(missing.Dates) != 2 {
		t.Errorf("Missing %d dates, want 2", len(missing.Dates))
	}
	if store.Exists(artifact.MasterFileName(2023, statcast.GameTypeRegular)) {
		t.Error("No master file may be written when dates are missing")
	}
}

func TestBuildUnionsDailiesAndCumulative(t *testing.T) {
	store := testStore(t)
	writeDaily(t, store, date(1),
		pitch(1, date(1), 1, 1, "ball"),
		pitch(1, date(1), 1, 2, "called_strike"),
	)
	writeDaily(t, store, date(2),
		pitch(2, date(2), 1, 1, "swinging_strike"),
	)

	cumulative := &statcast.Dataset{
		Header: header,
		Records: []statcast.PitchRecord{
			pitch(1, date(1), 2, 1, "hit_into_play"),
			pitch(2, date(2), 2, 1, "hit_into_play"),
		},
	}
	name := artifact.CumulativeFileName(2023, statcast.GameTypeRegular)
	if err := store.WriteDataset(name, cumulative); err != nil {
		t.Fatalf("seed cumulative: %v", err)
	}

	b := New(store)
	master, rows, err := b.Build(Input{
		Season:        2023,
		GameType:      statcast.GameTypeRegular,
		Range:         statcast.DateRange{Start: date(1), End: date(2)},
		ExpectedDates: []statcast.Date{date(1), date(2)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if master != "PitchData.2023.Regular.csv" {
		t.Errorf("Master name = %q", master)
	}
	if rows != 5 {
		t.Errorf("Master has %d rows, want 5", rows)
	}

	ds, err := store.ReadDataset(master)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	for i := 1; i < ds.Len(); i++ {
		if ds.Records[i].GameDate.Before(ds.Records[i-1].GameDate) {
			t.Fatal("Master rows are not chronological")
		}
	}
}

func TestBuildCumulativeWinsOnOverlap(t *testing.T) {
	store := testStore(t)

	// The same pitch identity appears in the daily file and the
	// cumulative file with different payloads.
	writeDaily(t, store, date(1), pitch(7, date(1), 3, 1, "stale_description"))

	cumulative := &statcast.Dataset{
		Header:  header,
		Records: []statcast.PitchRecord{pitch(7, date(1), 3, 1, "hit_into_play")},
	}
	name := artifact.CumulativeFileName(2023, statcast.GameTypeRegular)
	if err := store.WriteDataset(name, cumulative); err != nil {
		t.Fatalf("seed cumulative: %v", err)
	}

	b := New(store)
	master, rows, err := b.Build(Input{
		Season:        2023,
		GameType:      statcast.GameTypeRegular,
		Range:         statcast.DateRange{Start: date(1), End: date(1)},
		ExpectedDates: []statcast.Date{date(1)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rows != 1 {
		t.Fatalf("Master has %d rows, want 1", rows)
	}

	ds, err := store.ReadDataset(master)
	if err != nil {
		t.Fatalf("read master: %v", err)
	}
	if ds.Records[0].Description != "hit_into_play" {
		t.Errorf("Description = %q, the cumulative row must win", ds.Records[0].Description)
	}
}

func TestBuildIgnoresCumulativeOutsideRange(t *testing.T) {
	store := testStore(t)
	writeDaily(t, store, date(1), pitch(1, date(1), 1, 1, "ball"))

	cumulative := &statcast.Dataset{
		Header: header,
		Records: []statcast.PitchRecord{
			pitch(1, date(1), 2, 1, "hit_into_play"),
			pitch(9, date(20), 1, 1, "hit_into_play"), // beyond the build range
		},
	}
	name := artifact.CumulativeFileName(2023, statcast.GameTypeRegular)
	if err := store.WriteDataset(name, cumulative); err != nil {
		t.Fatalf("seed cumulative: %v", err)
	}

	b := New(store)
	_, rows, err := b.Build(Input{
		Season:        2023,
		GameType:      statcast.GameTypeRegular,
		Range:         statcast.DateRange{Start: date(1), End: date(2)},
		ExpectedDates: []statcast.Date{date(1)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rows != 2 {
		t.Errorf("Master has %d rows, want 2 (out-of-range cumulative row excluded)", rows)
	}
}

func TestBuildWithoutCumulative(t *testing.T) {
	store := testStore(t)
	writeDaily(t, store, date(1), pitch(1, date(1), 1, 1, "ball"))

	b := New(store)
	_, rows, err := b.Build(Input{
		Season:        2023,
		GameType:      statcast.GameTypeRegular,
		Range:         statcast.DateRange{Start: date(1), End: date(1)},
		ExpectedDates: []statcast.Date{date(1)},
	})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if rows != 1 {
		t.Errorf("Master has %d rows, want 1", rows)
	}
}
