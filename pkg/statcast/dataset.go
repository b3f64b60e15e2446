package statcast

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Column names the decoder requires in statcast search output.
const (
	colGamePK      = "game_pk"
	colGameDate    = "game_date"
	colAtBat       = "at_bat_number"
	colPitchNumber = "pitch_number"
	colDescription = "description"
)

// Dataset is an ordered collection of pitch records sharing one CSV
// header. It is the unit of exchange between the search client, the
// merger, and the on-disk artifacts.
type Dataset struct {
	Header  []string
	Records []PitchRecord
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Append adds another dataset's records. The header is adopted from
// other when d has none; mismatched headers are rejected so that two
// differently shaped result sets never end up in one artifact.
func (d *Dataset) Append(other *Dataset) error {
	if other == nil || len(other.Records) == 0 {
		return nil
	}
	if len(d.Header) == 0 {
		d.Header = other.Header
	} else if len(other.Header) > 0 && len(other.Header) != len(d.Header) {
		return fmt.Errorf("header mismatch: %d columns vs %d", len(d.Header), len(other.Header))
	}
	d.Records = append(d.Records, other.Records...)
	return nil
}

// DedupKeepLast removes records sharing a unique identifier, keeping
// the last occurrence. Callers append the most recently fetched rows
// after the older ones, so "last" is "freshest".
func (d *Dataset) DedupKeepLast() {
	last := make(map[string]int, len(d.Records))
	for i, rec := range d.Records {
		last[rec.ID()] = i
	}
	if len(last) == len(d.Records) {
		return
	}
	kept := make([]PitchRecord, 0, len(last))
	for i, rec := range d.Records {
		if last[rec.ID()] == i {
			kept = append(kept, rec)
		}
	}
	d.Records = kept
}

// SortChronological stable-sorts records into game chronology:
// date, then game, then at-bat, then pitch sequence.
func (d *Dataset) SortChronological() {
	sort.SliceStable(d.Records, func(i, j int) bool {
		a, b := d.Records[i], d.Records[j]
		if a.GameDate != b.GameDate {
			return a.GameDate.Before(b.GameDate)
		}
		if a.GamePK != b.GamePK {
			return a.GamePK < b.GamePK
		}
		if a.AtBat != b.AtBat {
			return a.AtBat < b.AtBat
		}
		return a.PitchNumber < b.PitchNumber
	})
}

// Filter returns a new dataset with the records for which keep is true.
func (d *Dataset) Filter(keep func(PitchRecord) bool) *Dataset {
	out := &Dataset{Header: d.Header}
	for _, rec := range d.Records {
		if keep(rec) {
			out.Records = append(out.Records, rec)
		}
	}
	return out
}

// SplitByDate groups records into one dataset per game date.
func (d *Dataset) SplitByDate() map[Date]*Dataset {
	byDate := make(map[Date]*Dataset)
	for _, rec := range d.Records {
		ds, ok := byDate[rec.GameDate]
		if !ok {
			ds = &Dataset{Header: d.Header}
			byDate[rec.GameDate] = ds
		}
		ds.Records = append(ds.Records, rec)
	}
	return byDate
}

// DecodeDataset reads statcast search CSV output into a Dataset.
// A missing header or identifying column is a malformed response.
func DecodeDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx, err := columnIndex(header, colGamePK, colGameDate, colAtBat, colPitchNumber, colDescription)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{Header: header}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row has %d fields, header has %d", len(row), len(header))
		}
		rec, err := recordFromRow(row, idx)
		if err != nil {
			return nil, err
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// Encode writes the dataset as CSV.
func (d *Dataset) Encode(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range d.Records {
		if err := cw.Write(rec.Fields); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnIndex(header []string, cols ...string) (map[string]int, error) {
	idx := make(map[string]int, len(cols))
	for i, name := range header {
		idx[name] = i
	}
	for _, col := range cols {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("missing required column %q", col)
		}
	}
	return idx, nil
}

func recordFromRow(row []string, idx map[string]int) (PitchRecord, error) {
	gamePK, err := strconv.Atoi(row[idx[colGamePK]])
	if err != nil {
		return PitchRecord{}, fmt.Errorf("parse %s: %w", colGamePK, err)
	}
	atBat, err := strconv.Atoi(row[idx[colAtBat]])
	if err != nil {
		return PitchRecord{}, fmt.Errorf("parse %s: %w", colAtBat, err)
	}
	pitchNum, err := strconv.Atoi(row[idx[colPitchNumber]])
	if err != nil {
		return PitchRecord{}, fmt.Errorf("parse %s: %w", colPitchNumber, err)
	}
	gameDate, err := ParseDate(row[idx[colGameDate]])
	if err != nil {
		return PitchRecord{}, err
	}
	return PitchRecord{
		GamePK:      gamePK,
		AtBat:       atBat,
		PitchNumber: pitchNum,
		GameDate:    gameDate,
		Description: row[idx[colDescription]],
		Fields:      row,
	}, nil
}
