// Package testutil provides testing utilities for the harvester.
package testutil

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// PitchRow is one synthetic pitch event served by the mock.
type PitchRow struct {
	GamePK      int
	GameDate    string // ISO date
	AtBat       int
	PitchNumber int
	Description string
}

// BBE reports whether the row is a batted ball event.
func (p PitchRow) BBE() bool {
	return p.Description == "hit_into_play"
}

// CSV renders rows as statcast search detail output.
func CSV(rows []PitchRow) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write([]string{"game_pk", "game_date", "at_bat_number", "pitch_number", "description"})
	for _, r := range rows {
		w.Write([]string{
			fmt.Sprintf("%d", r.GamePK),
			r.GameDate,
			fmt.Sprintf("%d", r.AtBat),
			fmt.Sprintf("%d", r.PitchNumber),
			r.Description,
		})
	}
	w.Flush()
	return b.String()
}

// MockSavant is a configurable mock of the baseballsavant search
// endpoint plus the statsapi schedule endpoint. It serves detail and
// grouped-count searches from one in-memory set of pitch rows, so
// counts and rows always agree the way a consistent provider's would.
type MockSavant struct {
	server *httptest.Server
	mu     sync.RWMutex

	rows     []PitchRow
	rowCap   int
	schedule map[string]string // game type code -> statsapi JSON
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount int
	DetailCount  int
	CountCount   int
	LastQuery    map[string]string
}

// NewMockSavant creates a mock serving the given pitch rows. rowCap <= 0
// disables truncation.
func NewMockSavant(rows []PitchRow, rowCap int) *MockSavant {
	mock := &MockSavant{
		rows:     rows,
		rowCap:   rowCap,
		schedule: make(map[string]string),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		q := make(map[string]string)
		for key := range r.URL.Query() {
			q[key] = r.URL.Query().Get(key)
		}
		mock.LastQuery = q
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()
		if exists {
			handler(w, r)
			return
		}

		switch r.URL.Path {
		case "/statcast_search/csv":
			mock.handleSearch(w, r)
		case "/api/v1/schedule":
			mock.handleSchedule(w, r)
		default:
			http.NotFound(w, r)
		}
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockSavant) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockSavant) Close() {
	m.server.Close()
}

// SetRows replaces the served pitch rows.
func (m *MockSavant) SetRows(rows []PitchRow) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = rows
}

// SetHandler overrides the handler for a path, e.g. to inject errors.
func (m *MockSavant) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// FailSearches makes the search endpoint return the given status,
// optionally after a delay.
func (m *MockSavant) FailSearches(status int, delay time.Duration) {
	m.SetHandler("/statcast_search/csv", func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}
		w.WriteHeader(status)
	})
}

// SetSchedule serves the given statsapi JSON for a game type.
func (m *MockSavant) SetSchedule(gameType, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedule[gameType] = body
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockSavant) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// handleSearch serves detail or grouped-count output from the row set,
// applying the date window and batted-ball filter from the query.
func (m *MockSavant) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start := q.Get("game_date_gt")
	end := q.Get("game_date_lt")
	bbeOnly := strings.Contains(q.Get("hfPR"), "into")

	m.mu.Lock()
	if q.Get("group_by") != "" {
		m.CountCount++
	} else {
		m.DetailCount++
	}
	rows := m.rows
	rowCap := m.rowCap
	m.mu.Unlock()

	var selected []PitchRow
	for _, row := range rows {
		if row.GameDate < start || row.GameDate > end {
			continue
		}
		if bbeOnly && !row.BBE() {
			continue
		}
		selected = append(selected, row)
	}

	w.Header().Set("Content-Type", "text/csv")

	if q.Get("group_by") != "" {
		byDate := make(map[string]int)
		var dates []string
		for _, row := range selected {
			if byDate[row.GameDate] == 0 {
				dates = append(dates, row.GameDate)
			}
			byDate[row.GameDate]++
		}
		cw := csv.NewWriter(w)
		cw.Write([]string{"team", "game_date", "pitches"})
		for _, date := range dates {
			cw.Write([]string{"AAA", date, fmt.Sprintf("%d", byDate[date])})
		}
		cw.Flush()
		return
	}

	if rowCap > 0 && len(selected) > rowCap {
		selected = selected[:rowCap]
	}
	fmt.Fprint(w, CSV(selected))
}

// handleSchedule serves configured statsapi schedule payloads.
func (m *MockSavant) handleSchedule(w http.ResponseWriter, r *http.Request) {
	gt := r.URL.Query().Get("gameType")

	m.mu.RLock()
	body, ok := m.schedule[gt]
	m.mu.RUnlock()

	if !ok {
		body = `{"dates":[]}`
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, body)
}

// ScheduleJSON builds a statsapi schedule payload. finals maps ISO
// dates to (final, total) game counts.
func ScheduleJSON(days []ScheduleDay) string {
	var b strings.Builder
	b.WriteString(`{"dates":[`)
	for i, day := range days {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf(`{"date":%q,"games":[`, day.Date))
		for g := 0; g < day.Total; g++ {
			if g > 0 {
				b.WriteString(",")
			}
			state := "Live"
			if g < day.Final {
				state = "Final"
			}
			b.WriteString(fmt.Sprintf(`{"status":{"abstractGameState":%q}}`, state))
		}
		b.WriteString("]}")
	}
	b.WriteString("]}")
	return b.String()
}

// ScheduleDay describes one schedule date for ScheduleJSON.
type ScheduleDay struct {
	Date  string
	Total int
	Final int
}
