package server

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/sheetview/internal/source"
	"github.com/leapstack-labs/sheetview/internal/testutil"
	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tbl, err := source.ReadCSV(strings.NewReader(testutil.PeopleCSV), ',')
	require.NoError(t, err)

	v := sheet.New[cell.Value, *Call]()
	source.Apply(v, tbl, nil)
	return New(v, Config{Logger: testutil.NewTestLogger(t)})
}

type response struct {
	Version uint64         `json:"version"`
	View    sheet.Snapshot `json:"view"`
	Events  []Event        `json:"events"`
	Error   string         `json:"error"`
}

func do(t *testing.T, s *Server, method, path, body string) (int, response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func columnText(snap sheet.Snapshot, col int) []string {
	out := make([]string, len(snap.Rows))
	for i, row := range snap.Rows {
		out[i] = row[col].Text
	}
	return out
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestView(t *testing.T) {
	s := newTestServer(t)
	code, resp := do(t, s, http.MethodGet, "/api/view", "")
	require.Equal(t, http.StatusOK, code)

	assert.Zero(t, resp.Version)
	require.Len(t, resp.View.Columns, 2)
	assert.Equal(t, "Name", resp.View.Columns[0].Title)
	assert.Equal(t, []string{"Bob", "Amy", "Cid"}, columnText(resp.View, 0))
	require.NotNil(t, resp.View.Cursor)
	assert.Equal(t, sheet.Position{}, *resp.View.Cursor)
	assert.True(t, resp.View.ReadOnly)
}

func TestSort(t *testing.T) {
	s := newTestServer(t)

	code, resp := do(t, s, http.MethodPost, "/api/sort", `{"column":"name","order":"desc"}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"Cid", "Bob", "Amy"}, columnText(resp.View, 0))
	assert.Equal(t, uint64(1), resp.Version)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, Event{Kind: "sort", Column: "name", Order: "desc"}, resp.Events[0])

	// Without an order the column toggles.
	_, resp = do(t, s, http.MethodPost, "/api/sort", `{"column":"name"}`)
	assert.Equal(t, []string{"Amy", "Bob", "Cid"}, columnText(resp.View, 0))

	_, resp = do(t, s, http.MethodDelete, "/api/sort", "")
	assert.Empty(t, resp.View.Sort)
	assert.Equal(t, []string{"Amy", "Bob", "Cid"}, columnText(resp.View, 0), "reset keeps record order")
}

func TestSort_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"unknown column", `{"column":"age"}`, http.StatusBadRequest, `unknown column "age"`},
		{"bad order", `{"column":"name","order":"up"}`, http.StatusBadRequest, "invalid sort order"},
		{"unknown field", `{"column":"name","level":1}`, http.StatusBadRequest, "invalid request body"},
		{"empty body", ``, http.StatusBadRequest, "request body is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			code, resp := do(t, s, http.MethodPost, "/api/sort", tt.body)
			assert.Equal(t, tt.code, code)
			assert.Contains(t, resp.Error, tt.want)
		})
	}
}

func TestCursorAndMove(t *testing.T) {
	s := newTestServer(t)

	_, resp := do(t, s, http.MethodPost, "/api/cursor", `{"column":9,"row":1}`)
	assert.Equal(t, sheet.Position{Column: 1, Row: 1}, *resp.View.Cursor, "clamped")

	_, resp = do(t, s, http.MethodPost, "/api/move", `{"dx":-1,"dy":1}`)
	assert.Equal(t, sheet.Position{Column: 0, Row: 2}, *resp.View.Cursor)

	_, resp = do(t, s, http.MethodPost, "/api/move", `{"to":"first_row"}`)
	assert.Equal(t, sheet.Position{Column: 0, Row: 0}, *resp.View.Cursor)

	_, resp = do(t, s, http.MethodPost, "/api/move", `{"page":10}`)
	assert.Equal(t, sheet.Position{Column: 0, Row: 2}, *resp.View.Cursor)

	_, resp = do(t, s, http.MethodPost, "/api/move", `{"to":"last_column"}`)
	assert.Equal(t, sheet.Position{Column: 1, Row: 2}, *resp.View.Cursor)

	code, resp := do(t, s, http.MethodPost, "/api/move", `{"to":"middle"}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "unknown move target")
}

func TestSelect(t *testing.T) {
	s := newTestServer(t)

	// Empty body toggles the cell under the cursor.
	code, resp := do(t, s, http.MethodPost, "/api/select", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []sheet.Position{{Column: 0, Row: 0}}, resp.View.Selected)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "select", resp.Events[0].Kind)

	_, resp = do(t, s, http.MethodPost, "/api/select", `{"column":1,"row":2}`)
	assert.Len(t, resp.View.Selected, 2)
	assert.Empty(t, resp.Events, "explicit select fires no event")

	_, resp = do(t, s, http.MethodDelete, "/api/select", `{"column":0,"row":0}`)
	assert.Equal(t, []sheet.Position{{Column: 1, Row: 2}}, resp.View.Selected)

	_, resp = do(t, s, http.MethodDelete, "/api/select", "")
	assert.Empty(t, resp.View.Selected)

	code, resp = do(t, s, http.MethodPost, "/api/select", `{"column":5,"row":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "out of range")

	code, resp = do(t, s, http.MethodPost, "/api/select", `{"row":0}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "together")
}

func TestColumnSelect(t *testing.T) {
	s := newTestServer(t)

	_, resp := do(t, s, http.MethodPost, "/api/column-select", `{"on":true}`)
	assert.True(t, resp.View.ColumnSelect)

	_, resp = do(t, s, http.MethodPost, "/api/select", `{"column":1,"row":0}`)
	assert.Equal(t, []sheet.Position{{Column: 1, Row: 0}, {Column: 1, Row: 1}, {Column: 1, Row: 2}}, resp.View.Selected)
}

func TestSubmit(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/cursor", `{"column":1,"row":1}`)

	code, resp := do(t, s, http.MethodPost, "/api/submit", "")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, Event{
		Kind:     "submit",
		Position: &sheet.Position{Column: 1, Row: 1},
		Text:     "A",
	}, resp.Events[0])
}

func TestDisabled(t *testing.T) {
	s := newTestServer(t)
	_, resp := do(t, s, http.MethodPost, "/api/flags", `{"enabled":false}`)
	assert.False(t, resp.View.Enabled)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/sort", `{"column":"name"}`},
		{http.MethodPost, "/api/cursor", `{"column":1,"row":1}`},
		{http.MethodPost, "/api/move", `{"dy":1}`},
		{http.MethodPost, "/api/select", ""},
		{http.MethodPost, "/api/submit", ""},
	} {
		code, resp := do(t, s, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusConflict, code, tc.path)
		assert.Equal(t, "view is disabled", resp.Error, tc.path)
	}

	// Toggling column select stays allowed.
	code, _ := do(t, s, http.MethodPost, "/api/column-select", `{"on":true}`)
	assert.Equal(t, http.StatusOK, code)
}

func TestCells(t *testing.T) {
	s := newTestServer(t)

	code, resp := do(t, s, http.MethodPut, "/api/cells", `{"row":0,"column":"dept","value":"Z"}`)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "view is read-only", resp.Error)

	do(t, s, http.MethodPost, "/api/flags", `{"read_only":false}`)

	code, resp = do(t, s, http.MethodPut, "/api/cells", `{"row":0,"column":"dept","value":42}`)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "42", resp.View.Rows[0][1].Text)

	_, resp = do(t, s, http.MethodDelete, "/api/cells", `{"row":0,"column":"dept"}`)
	assert.False(t, resp.View.Rows[0][1].Present)

	code, resp = do(t, s, http.MethodPut, "/api/cells", `{"row":7,"column":"dept","value":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "out of range")

	code, resp = do(t, s, http.MethodPut, "/api/cells", `{"row":0,"column":"age","value":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, resp.Error, "unknown column")
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "people.csv", testutil.PeopleCSV)

	tbl, err := source.ReadCSV(strings.NewReader(testutil.PeopleCSV), ',')
	require.NoError(t, err)
	v := sheet.New[cell.Value, *Call]()
	source.Apply(v, tbl, nil)
	s := New(v, Config{Source: source.Config{Path: path}, Logger: testutil.NewTestLogger(t)})

	do(t, s, http.MethodPost, "/api/sort", `{"column":"name","order":"asc"}`)

	require.NoError(t, os.WriteFile(path, []byte("name,dept\nZed,C\nAbe,C\n"), 0o600))
	require.NoError(t, s.Reload(context.Background()))

	_, resp := do(t, s, http.MethodGet, "/api/view", "")
	assert.Equal(t, []string{"Abe", "Zed"}, columnText(resp.View, 0), "sort chain re-applied")
	assert.Equal(t, uint64(2), resp.Version)
}

func TestReload_Error(t *testing.T) {
	s := newTestServer(t)
	s.cfg.Source = source.Config{Path: filepath.Join(t.TempDir(), "missing.csv")}
	assert.Error(t, s.Reload(context.Background()))
}

// sentEvent is one parsed server-sent event.
type sentEvent struct {
	Type   string
	ID     string
	Change Change
}

// readEvent reads one server-sent event up to its blank terminator line.
func readEvent(t *testing.T, r *bufio.Reader) sentEvent {
	t.Helper()
	var ev sentEvent
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if ev.Type != "" {
				return ev
			}
		case strings.HasPrefix(line, "event: "):
			ev.Type = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			ev.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev.Change))
		}
	}
}

func TestEvents(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	r := bufio.NewReader(resp.Body)
	assert.Equal(t, sentEvent{Type: "change", ID: "0", Change: Change{Version: 0, Kind: "hello"}}, readEvent(t, r))

	post, err := ts.Client().Post(ts.URL+"/api/sort", "application/json", strings.NewReader(`{"column":"dept"}`))
	require.NoError(t, err)
	_ = post.Body.Close()

	assert.Equal(t, sentEvent{Type: "change", ID: "1", Change: Change{Version: 1, Kind: "sort"}}, readEvent(t, r))
}

func TestServeListener_Watch(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "people.csv", testutil.PeopleCSV)

	tbl, err := source.ReadCSV(strings.NewReader(testutil.PeopleCSV), ',')
	require.NoError(t, err)
	v := sheet.New[cell.Value, *Call]()
	source.Apply(v, tbl, nil)
	s := New(v, Config{
		Source:   source.Config{Path: path},
		Watch:    true,
		Debounce: 10 * time.Millisecond,
		Logger:   testutil.NewTestLogger(t),
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	ch := s.notifier.subscribe()
	defer s.notifier.unsubscribe(ch)

	// The watcher starts asynchronously; keep writing until a reload lands.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	for reloaded := false; !reloaded; {
		select {
		case c := <-ch:
			reloaded = c.Kind == "reload"
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("name\nZed\n"), 0o600))
		case <-deadline:
			t.Fatal("source change was not picked up")
		}
	}

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/view")
	require.NoError(t, err)
	var body response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	_ = resp.Body.Close()
	assert.Equal(t, []string{"Zed"}, columnText(body.View, 0))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
