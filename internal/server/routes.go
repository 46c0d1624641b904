package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/sheetview/pkg/cell"
	"github.com/leapstack-labs/sheetview/pkg/sheet"
)

var (
	errDisabled = errors.New("view is disabled")
	errReadOnly = errors.New("view is read-only")
	errNoCursor = errors.New("no cell under the cursor")
)

// changeEvent is the server-sent event type for view changes.
const changeEvent datastar.EventType = "change"

type viewResponse struct {
	Version uint64         `json:"version"`
	View    sheet.Snapshot `json:"view"`
	Events  []Event        `json:"events,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/view", s.handleView)
		r.Get("/events", s.handleEvents)
		r.Post("/sort", s.handleSort)
		r.Delete("/sort", s.handleResetSort)
		r.Post("/cursor", s.handleCursor)
		r.Post("/move", s.handleMove)
		r.Post("/select", s.handleSelect)
		r.Delete("/select", s.handleUnselect)
		r.Post("/submit", s.handleSubmit)
		r.Post("/column-select", s.handleColumnSelect)
		r.Post("/flags", s.handleFlags)
		r.Put("/cells", s.handleSetCell)
		r.Delete("/cells", s.handleClearCell)
	})
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	resp := viewResponse{Version: s.version, View: s.view.Snapshot()}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, resp)
}

// mutate runs fn under the lock and responds with the resulting state. A
// non-nil error from fn is written with its status and changes nothing.
func (s *Server) mutate(w http.ResponseWriter, kind string, fn func(c *Call) (int, error)) {
	c := &Call{}

	s.mu.Lock()
	if status, err := fn(c); err != nil {
		s.mu.Unlock()
		writeError(w, status, err)
		return
	}
	change := s.bump(kind)
	resp := viewResponse{Version: s.version, View: s.view.Snapshot(), Events: c.Events}
	s.mu.Unlock()

	s.notifier.broadcast(change)
	writeJSON(w, http.StatusOK, resp)
}

// enabled reports errDisabled for focus-changing requests on a disabled view.
func (s *Server) enabled() (int, error) {
	if !s.view.Enabled() {
		return http.StatusConflict, errDisabled
	}
	return 0, nil
}

type sortRequest struct {
	Column string `json:"column"`
	// Order is optional; without it the column toggles.
	Order *sheet.Order `json:"order"`
}

func (s *Server) handleSort(w http.ResponseWriter, r *http.Request) {
	var req sortRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "sort", func(c *Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		if !s.view.HasColumn(req.Column) {
			return http.StatusBadRequest, fmt.Errorf("unknown column %q", req.Column)
		}
		if req.Order == nil {
			s.view.ToggleSort(c, req.Column)
		} else {
			s.view.RequestSort(c, req.Column, *req.Order)
		}
		return 0, nil
	})
}

func (s *Server) handleResetSort(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, "sort", func(*Call) (int, error) {
		s.view.ResetSort()
		return 0, nil
	})
}

type cursorRequest struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	var req cursorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "cursor", func(*Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		s.view.SetCursor(req.Column, req.Row)
		return 0, nil
	})
}

type moveRequest struct {
	DX   int    `json:"dx"`
	DY   int    `json:"dy"`
	Page int    `json:"page"`
	To   string `json:"to"`
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "cursor", func(*Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		switch req.To {
		case "":
			s.view.MoveBy(req.DX, req.DY)
			if req.Page != 0 {
				s.view.PageBy(req.Page)
			}
		case "first_row":
			s.view.MoveToFirstRow()
		case "last_row":
			s.view.MoveToLastRow()
		case "first_column":
			s.view.MoveToFirstColumn()
		case "last_column":
			s.view.MoveToLastColumn()
		default:
			return http.StatusBadRequest, fmt.Errorf("unknown move target %q (want first_row, last_row, first_column or last_column)", req.To)
		}
		return 0, nil
	})
}

type cellRequest struct {
	Column *int `json:"column"`
	Row    *int `json:"row"`
}

// at returns the requested cell, or false when the request names none.
func (req cellRequest) at() (sheet.Position, bool, error) {
	switch {
	case req.Column == nil && req.Row == nil:
		return sheet.Position{}, false, nil
	case req.Column == nil || req.Row == nil:
		return sheet.Position{}, false, errors.New("column and row must be given together")
	}
	return sheet.Position{Column: *req.Column, Row: *req.Row}, true, nil
}

func (s *Server) inRange(p sheet.Position) (int, error) {
	if p.Column < 0 || p.Column >= s.view.ColumnCount() || p.Row < 0 || p.Row >= s.view.RecordCount() {
		return http.StatusBadRequest, fmt.Errorf("cell (%d, %d) is out of range", p.Column, p.Row)
	}
	return 0, nil
}

// handleSelect applies a select intent at the given cell, or toggles the
// cell under the cursor when the body names none.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pos, explicit, err := req.at()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "select", func(c *Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		if !explicit {
			if !s.view.SelectAtCursor(c) {
				return http.StatusConflict, errNoCursor
			}
			return 0, nil
		}
		if status, err := s.inRange(pos); err != nil {
			return status, err
		}
		s.view.Select(pos.Column, pos.Row)
		return 0, nil
	})
}

// handleUnselect reverses a select intent at the given cell, or clears the
// whole selection when the body names none.
func (s *Server) handleUnselect(w http.ResponseWriter, r *http.Request) {
	var req cellRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pos, explicit, err := req.at()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "select", func(*Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		if !explicit {
			s.view.ClearSelection()
			return 0, nil
		}
		if status, err := s.inRange(pos); err != nil {
			return status, err
		}
		s.view.Unselect(pos.Column, pos.Row)
		return 0, nil
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, _ *http.Request) {
	s.mutate(w, "submit", func(c *Call) (int, error) {
		if status, err := s.enabled(); err != nil {
			return status, err
		}
		if !s.view.Submit(c) {
			return http.StatusConflict, errNoCursor
		}
		return 0, nil
	})
}

type toggleRequest struct {
	On bool `json:"on"`
}

func (s *Server) handleColumnSelect(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "flags", func(*Call) (int, error) {
		s.view.SetColumnSelect(req.On)
		return 0, nil
	})
}

type flagsRequest struct {
	Enabled      *bool `json:"enabled"`
	ReadOnly     *bool `json:"read_only"`
	ColumnSelect *bool `json:"column_select"`
}

func (s *Server) handleFlags(w http.ResponseWriter, r *http.Request) {
	var req flagsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "flags", func(*Call) (int, error) {
		if req.Enabled != nil {
			s.view.SetEnabled(*req.Enabled)
		}
		if req.ReadOnly != nil {
			s.view.SetReadOnly(*req.ReadOnly)
		}
		if req.ColumnSelect != nil {
			s.view.SetColumnSelect(*req.ColumnSelect)
		}
		return 0, nil
	})
}

type editRequest struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  any    `json:"value"`
}

// checkEdit reports why a cell edit would be rejected.
func (s *Server) checkEdit(req editRequest) (int, error) {
	if s.view.ReadOnly() {
		return http.StatusConflict, errReadOnly
	}
	if !s.view.HasColumn(req.Column) {
		return http.StatusBadRequest, fmt.Errorf("unknown column %q", req.Column)
	}
	if req.Row < 0 || req.Row >= s.view.RecordCount() {
		return http.StatusBadRequest, fmt.Errorf("row %d is out of range", req.Row)
	}
	return 0, nil
}

func (s *Server) handleSetCell(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "edit", func(*Call) (int, error) {
		if status, err := s.checkEdit(req); err != nil {
			return status, err
		}
		s.view.SetCell(req.Row, req.Column, cell.From(req.Value))
		return 0, nil
	})
}

func (s *Server) handleClearCell(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.mutate(w, "edit", func(*Call) (int, error) {
		if status, err := s.checkEdit(req); err != nil {
			return status, err
		}
		s.view.ClearCell(req.Row, req.Column)
		return 0, nil
	})
}

// handleEvents streams a change event for every state change. Each event
// carries the view version as its id.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch := s.notifier.subscribe()
	defer s.notifier.unsubscribe(ch)

	s.mu.Lock()
	current := Change{Version: s.version, Kind: "hello"}
	s.mu.Unlock()

	sse := datastar.NewSSE(w, r)
	send := func(c Change) error {
		data, err := json.Marshal(c)
		if err != nil {
			return err
		}
		return sse.Send(changeEvent, []string{string(data)},
			datastar.WithSSEEventId(strconv.FormatUint(c.Version, 10)))
	}

	if err := send(current); err != nil {
		s.logger.Debug("event stream closed", "error", err)
		return
	}
	for {
		select {
		case <-sse.Context().Done():
			return
		case c := <-ch:
			if err := send(c); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// decodeOptional is decode where an empty body leaves v untouched.
func decodeOptional(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
