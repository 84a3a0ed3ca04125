// Package apitest provides an in-memory stand-in for the remote data API,
// recording every save so tests can assert on what was submitted.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"gridsheet/domain/sheet"

	"github.com/go-chi/chi/v5"
)

// Server is a fake data API served over httptest
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	rows       []sheet.Row
	nextID     int64
	bulk       [][]sheet.Row
	single     []sheet.Row
	failStatus int
	failReads  bool
	omitIDs    bool
}

// NewServer starts a fake API preloaded with rows. Rows without an ID get one.
func NewServer(rows ...sheet.Row) *Server {
	s := &Server{nextID: 1}
	for _, row := range rows {
		s.store(row.Clone())
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/data/", s.handleList)
		r.Post("/data/", s.handleSaveRow)
		r.Post("/data/bulk/", s.handleBulk)
		r.Get("/stats/", s.handleStats)
	})
	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to hand to a client
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

// FailSaves makes every save answer with status; zero restores success
func (s *Server) FailSaves(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failStatus = status
}

// FailReads makes both read endpoints answer 500
func (s *Server) FailReads(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failReads = fail
}

// OmitBulkIDs drops the ids array from bulk responses, as the reference backend does
func (s *Server) OmitBulkIDs(omit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitIDs = omit
}

// BulkRequests returns the items of every bulk save received so far
func (s *Server) BulkRequests() [][]sheet.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]sheet.Row, len(s.bulk))
	copy(out, s.bulk)
	return out
}

// RowRequests returns every row received on the single-row endpoint
func (s *Server) RowRequests() []sheet.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sheet.Row, len(s.single))
	copy(out, s.single)
	return out
}

// Rows returns the stored rows
func (s *Server) Rows() []sheet.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sheet.Dataset(s.rows).Clone()
}

// store inserts or updates row and returns its id; callers hold mu or own s
func (s *Server) store(row sheet.Row) int64 {
	if row.ID != nil {
		for i := range s.rows {
			if *s.rows[i].ID == *row.ID {
				s.rows[i] = row
				return *row.ID
			}
		}
	} else {
		row.ID = sheet.ID(s.nextID)
	}
	if *row.ID >= s.nextID {
		s.nextID = *row.ID + 1
	}
	s.rows = append(s.rows, row)
	return *row.ID
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database unavailable"})
		return
	}
	rows := s.rows
	if rows == nil {
		rows = []sheet.Row{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "database unavailable"})
		return
	}
	stats := sheet.Aggregate(s.rows)
	if stats.IsEmpty() {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "No data available"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSaveRow(w http.ResponseWriter, r *http.Request) {
	var row sheet.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.single = append(s.single, row.Clone())
	if s.failStatus != 0 {
		writeJSON(w, s.failStatus, map[string]string{"detail": "save rejected"})
		return
	}
	id := s.store(row)
	writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Data saved successfully", "id": id})
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Items []sheet.Row `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulk = append(s.bulk, sheet.Dataset(body.Items).Clone())
	if s.failStatus != 0 {
		writeJSON(w, s.failStatus, map[string]string{"detail": "save rejected"})
		return
	}

	ids := make([]int64, 0, len(body.Items))
	for _, item := range body.Items {
		ids = append(ids, s.store(item.Clone()))
	}
	resp := map[string]interface{}{"message": "Data updated successfully"}
	if !s.omitIDs {
		resp["ids"] = ids
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
