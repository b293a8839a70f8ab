package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pbaille/dragchat/internal/domain"
	"github.com/pbaille/dragchat/internal/entries"
	"github.com/pbaille/dragchat/internal/session"
)

// Server exposes a session over HTTP
type Server struct {
	session *session.Session
	addr    string
	log     zerolog.Logger
}

// New creates a new API server
func New(s *session.Session, addr string, log zerolog.Logger) *Server {
	return &Server{session: s, addr: addr, log: log}
}

// Handler returns the routed handler with CORS and request logging
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Entries
	mux.HandleFunc("GET /entries", s.listEntries)
	mux.HandleFunc("POST /entries", s.submitEntry)

	// Drag gesture
	mux.HandleFunc("GET /gesture", s.getGesture)
	mux.HandleFunc("POST /gesture/start", s.startGesture)
	mux.HandleFunc("POST /gesture/over", s.moveGesture)
	mux.HandleFunc("POST /gesture/end", s.endGesture)
	mux.HandleFunc("POST /gesture/cancel", s.cancelGesture)

	// Journal
	mux.HandleFunc("GET /journal", s.listJournal)
	mux.HandleFunc("GET /entries/{id}/history", s.entryHistory)

	// Health check
	mux.HandleFunc("GET /health", s.health)

	return s.withLogging(withCORS(mux))
}

// Run serves until ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("starting server")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// withCORS adds CORS headers for frontend development
func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		h.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) withLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.session.Closed() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// EntriesResponse is the committed collection
type EntriesResponse struct {
	Entries  []domain.Entry `json:"entries"`
	Revision uint64         `json:"revision"`
}

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, entriesResponse(s.session.State()))
}

func entriesResponse(st entries.State) EntriesResponse {
	list := st.Entries
	if list == nil {
		list = []domain.Entry{}
	}
	return EntriesResponse{Entries: list, Revision: st.Revision}
}

// SubmitRequest is the request body for submitting user text
type SubmitRequest struct {
	Text string `json:"text"`
}

// SubmitResponse is the response for a submitted entry
type SubmitResponse struct {
	Entry        domain.Entry `json:"entry"`
	ReplyPending bool         `json:"reply_pending"`
}

func (s *Server) submitEntry(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := s.session.SubmitUserText(r.Context(), req.Text)
	if err != nil {
		if errors.Is(err, entries.ErrClosed) {
			writeError(w, http.StatusServiceUnavailable, "session closed")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sub == nil {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusCreated, SubmitResponse{
		Entry:        sub.Entry,
		ReplyPending: sub.Reply != nil,
	})
}

// GestureRequest carries the entry id of a gesture event. An empty id
// means the pointer is over no entry.
type GestureRequest struct {
	ID string `json:"id"`
}

// EndGestureResponse reports the outcome of a finished gesture
type EndGestureResponse struct {
	Reordered bool `json:"reordered"`
	EntriesResponse
}

func decodeGesture(w http.ResponseWriter, r *http.Request) (GestureRequest, bool) {
	var req GestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	return req, true
}

func (s *Server) getGesture(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Gesture())
}

func (s *Server) startGesture(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGesture(w, r)
	if !ok {
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	s.session.BeginDrag(req.ID)
	writeJSON(w, http.StatusOK, s.session.Gesture())
}

func (s *Server) moveGesture(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGesture(w, r)
	if !ok {
		return
	}
	s.session.UpdateDragOver(req.ID)
	writeJSON(w, http.StatusOK, s.session.Gesture())
}

func (s *Server) endGesture(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeGesture(w, r)
	if !ok {
		return
	}
	reordered := s.session.EndDrag(req.ID)
	writeJSON(w, http.StatusOK, EndGestureResponse{
		Reordered:       reordered,
		EntriesResponse: entriesResponse(s.session.State()),
	})
}

func (s *Server) cancelGesture(w http.ResponseWriter, r *http.Request) {
	s.session.CancelDrag()
	writeJSON(w, http.StatusOK, s.session.Gesture())
}

func (s *Server) listJournal(w http.ResponseWriter, r *http.Request) {
	j := s.session.Journal()
	if j == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}

	ops, err := j.Ops()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

// entryHistory lists the operations that appended or moved an entry,
// including reorders that used it as the drop target.
func (s *Server) entryHistory(w http.ResponseWriter, r *http.Request) {
	j := s.session.Journal()
	if j == nil {
		writeError(w, http.StatusNotFound, "journal disabled")
		return
	}

	id := r.PathValue("id")
	ops, err := j.History(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(ops) == 0 {
		writeError(w, http.StatusNotFound, "entry not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"operations": ops,
		"count":      len(ops),
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
