package server

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/claude/recoverycoach/internal/coach"
	"github.com/claude/recoverycoach/internal/models"
	"github.com/claude/recoverycoach/internal/session"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	// RetryAfter is in seconds.
	RetryAfter int `json:"retry_after,omitempty"`
}

// rateBody is the response of the rate-check endpoint.
type rateBody struct {
	Allowed    bool `json:"allowed"`
	InFlight   int  `json:"in_flight"`
	RetryAfter int  `json:"retry_after,omitempty"`
}

type chatTurnRequest struct {
	UID     string `json:"uid"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatStreamRequest struct {
	UID     string `json:"uid"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMuscles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.Catalog())
}

func (s *Server) handleRecordWorkout(w http.ResponseWriter, r *http.Request) {
	var in models.WorkoutInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		return
	}

	entry, err := s.svc.RecordWorkout(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleWorkouts(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Workouts(r.URL.Query().Get("uid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	now := s.svc.Now()
	if at := r.URL.Query().Get("at"); at != "" {
		t, err := time.Parse(time.RFC3339, at)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid at: " + err.Error(), Field: "at"})
			return
		}
		now = t
	}

	report, err := s.svc.Recovery(r.URL.Query().Get("uid"), now)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleRecordChatTurn(w http.ResponseWriter, r *http.Request) {
	var req chatTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		return
	}

	if err := s.svc.RecordChatTurn(req.UID, req.Role, req.Content); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleChatWindow(w http.ResponseWriter, r *http.Request) {
	turns, err := s.svc.ChatWindow(r.URL.Query().Get("uid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, turns)
}

func (s *Server) handleChargeRate(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.CheckAndChargeRate(r.URL.Query().Get("uid"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	body := rateBody{Allowed: d.Allowed, InFlight: d.InFlight}
	if d.Allowed {
		writeJSON(w, http.StatusOK, body)
		return
	}
	body.RetryAfter = retryAfterSeconds(d.RetryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfter))
	writeJSON(w, http.StatusTooManyRequests, body)
}

// handleChatStream streams the coach reply as plain text. Errors raised
// before the first token get a JSON error response; later failures are
// reported in-band by the coach service.
func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	var req chatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON: " + err.Error()})
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	emit := func(delta string) error {
		if !started {
			started = true
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.WriteHeader(http.StatusOK)
		}
		if _, err := w.Write([]byte(delta)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	err := s.svc.StreamChat(r.Context(), req.UID, req.Message, emit)
	switch {
	case err == nil:
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		}
	case started:
		s.log.Warn("chat stream aborted", "uid", req.UID, "error", err)
	default:
		s.writeError(w, err)
	}
}

func (s *Server) handleAlphaIngest(w http.ResponseWriter, r *http.Request) {
	uid, err := models.ValidateUID(r.URL.Query().Get("uid"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.alpha.Ingest(r.Context(), r.Body, uid)
	if err != nil {
		s.log.Error("alpha ingest error", "error", err)
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeError maps service errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	var rerr *coach.RateLimitError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error(), Field: verr.Field})
	case errors.As(err, &rerr):
		secs := retryAfterSeconds(rerr.RetryAfter)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: err.Error(), RetryAfter: secs})
	case errors.Is(err, coach.ErrChatUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, session.ErrUIDMismatch):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error(), Field: "uid"})
	default:
		s.log.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

// retryAfterSeconds rounds d up to whole seconds, minimum 1.
func retryAfterSeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
