package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/TobiSchelling/segasurvey/internal/generate"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

type sessionRequest struct {
	SessionID string `json:"session_id" validate:"max=64"`
	lyrics.Preferences
	// Birthday (YYYY-MM-DD) is used when Age is not given.
	Birthday string `json:"birthday"`
	// SentimentLabel (hate/no/neutral/ok/pro) is used when AISentiment is
	// not given.
	SentimentLabel string `json:"ai_sentiment_label"`
}

type sessionResponse struct {
	SessionID   string             `json:"session_id"`
	Preferences lyrics.Preferences `json:"preferences"`
}

func (s *Server) handleUpsertSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}

	prefs := req.Preferences
	if prefs.Age == 0 && req.Birthday != "" {
		bd, err := time.Parse(time.DateOnly, req.Birthday)
		if err != nil {
			HandleError(w, &ValidationError{
				Message: "validation failed",
				Fields:  map[string]string{"birthday": "must be a date like 2001-06-30"},
			}, s.logger)
			return
		}
		prefs.Age = lyrics.AgeFromBirthday(bd, time.Now())
	}
	if prefs.AISentiment == 0 && req.SentimentLabel != "" {
		prefs.AISentiment = lyrics.ParseSentiment(req.SentimentLabel)
	}

	sessionID := strings.TrimSpace(req.SessionID)
	status := http.StatusOK
	if sessionID == "" {
		sessionID = uuid.NewString()
		status = http.StatusCreated
	}

	if err := s.db.UpsertSession(r.Context(), sessionID, prefs.Age, prefs.SegaFamiliarity, prefs.AISentiment); err != nil {
		HandleError(w, err, s.logger)
		return
	}
	JSON(w, status, sessionResponse{SessionID: sessionID, Preferences: prefs}, s.logger)
}

type generateResponse struct {
	SessionID string `json:"session_id"`
	Queued    bool   `json:"queued"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	ip := clientIP(r)

	if !s.isWhitelisted(ip) {
		voted, err := s.db.IsIPLocked(r.Context(), ip)
		if err != nil {
			HandleError(w, err, s.logger)
			return
		}
		if voted {
			Error(w, http.StatusForbidden, "this device has already taken part in the survey", s.logger)
			return
		}
		if !s.limiter.Allow(ip) {
			Error(w, http.StatusTooManyRequests, "too many requests, please slow down", s.logger)
			return
		}
	}

	if s.pool == nil {
		HandleError(w, generate.ErrNoProvider, s.logger)
		return
	}
	if !s.pool.Submit(sessionID) {
		Error(w, http.StatusServiceUnavailable, "generation queue is full, please try again", s.logger)
		return
	}
	JSON(w, http.StatusAccepted, generateResponse{SessionID: sessionID, Queued: true}, s.logger)
}

func (s *Server) handleAIStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	st, err := s.gen.Status(r.Context(), sessionID)
	if err != nil {
		HandleError(w, err, s.logger)
		return
	}
	if !st.Ready && s.pool != nil && s.pool.InFlight(sessionID) {
		st.State = generate.StateGenerating
	}
	Success(w, st, s.logger)
}

type aiLyricsResponse struct {
	SessionID string        `json:"session_id"`
	Items     []lyrics.Item `json:"items"`
	Count     int           `json:"count"`
}

// handleAILyrics returns the session's AI items. With ?wait=true it polls
// until generation has produced a full set or the wait budget runs out.
func (s *Server) handleAILyrics(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	fetcher := s.mixer.Fetcher()

	var items []lyrics.Item
	var err error
	if r.URL.Query().Get("wait") == "true" {
		items, err = fetcher.WaitForSession(r.Context(), sessionID, s.cfg.Survey.WaitInterval, s.cfg.Survey.WaitAttempts)
	} else {
		items, err = fetcher.FetchAILyrics(r.Context(), sessionID)
	}
	if err != nil {
		HandleError(w, err, s.logger)
		return
	}
	if items == nil {
		items = []lyrics.Item{}
	}
	Success(w, aiLyricsResponse{SessionID: sessionID, Items: items, Count: len(items)}, s.logger)
}

type mixRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	lyrics.Preferences
}

// handleMix builds the participant's list. Preferences missing from the
// request are taken from the stored session.
func (s *Server) handleMix(w http.ResponseWriter, r *http.Request) {
	var req mixRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}

	prefs := req.Preferences
	if prefs == (lyrics.Preferences{}) {
		sess, err := s.db.GetSession(r.Context(), req.SessionID)
		if err != nil {
			HandleError(w, err, s.logger)
			return
		}
		if sess != nil {
			prefs = lyrics.Preferences{
				Age:             deref(sess.ParticipantAge),
				SegaFamiliarity: deref(sess.SegaFamiliarity),
				AISentiment:     deref(sess.AISentiment),
			}
		}
	}

	res, err := s.mixer.Mix(r.Context(), req.SessionID, prefs)
	if err != nil {
		HandleError(w, err, s.logger)
		return
	}
	Success(w, res, s.logger)
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
