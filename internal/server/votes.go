package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/TobiSchelling/segasurvey/internal/database"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

type voteInput struct {
	LyricID string `json:"lyric_id"`
	Genre   string `json:"genre"`
	Vote    string `json:"vote"`
	IsAI    bool   `json:"is_ai"`
}

type votesRequest struct {
	SessionID string      `json:"session_id" validate:"required,max=64"`
	Votes     []voteInput `json:"votes" validate:"required,max=50"`
}

type votesResponse struct {
	SessionID string `json:"session_id"`
	Saved     int    `json:"saved"`
	Skipped   int    `json:"skipped"`
}

// handleSaveVotes replaces the session's votes. Incomplete votes and votes
// for unknown genres are skipped and counted.
func (s *Server) handleSaveVotes(w http.ResponseWriter, r *http.Request) {
	var req votesRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}

	votes := make([]database.Vote, 0, len(req.Votes))
	skipped := 0
	for _, v := range req.Votes {
		genre := strings.ToLower(strings.TrimSpace(v.Genre))
		if v.LyricID == "" || v.Vote == "" || !lyrics.IsKnownGenre(genre) {
			s.logger.Warn("skipping vote", "session_id", req.SessionID, "lyric_id", v.LyricID, "genre", v.Genre)
			skipped++
			continue
		}
		votes = append(votes, database.Vote{LyricID: v.LyricID, Genre: genre, IsAI: v.IsAI, Vote: v.Vote})
	}

	if err := s.db.SaveVotes(r.Context(), req.SessionID, votes); err != nil {
		HandleError(w, err, s.logger)
		return
	}
	Success(w, votesResponse{SessionID: req.SessionID, Saved: len(votes), Skipped: skipped}, s.logger)
}

type opinionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	Opinion   string `json:"opinion" validate:"required"`
}

func (s *Server) handleOpinion(w http.ResponseWriter, r *http.Request) {
	var req opinionRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}

	opinion := strings.TrimSpace(req.Opinion)
	limit := s.cfg.Survey.OpinionWordLimit
	if words := len(strings.Fields(opinion)); limit > 0 && words > limit {
		HandleError(w, &ValidationError{
			Message: "validation failed",
			Fields:  map[string]string{"opinion": fmt.Sprintf("must not exceed %d words", limit)},
		}, s.logger)
		return
	}

	if err := s.db.UpdateOpinion(r.Context(), req.SessionID, opinion); err != nil {
		HandleError(w, err, s.logger)
		return
	}
	Success(w, map[string]string{"session_id": req.SessionID}, s.logger)
}

type voteLockRequest struct {
	SessionID string `json:"session_id" validate:"required,max=64"`
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
}

type voteLockResponse struct {
	Locked      bool `json:"locked"`
	Created     bool `json:"created"`
	Whitelisted bool `json:"whitelisted"`
}

// handleVoteLock marks the caller's address as having voted. Whitelisted
// addresses are never locked.
func (s *Server) handleVoteLock(w http.ResponseWriter, r *http.Request) {
	var req voteLockRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}
	ip := req.IPAddress
	if ip == "" {
		ip = clientIP(r)
	}

	if s.isWhitelisted(ip) {
		Success(w, voteLockResponse{Whitelisted: true}, s.logger)
		return
	}

	created, err := s.db.LockIP(r.Context(), ip, req.SessionID)
	if err != nil {
		HandleError(w, err, s.logger)
		return
	}
	s.logger.Info("vote locked", "session_id", req.SessionID, "new", created)
	Success(w, voteLockResponse{Locked: true, Created: created}, s.logger)
}

type voteStatusRequest struct {
	IPAddress string `json:"ip_address" validate:"omitempty,ip"`
}

type voteStatusResponse struct {
	HasVoted    bool `json:"has_voted"`
	Whitelisted bool `json:"whitelisted"`
}

func (s *Server) handleVoteStatus(w http.ResponseWriter, r *http.Request) {
	var req voteStatusRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		HandleError(w, err, s.logger)
		return
	}
	ip := req.IPAddress
	if ip == "" {
		ip = clientIP(r)
	}

	if s.isWhitelisted(ip) {
		Success(w, voteStatusResponse{Whitelisted: true}, s.logger)
		return
	}
	voted, err := s.db.IsIPLocked(r.Context(), ip)
	if err != nil {
		HandleError(w, err, s.logger)
		return
	}
	Success(w, voteStatusResponse{HasVoted: voted}, s.logger)
}
