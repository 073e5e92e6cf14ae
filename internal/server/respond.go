package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/TobiSchelling/segasurvey/internal/generate"
	"github.com/TobiSchelling/segasurvey/internal/lyrics"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Success bool              `json:"success"`
}

// JSON writes data wrapped in an Envelope with the given status code.
func JSON(w http.ResponseWriter, status int, data any, logger *slog.Logger) {
	writeEnvelope(w, status, Envelope{Success: status < 400, Data: data}, logger)
}

// Success writes a 200 response.
func Success(w http.ResponseWriter, data any, logger *slog.Logger) {
	JSON(w, http.StatusOK, data, logger)
}

// Error writes an error response.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	writeEnvelope(w, status, Envelope{Error: message}, logger)
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

// HandleError maps domain errors to status codes. Anything unrecognized
// is logged and reported as a generic failure.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeEnvelope(w, http.StatusBadRequest, Envelope{Error: verr.Error(), Fields: verr.Fields}, logger)
	case errors.Is(err, lyrics.ErrEmptyCorpus), errors.Is(err, lyrics.ErrInvalidSelectionSize):
		logger.Error("corpus cannot serve a mix", "error", err)
		Error(w, http.StatusServiceUnavailable, "no lyrics available yet, please try again later", logger)
	case errors.Is(err, lyrics.ErrGenerationTimeout):
		Error(w, http.StatusRequestTimeout, "lyrics are still being written, please try again", logger)
	case errors.Is(err, generate.ErrNoProvider):
		Error(w, http.StatusServiceUnavailable, "lyric generation is not configured", logger)
	default:
		logger.Error("unhandled error", "error", err)
		Error(w, http.StatusInternalServerError, "something went wrong, please try again", logger)
	}
}

// decodeJSON parses the body into v and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return &ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}
	return s.validator.Validate(v)
}

// clientIP returns the caller's address. RealIP middleware has already
// applied X-Forwarded-For and X-Real-IP to RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
