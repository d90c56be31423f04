package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/krampattern/kram-api/internal/generator"
	"github.com/krampattern/kram-api/internal/kramai"
)

// GenerateKramPattern runs the full generation pipeline for one request.
func GenerateKramPattern(w http.ResponseWriter, r *http.Request, gen *generator.Generator) {
	var req generator.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := gen.Generate(r.Context(), req)
	if err != nil {
		status, msg := generateErrorStatus(err)
		writeError(w, status, msg)
		return
	}

	// debug travels in the envelope, not inside the data payload
	debug := res.Debug
	res.Debug = nil
	writeJSON(w, http.StatusCreated, Envelope{
		Success: true,
		Data:    res,
		Message: "kram pattern generated",
		Debug:   debug,
	})
}

// generateErrorStatus maps a pipeline failure to an HTTP status and a
// human-readable message.
func generateErrorStatus(err error) (int, string) {
	var verr *generator.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, strings.Join(verr.Errors, "; ")
	}
	var nferr *generator.TagNotFoundError
	if errors.As(err, &nferr) {
		return http.StatusNotFound, nferr.Error()
	}

	var perr *generator.PhaseError
	if errors.As(err, &perr) {
		switch perr.Phase {
		case generator.PhaseValidation:
			return http.StatusBadRequest, perr.Err.Error()
		case generator.PhasePersist:
			return http.StatusInternalServerError, "failed to persist generation"
		}

		switch kramai.KindOf(perr.Err) {
		case kramai.KindContentPolicy:
			return http.StatusBadRequest, "prompt was rejected by the content policy"
		case kramai.KindInvalidRequest:
			return http.StatusBadRequest, "generation options were rejected upstream"
		case kramai.KindRateLimit, kramai.KindQuota:
			return http.StatusTooManyRequests, "upstream rate limit reached, try again later"
		default:
			return http.StatusBadGateway, string(perr.Phase) + " failed"
		}
	}

	return http.StatusInternalServerError, "generation failed"
}
