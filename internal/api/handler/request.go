package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/api/response"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// maxLeadTime bounds requested lead times; forecasts run at most ten days.
const maxLeadTime = 240

// decodeJSON decodes the request body into dst, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.BadRequest(w, r, fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit), nil)
			return false
		}
		response.BadRequest(w, r, "invalid JSON body: "+err.Error(), nil)
		return false
	}
	return true
}

// writeError maps err to a problem response, logging and answering 500 for
// errors with no mapping.
func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	if response.FromError(w, r, err) {
		return
	}
	log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	response.InternalError(w, r, "an unexpected error occurred")
}

// parseLeadTimes parses a comma-separated lead time list.
func parseLeadTimes(raw string) ([]int, error) {
	var leads []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lt, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("lead time %q is not an integer", part)
		}
		leads = append(leads, lt)
	}
	return leads, nil
}

// leadTimeErrors reports out-of-range lead times.
func leadTimeErrors(field string, leads []int) []models.FieldError {
	var errs []models.FieldError
	for i, lt := range leads {
		if lt < 0 || lt > maxLeadTime {
			errs = append(errs, models.FieldError{
				Field:   fmt.Sprintf("%s[%d]", field, i),
				Message: fmt.Sprintf("must be between 0 and %d", maxLeadTime),
				Code:    "OUT_OF_RANGE",
			})
		}
	}
	return errs
}

// limitsFromQuery reads north/south/west/east query parameters. All four
// or none must be present.
func limitsFromQuery(r *http.Request) (*models.Limits, []models.FieldError) {
	q := r.URL.Query()
	var (
		limits  models.Limits
		present int
		errs    []models.FieldError
	)
	for _, edge := range []struct {
		name string
		dst  **float64
	}{{"north", &limits.North}, {"south", &limits.South}, {"west", &limits.West}, {"east", &limits.East}} {
		raw := q.Get(edge.name)
		if raw == "" {
			continue
		}
		present++
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			errs = append(errs, models.FieldError{Field: edge.name, Message: "must be a number", Code: "INVALID"})
			continue
		}
		*edge.dst = &v
	}
	if len(errs) > 0 {
		return nil, errs
	}
	if present == 0 {
		return nil, nil
	}
	return &limits, nil
}
