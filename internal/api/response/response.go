// Package response writes JSON and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/breatheroute/dosecast/internal/api/middleware"
	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/exposure"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/region"
)

// JSON writes data with the given status code and the request id header.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 response with a Location header.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// Error writes problem for r.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

// NotFound writes a 404 response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(middleware.GetRequestID(r.Context()), detail))
}

// InternalError writes a 500 response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(middleware.GetRequestID(r.Context()), detail))
}

// ServiceUnavailable writes a 503 response.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(middleware.GetRequestID(r.Context()), detail))
}

// FromError maps a domain error onto its problem response. It reports
// false, writing nothing, for errors it does not recognise.
func FromError(w http.ResponseWriter, r *http.Request, err error) bool {
	p := ProblemFor(middleware.GetRequestID(r.Context()), err)
	if p == nil {
		return false
	}
	Error(w, r, p)
	return true
}

// ProblemFor returns the problem for a domain error, or nil.
func ProblemFor(traceID string, err error) *models.Problem {
	switch {
	case errors.Is(err, forecast.ErrInvalidBoundingBox),
		errors.Is(err, region.ErrInvalidTargetName),
		errors.Is(err, exposure.ErrInvalidUnits),
		errors.Is(err, exposure.ErrInvalidWindow):
		return models.NewBadRequest(traceID, err.Error(), nil)
	case errors.Is(err, forecast.ErrEmptySelection),
		errors.Is(err, forecast.ErrNoDataInArea),
		errors.Is(err, exposure.ErrNoDataInWindow):
		return models.NewNoData(traceID, err.Error())
	case errors.Is(err, exposure.ErrExposureBeyondHorizon):
		return models.NewBeyondHorizon(traceID, err.Error())
	case errors.Is(err, region.ErrSummaryNotFound):
		return models.NewNotFound(traceID, err.Error())
	case errors.Is(err, forecast.ErrSourceUnavailable):
		return models.NewServiceUnavailable(traceID, "forecast source unavailable, try again later")
	}
	return nil
}
