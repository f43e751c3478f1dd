package handler

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/api/response"
	"github.com/breatheroute/dosecast/internal/exposure"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/telemetry"
)

// maxSeriesHours bounds the dose curve length.
const maxSeriesHours = 240

// ExposureHandler computes inhaled doses.
type ExposureHandler struct {
	forecast  *forecast.Service
	leadTimes []int
	metrics   *telemetry.ExposureMetrics
	logger    zerolog.Logger
}

// NewExposureHandler creates an ExposureHandler. metrics may be nil.
func NewExposureHandler(svc *forecast.Service, leadTimes []int, metrics *telemetry.ExposureMetrics, logger zerolog.Logger) *ExposureHandler {
	return &ExposureHandler{forecast: svc, leadTimes: leadTimes, metrics: metrics, logger: logger}
}

// Accumulate handles POST /v1/exposure:accumulate.
func (h *ExposureHandler) Accumulate(w http.ResponseWriter, r *http.Request) {
	var input models.AccumulateRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	at, errs := input.Location.Coordinate()
	if len(errs) > 0 {
		response.BadRequest(w, r, "location needs lon and lat", errs)
		return
	}
	rate, err := input.Intake.Rate()
	if err != nil {
		h.fail(w, r, "accumulate", err)
		return
	}

	window := exposure.Window{Start: input.Start, End: input.End}
	if input.Reference != nil {
		window.Reference = *input.Reference
	}
	if err := window.Validate(); err != nil {
		h.fail(w, r, "accumulate", err)
		return
	}

	var (
		dose  float64
		leads []int
	)
	if window.Duration() > 0 {
		table, ok := h.table(w, r, input.Limits, input.LeadTimes)
		if !ok {
			return
		}
		dose, err = exposure.Accumulate(table, at, window, rate)
		if err != nil {
			h.fail(w, r, "accumulate", err)
			return
		}
		leads = table.LeadTimes()
	}
	h.record(r, "accumulate", dose, nil)

	if leads == nil {
		leads = []int{}
	}
	response.JSON(w, r, http.StatusOK, models.AccumulateResponse{
		Dose:      dose,
		Unit:      models.DoseUnit,
		Intake:    rate.String(),
		LeadTimes: leads,
	})
}

// Series handles POST /v1/exposure:series.
func (h *ExposureHandler) Series(w http.ResponseWriter, r *http.Request) {
	var input models.SeriesRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	at, errs := input.Location.Coordinate()
	if len(errs) > 0 {
		response.BadRequest(w, r, "location needs lon and lat", errs)
		return
	}
	if input.Hours < 0 || input.Hours > maxSeriesHours {
		response.BadRequest(w, r, "invalid series length", []models.FieldError{{
			Field:   "hours",
			Message: fmt.Sprintf("must be between 0 and %d", maxSeriesHours),
			Code:    "OUT_OF_RANGE",
		}})
		return
	}
	rate, err := input.Intake.Rate()
	if err != nil {
		h.fail(w, r, "series", err)
		return
	}

	table, ok := h.table(w, r, input.Limits, input.LeadTimes)
	if !ok {
		return
	}
	values, err := exposure.Series(table, at, input.Start, input.Hours, rate)
	if err != nil {
		h.fail(w, r, "series", err)
		return
	}
	h.record(r, "series", values[len(values)-1], nil)

	response.JSON(w, r, http.StatusOK, models.SeriesResponse{Values: values, Unit: models.DoseUnit})
}

// table loads the forecast table the dose is computed from.
func (h *ExposureHandler) table(w http.ResponseWriter, r *http.Request, limits *models.Limits, requested []int) (forecast.Table, bool) {
	if h.forecast == nil {
		response.ServiceUnavailable(w, r, "no forecast source configured")
		return nil, false
	}
	box, errs := limits.BoundingBox()
	if len(errs) > 0 {
		response.BadRequest(w, r, "limits need north, south, west and east", errs)
		return nil, false
	}
	leads := h.leadTimes
	if len(requested) > 0 {
		leads = requested
	}
	if errs := leadTimeErrors("leadTimes", leads); len(errs) > 0 {
		response.BadRequest(w, r, "invalid lead times", errs)
		return nil, false
	}

	table, err := h.forecast.Table(r.Context(), leads, box)
	if err != nil {
		writeError(w, r, h.logger, err)
		return nil, false
	}
	return table, true
}

func (h *ExposureHandler) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	h.record(r, operation, 0, err)
	writeError(w, r, h.logger, err)
}

func (h *ExposureHandler) record(r *http.Request, operation string, dose float64, err error) {
	if h.metrics != nil {
		h.metrics.RecordComputation(r.Context(), operation, dose, err)
	}
}
