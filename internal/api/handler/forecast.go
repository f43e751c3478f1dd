package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/api/response"
	"github.com/breatheroute/dosecast/internal/forecast"
)

// ForecastHandler serves cropped forecast tables.
type ForecastHandler struct {
	forecast  *forecast.Service
	leadTimes []int
	logger    zerolog.Logger
}

// NewForecastHandler creates a ForecastHandler. leadTimes is used when a
// request names none.
func NewForecastHandler(svc *forecast.Service, leadTimes []int, logger zerolog.Logger) *ForecastHandler {
	return &ForecastHandler{forecast: svc, leadTimes: leadTimes, logger: logger}
}

// Table handles GET /v1/forecast/table?leadTimes=0,1,2&north=&south=&west=&east=.
func (h *ForecastHandler) Table(w http.ResponseWriter, r *http.Request) {
	if h.forecast == nil {
		response.ServiceUnavailable(w, r, "no forecast source configured")
		return
	}

	leads := h.leadTimes
	if raw := r.URL.Query().Get("leadTimes"); raw != "" {
		parsed, err := parseLeadTimes(raw)
		if err != nil {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		leads = parsed
	}
	if errs := leadTimeErrors("leadTimes", leads); len(errs) > 0 {
		response.BadRequest(w, r, "invalid lead times", errs)
		return
	}

	limits, errs := limitsFromQuery(r)
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid limits", errs)
		return
	}
	box, errs := limits.BoundingBox()
	if len(errs) > 0 {
		response.BadRequest(w, r, "limits need north, south, west and east", errs)
		return
	}
	// Rejected before any grid is fetched.
	if box != nil {
		if err := box.Validate(); err != nil {
			writeError(w, r, h.logger, err)
			return
		}
	}

	table, err := h.forecast.Table(r.Context(), leads, box)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if table == nil {
		table = forecast.Table{}
	}
	present := table.LeadTimes()
	if present == nil {
		present = []int{}
	}

	response.JSON(w, r, http.StatusOK, models.TableResponse{
		LeadTimes: present,
		Rows:      table,
	})
}
