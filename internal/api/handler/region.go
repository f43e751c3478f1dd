package handler

import (
	"net/http"
	"net/url"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/api/response"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/region"
)

// RegionHandler crops the boundary collection and serves stored summaries.
type RegionHandler struct {
	boundaries *region.Collection
	repo       region.Repository
	logger     zerolog.Logger
}

// NewRegionHandler creates a RegionHandler.
func NewRegionHandler(boundaries *region.Collection, repo region.Repository, logger zerolog.Logger) *RegionHandler {
	return &RegionHandler{boundaries: boundaries, repo: repo, logger: logger}
}

// Crop handles POST /v1/regions:crop. With a targetName the summary is
// stored and answered with 201 and its location.
func (h *RegionHandler) Crop(w http.ResponseWriter, r *http.Request) {
	var input models.CropRegionRequest
	if !decodeJSON(w, r, &input) {
		return
	}
	if h.boundaries == nil {
		response.ServiceUnavailable(w, r, "no boundary collection configured")
		return
	}

	box, ok := h.resolveBox(w, r, input)
	if !ok {
		return
	}

	summary, err := region.CropRegion(h.boundaries, box, input.TargetName)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	if input.TargetName == "" {
		response.JSON(w, r, http.StatusOK, summary)
		return
	}
	if h.repo == nil {
		response.ServiceUnavailable(w, r, "no region store configured")
		return
	}
	if err := h.repo.Save(r.Context(), input.TargetName, summary); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.logger.Info().
		Str("target_name", input.TargetName).
		Int("features", len(summary.Features)).
		Msg("region summary stored")
	response.Created(w, r, "/v1/regions/"+url.PathEscape(input.TargetName), summary)
}

func (h *RegionHandler) resolveBox(w http.ResponseWriter, r *http.Request, input models.CropRegionRequest) (*forecast.BoundingBox, bool) {
	if input.Preset != "" {
		if input.Limits != nil {
			response.BadRequest(w, r, "give either limits or preset, not both", []models.FieldError{
				{Field: "preset", Message: "conflicts with limits", Code: "CONFLICT"},
			})
			return nil, false
		}
		preset, ok := region.Presets[input.Preset]
		if !ok {
			response.BadRequest(w, r, "unknown preset", []models.FieldError{
				{Field: "preset", Message: "unknown preset " + input.Preset, Code: "UNKNOWN"},
			})
			return nil, false
		}
		return &preset, true
	}

	box, errs := input.Limits.BoundingBox()
	if len(errs) > 0 {
		response.BadRequest(w, r, "limits need north, south, west and east", errs)
		return nil, false
	}
	// A nil box reaches CropRegion, which reports it as an invalid bounding box.
	return box, true
}

// Get handles GET /v1/regions/{name}.
func (h *RegionHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		response.ServiceUnavailable(w, r, "no region store configured")
		return
	}
	summary, err := h.repo.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, summary)
}

// List handles GET /v1/regions.
func (h *RegionHandler) List(w http.ResponseWriter, r *http.Request) {
	out := models.RegionListResponse{Names: []string{}, Presets: make([]string, 0, len(region.Presets))}
	for name := range region.Presets {
		out.Presets = append(out.Presets, name)
	}
	sort.Strings(out.Presets)

	if h.repo != nil {
		names, err := h.repo.List(r.Context())
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if names != nil {
			out.Names = names
		}
	}
	response.JSON(w, r, http.StatusOK, out)
}
