package models

// CropRegionRequest is the body of POST /v1/regions:crop. Exactly one of
// Limits and Preset selects the box.
type CropRegionRequest struct {
	Limits     *Limits `json:"limits,omitempty"`
	Preset     string  `json:"preset,omitempty"`
	TargetName string  `json:"targetName,omitempty"`
}

// RegionListResponse is the body of GET /v1/regions.
type RegionListResponse struct {
	Names   []string `json:"names"`
	Presets []string `json:"presets"`
}
