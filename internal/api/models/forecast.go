package models

import "github.com/breatheroute/dosecast/internal/forecast"

// TableResponse is the body of GET /v1/forecast/table.
type TableResponse struct {
	LeadTimes []int          `json:"leadTimes"`
	Rows      forecast.Table `json:"rows"`
}
