package models

import (
	"time"

	"github.com/breatheroute/dosecast/internal/exposure"
)

// Intake is the wire form of a breathing rate. Exactly one field is set.
type Intake struct {
	CubicMetersPerMinute *float64 `json:"cubicMetersPerMinute,omitempty"`
	LitersPerMinute      *float64 `json:"litersPerMinute,omitempty"`
}

// Rate converts i.
func (i Intake) Rate() (exposure.IntakeRate, error) {
	return exposure.ParseIntakeRate(i.CubicMetersPerMinute, i.LitersPerMinute)
}

// AccumulateRequest is the body of POST /v1/exposure:accumulate.
type AccumulateRequest struct {
	Location  *Location  `json:"location"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Reference *time.Time `json:"reference,omitempty"`
	Intake    Intake     `json:"intake"`
	Limits    *Limits    `json:"limits,omitempty"`
	LeadTimes []int      `json:"leadTimes,omitempty"`
}

// AccumulateResponse is the dose over the requested window.
type AccumulateResponse struct {
	Dose      float64 `json:"dose"`
	Unit      string  `json:"unit"`
	Intake    string  `json:"intake"`
	LeadTimes []int   `json:"leadTimes"`
}

// SeriesRequest is the body of POST /v1/exposure:series.
type SeriesRequest struct {
	Location  *Location `json:"location"`
	Start     time.Time `json:"start"`
	Hours     int       `json:"hours"`
	Intake    Intake    `json:"intake"`
	Limits    *Limits   `json:"limits,omitempty"`
	LeadTimes []int     `json:"leadTimes,omitempty"`
}

// SeriesResponse is the cumulative dose at each whole hour after start.
type SeriesResponse struct {
	Values []float64 `json:"values"`
	Unit   string    `json:"unit"`
}

// DoseUnit labels doses computed from concentrations in µg/m³.
const DoseUnit = "µg"
