// Package models defines the request and response bodies of the dosecast API.
package models

import (
	"time"

	"github.com/breatheroute/dosecast/internal/forecast"
)

// HealthStatus is the coarse state of the service or a dependency.
type HealthStatus string

const (
	HealthStatusOK       HealthStatus = "OK"
	HealthStatusDegraded HealthStatus = "DEGRADED"
	HealthStatusFail     HealthStatus = "FAIL"
)

// Timestamp is a time.Time that encodes as RFC 3339 in UTC.
type Timestamp time.Time

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(t).UTC().Format(time.RFC3339) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return &time.ParseError{Layout: time.RFC3339, Value: string(data)}
	}
	parsed, err := time.Parse(time.RFC3339, string(data[1:len(data)-1]))
	if err != nil {
		return err
	}
	*t = Timestamp(parsed)
	return nil
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// Limits is the wire form of a bounding box. Every edge is required; a
// missing key is reported as an invalid bounding box.
type Limits struct {
	North *float64 `json:"north"`
	South *float64 `json:"south"`
	West  *float64 `json:"west"`
	East  *float64 `json:"east"`
}

// BoundingBox converts l. A nil receiver yields a nil box.
func (l *Limits) BoundingBox() (*forecast.BoundingBox, []FieldError) {
	if l == nil {
		return nil, nil
	}
	var missing []FieldError
	for _, f := range []struct {
		name string
		v    *float64
	}{{"limits.north", l.North}, {"limits.south", l.South}, {"limits.west", l.West}, {"limits.east", l.East}} {
		if f.v == nil {
			missing = append(missing, FieldError{Field: f.name, Message: "required", Code: "REQUIRED"})
		}
	}
	if len(missing) > 0 {
		return nil, missing
	}
	return &forecast.BoundingBox{North: *l.North, South: *l.South, West: *l.West, East: *l.East}, nil
}

// Location is the wire form of an exposure location.
type Location struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

// Coordinate converts l, reporting missing fields.
func (l *Location) Coordinate() (forecast.Coordinate, []FieldError) {
	if l == nil {
		return forecast.Coordinate{}, []FieldError{{Field: "location", Message: "required", Code: "REQUIRED"}}
	}
	var errs []FieldError
	if l.Lon == nil {
		errs = append(errs, FieldError{Field: "location.lon", Message: "required", Code: "REQUIRED"})
	}
	if l.Lat == nil {
		errs = append(errs, FieldError{Field: "location.lat", Message: "required", Code: "REQUIRED"})
	}
	if len(errs) > 0 {
		return forecast.Coordinate{}, errs
	}
	return forecast.Coordinate{Lon: *l.Lon, Lat: *l.Lat}, nil
}
