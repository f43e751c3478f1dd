package models

// Health is the liveness and readiness body.
type Health struct {
	Status  HealthStatus           `json:"status"`
	Time    Timestamp              `json:"time"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemStatus reports the forecast cache and every remote source.
type SystemStatus struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Cache   CacheStatus    `json:"cache"`
	Sources []SourceStatus `json:"sources"`
}

// CacheStatus describes the decoded grid cache.
type CacheStatus struct {
	Source    string     `json:"source"`
	LeadTimes []int      `json:"leadTimes"`
	Expired   []int      `json:"expired,omitempty"`
	OldestAt  *Timestamp `json:"oldestAt,omitempty"`
}

// SourceStatus describes one remote grid source.
type SourceStatus struct {
	Name          string       `json:"name"`
	Status        HealthStatus `json:"status"`
	CircuitState  string       `json:"circuitState"`
	LastSuccessAt *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt *Timestamp   `json:"lastFailureAt,omitempty"`
	Message       *string      `json:"message,omitempty"`
}
