package types

// ---- Sampler state (retained) ----

// Link is the link/state reported for the sensor.
type Link string

const (
	LinkUp       Link = "up"
	LinkDown     Link = "down"
	LinkDegraded Link = "degraded"
)

type CapabilityStatus struct {
	Link  Link   `json:"link"`
	TS    int64  `json:"ts_ms"`
	Error string `json:"error,omitempty"`
}

// Info envelope the sensor exposes (retained).
type Info struct {
	SchemaVersion int    `json:"schema_version"`
	Driver        string `json:"driver"`
	Detail        any    `json:"detail,omitempty"`
}

// ErrorReply answers a failed request.
type ErrorReply struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ---- Bridge state (retained) ----

type BridgeState struct {
	Level  string `json:"level"`  // "idle", "up", "degraded", "down", "error"
	Status string `json:"status"` // short code
	TS     int64  `json:"ts_ms"`
	Error  string `json:"error,omitempty"`
}
