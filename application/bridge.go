package application

// Package-level note: the HTTP bridge is an external collaborator per spec
// §1 ("out of scope... a thin adapter over the protocol engine"). This
// file specifies only the Go-shaped contract a separate bridge module
// would implement against a Controller; no HTTP server is implemented in
// this module.

// BridgeCommand is the body of the bridge's POST /command request (spec
// §6: "{command, value}").
type BridgeCommand struct {
	Command string `json:"command"`
	Value   any    `json:"value"`
}

// BridgeCommandNames maps the bridge's command vocabulary to the DP it
// writes, per spec §6.
var BridgeCommandNames = map[string]int{
	"power":       1,
	"target_temp": 2,
	"mode":        4,
	"fan":         5,
	"vert_swing":  113,
	"horiz_swing": 114,
}

// BridgeResponse is the shape returned by every bridge endpoint.
type BridgeResponse struct {
	Success bool `json:"success"`
	Status  any  `json:"status,omitempty"`
}
