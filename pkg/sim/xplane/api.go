package xplane

import "encoding/json"

// Wire types of the X-Plane 12 web API (/api/v2).

type datarefInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ValueType string `json:"value_type"`
}

type datarefsResponse struct {
	Data []datarefInfo `json:"data"`
}

type subDataref struct {
	ID int64 `json:"id"`
}

type subscribeParams struct {
	Datarefs []subDataref `json:"datarefs"`
}

type subscribeRequest struct {
	RequestID int64           `json:"req_id"`
	Type      string          `json:"type"`
	Params    subscribeParams `json:"params"`
}

type message struct {
	RequestID int64           `json:"req_id"`
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Success   bool            `json:"success,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
	ErrorMsg  string          `json:"error_message,omitempty"`
}

const (
	typeSubscribe = "dataref_subscribe_values"
	typeUpdate    = "dataref_update_values"
	typeResult    = "result"
)
