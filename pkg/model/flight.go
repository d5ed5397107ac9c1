package model

// Airport is a named reference point used for distance gates.
type Airport struct {
	ICAO string  `json:"icao"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Aircraft describes the airframe bound to a flight.
type Aircraft struct {
	Type         string     `json:"type"`
	Registration string     `json:"registration"`
	EngineType   EngineType `json:"engine_type"`
}

// Flight is the planned flight a tracking session is bound to.
type Flight struct {
	ID          string   `json:"id"`
	Number      string   `json:"number"`
	Origin      Airport  `json:"origin"`
	Destination Airport  `json:"destination"`
	Alternate   *Airport `json:"alternate,omitempty"`
	Aircraft    Aircraft `json:"aircraft"`

	// Ground handling load, drives the fuel and payload timers.
	FuelKg    float64 `json:"fuel_kg"`
	PayloadKg float64 `json:"payload_kg"`
}
