package model

import "time"

// TrackPoint is one recorded position of the flown track.
type TrackPoint struct {
	Lat      float64   `json:"lat"`
	Lon      float64   `json:"lon"`
	Altitude float64   `json:"altitude"`
	Time     time.Time `json:"time"`
}

// FlightReport is handed to the submission collaborator once per completed session.
type FlightReport struct {
	ID            string           `json:"id"`
	Flight        Flight           `json:"flight"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	FinalPhase    FlightPhase      `json:"final_phase"`
	TimeWarp      time.Duration    `json:"time_warp"`
	Events        []TrackingEvent  `json:"events"`
	Track         []TrackPoint     `json:"track"`
	LastPrimary   *PrimarySample   `json:"last_primary,omitempty"`
	LastSecondary *SecondarySample `json:"last_secondary,omitempty"`
	Touchdown     *LandingSample   `json:"touchdown,omitempty"`
}
