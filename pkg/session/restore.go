package session

import (
	"context"
	"log/slog"

	"simtrack/pkg/geo"
	"simtrack/pkg/model"
)

// ResumeInfo describes whether the saved flight can be resumed from the
// current aircraft position.
type ResumeInfo struct {
	Available    bool                 `json:"available"`
	FlightNumber string               `json:"flight_number,omitempty"`
	Target       model.TrackingStatus `json:"target"`
	Phase        model.FlightPhase    `json:"phase"`
	DistanceNM   float64              `json:"distance_nm"`
	InRange      bool                 `json:"in_range"`
}

// CheckResume compares the saved position with the current one. The
// controller performs the same check on the first sample after resuming;
// this only lets the GUI grey out the resume action early.
func CheckResume(ctx context.Context, mgr *Manager, current *model.PrimarySample, maxNM float64) ResumeInfo {
	ps, err := mgr.Saved(ctx)
	if err != nil {
		slog.Error("Session: failed to read saved flight", "error", err)
		return ResumeInfo{}
	}
	if ps == nil {
		return ResumeInfo{}
	}

	s := ps.Session
	info := ResumeInfo{
		Available:    true,
		FlightNumber: s.Flight.Number,
		Target:       s.ResumeTarget,
		Phase:        s.Phase,
		DistanceNM:   -1,
	}
	if current == nil || s.LastPrimary == nil {
		// Unknown position, the controller decides on the first sample.
		info.InRange = true
		return info
	}

	info.DistanceNM = geo.DistanceNM(geo.Point{Lat: ps.Lat, Lon: ps.Lon}, geo.Point{Lat: current.Latitude, Lon: current.Longitude})
	info.InRange = maxNM <= 0 || info.DistanceNM <= maxNM
	return info
}
