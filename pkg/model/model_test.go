package model

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlightPhase_Text(t *testing.T) {
	tests := []struct {
		in      string
		want    FlightPhase
		wantErr bool
	}{
		{"TaxiOut", PhaseTaxiOut, false},
		{"taxiout", PhaseTaxiOut, false},
		{"PostFlight", PhasePostFlight, false},
		{"Hover", PhaseUnTracked, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p FlightPhase
			err := p.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, p)
		})
	}
	assert.Equal(t, "FlightPhase(99)", FlightPhase(99).String())
}

func TestTrackingStatus_IsActive(t *testing.T) {
	active := map[TrackingStatus]bool{
		StatusNotTracking:      false,
		StatusPreparing:        false,
		StatusGroundOperations: true,
		StatusTracking:         true,
		StatusResuming:         true,
	}
	for s, want := range active {
		t.Run(s.String(), func(t *testing.T) {
			assert.Equal(t, want, s.IsActive())
		})
	}
}

func TestTrackingStatus_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]TrackingStatus{"status": StatusGroundOperations})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"GroundOperations"}`, string(data))

	var out map[string]TrackingStatus
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, StatusGroundOperations, out["status"])
}

func TestMarkerFor(t *testing.T) {
	e := TrackingEvent{
		ID:       uuid.New(),
		Type:     EventViolation,
		Severity: SeverityViolation,
		Message:  "Overspeed",
		Telemetry: SnapshotOf(PrimarySample{
			Latitude:          50.1,
			Longitude:         8.6,
			AltitudeIndicated: 12000,
		}, PhaseClimb),
	}

	m := MarkerFor(e)
	assert.Equal(t, 50.1, m.Lat)
	assert.Equal(t, 8.6, m.Lon)
	assert.Equal(t, "#c62828", m.Color)
	assert.Equal(t, "Overspeed", m.Label)
	assert.Equal(t, e.ID.String(), m.EventID)
	assert.Equal(t, 12000.0, e.Telemetry.Altitude)
	assert.Equal(t, PhaseClimb, e.Telemetry.Phase)
}

func TestEngineType_IsJetOrTurboprop(t *testing.T) {
	assert.True(t, EngineJet.IsJetOrTurboprop())
	assert.True(t, EngineTurboprop.IsJetOrTurboprop())
	assert.False(t, EnginePiston.IsJetOrTurboprop())
	assert.False(t, EngineHelo.IsJetOrTurboprop())
}
