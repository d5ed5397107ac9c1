package detector

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simtrack/pkg/model"
	"simtrack/pkg/tracking"
)

var (
	t0     = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	flight = model.Flight{
		ID: "f1", Number: "DLH100",
		Origin:      model.Airport{ICAO: "EDDF", Lat: 50.0379, Lon: 8.5622},
		Destination: model.Airport{ICAO: "EDDM", Lat: 48.3538, Lon: 11.7861},
		Aircraft:    model.Aircraft{Type: "A320", EngineType: model.EngineJet},
		FuelKg:      5000, PayloadKg: 8000,
	}
)

type sinks struct {
	mu        sync.Mutex
	banners   []string
	prompts   []tracking.Prompt
	reports   []*model.FlightReport
	saved     int
	deleted   int
	lastSaved *tracking.Session
}

func (f *sinks) PropertyChanged(string, any)                     {}
func (f *sinks) EventAdded(model.TrackingEvent, model.MapMarker) {}
func (f *sinks) Banner(msg string, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.banners = append(f.banners, msg)
}
func (f *sinks) PlaySound(tracking.Sound) {}
func (f *sinks) Say(p tracking.Prompt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, p)
}
func (f *sinks) FinishUpFlightTracking(_ context.Context, r *model.FlightReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, r)
}
func (f *sinks) SaveSession(_ context.Context, s *tracking.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved++
	f.lastSaved = s
	return nil
}
func (f *sinks) LoadSession(context.Context) (*tracking.Session, error) { return nil, nil }
func (f *sinks) DeleteSession(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted++
	return nil
}

type harness struct {
	t    *testing.T
	ctrl *tracking.Controller
	det  *Detector
	out  *sinks
}

func newHarness(t *testing.T, status model.TrackingStatus) *harness {
	t.Helper()
	out := &sinks{}
	ctrl := tracking.NewController(tracking.DefaultConfig(), tracking.Sinks{
		Notifier: out, Announcer: out, Finalizer: out, Saver: out,
	})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	ctrl.Start(ctx)
	ctrl.SetClock(func() time.Time { return t0 })

	require.NoError(t, ctrl.StartTracking(ctx, flight))
	if status == model.StatusTracking {
		require.True(t, ctrl.SkipGroundHandling(ctx, true))
	}
	require.Equal(t, status, ctrl.Status())

	// Ignore the bookkeeping of starting the session.
	out.deleted, out.prompts = 0, nil
	return &harness{t: t, ctrl: ctrl, det: New(DefaultConfig()), out: out}
}

func (h *harness) with(fn func(s *tracking.Session)) {
	h.ctrl.Update(context.Background(), func(s *tracking.Session, _ tracking.Effects) { fn(s) })
}

func (h *harness) secondary(old, cur model.SecondarySample) []model.TrackingEvent {
	var events []model.TrackingEvent
	h.ctrl.Update(context.Background(), func(s *tracking.Session, fx tracking.Effects) {
		c := cur
		s.LastSecondary = &c
		events = h.det.DetectSecondary(s, fx, model.Pair[model.SecondarySample]{Old: old, New: cur})
	})
	return events
}

func (h *harness) primary(old, cur model.PrimarySample) []model.TrackingEvent {
	var events []model.TrackingEvent
	h.ctrl.Update(context.Background(), func(s *tracking.Session, fx tracking.Effects) {
		c := cur
		s.LastPrimary = &c
		events = h.det.DetectPrimary(s, fx, model.Pair[model.PrimarySample]{Old: old, New: cur})
	})
	return events
}

func baseSecondary() model.SecondarySample {
	return model.SecondarySample{CrashDetection: true, BatteryMaster: true, BeaconLight: true}
}

func parked() model.PrimarySample {
	return model.PrimarySample{
		Timestamp: t0, Latitude: 50.0379, Longitude: 8.5622,
		OnGround: true, SimulationRate: 1, SimTime: t0,
	}
}

func messages(events []model.TrackingEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Message
	}
	return out
}

func TestDetectSecondary_InactiveSessionIgnored(t *testing.T) {
	ctrl := tracking.NewController(tracking.DefaultConfig(), tracking.Sinks{})
	det := New(DefaultConfig())
	var events []model.TrackingEvent
	ctrl.Update(context.Background(), func(s *tracking.Session, fx tracking.Effects) {
		events = det.DetectSecondary(s, fx, model.Pair[model.SecondarySample]{New: model.SecondarySample{}})
	})
	assert.Empty(t, events)
	assert.Equal(t, model.StatusNotTracking, ctrl.Status())
}

func TestDetectSecondary_Lights(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := baseSecondary()
	old.EngineRunning = true
	cur := old
	cur.NavLight = true
	cur.StrobeLight = true
	cur.BeaconLight = false

	events := h.secondary(old, cur)
	msgs := messages(events)
	assert.Contains(t, msgs, "Beacon light off")
	assert.Contains(t, msgs, "Nav lights on")
	assert.Contains(t, msgs, "Strobe lights on")
	assert.Contains(t, msgs, "Beacon light turned off while an engine is running")
	assert.Len(t, h.out.banners, 1)
	assert.Equal(t, model.StatusTracking, h.ctrl.Status())
}

func TestDetectSecondary_EngineStartDuringGroundHandlingAborts(t *testing.T) {
	h := newHarness(t, model.StatusGroundOperations)
	old := baseSecondary()
	cur := old
	cur.EngineRunning = true

	h.secondary(old, cur)

	assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
	assert.Equal(t, 1, h.out.saved, "session kept for resume")
	assert.Contains(t, h.out.prompts, tracking.PromptAbortedEngineGroundHandle)
	assert.Equal(t, model.StatusGroundOperations, h.out.lastSaved.ResumeTarget)
}

func TestDetectSecondary_EngineStartWarnings(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := baseSecondary()
	old.BeaconLight = false
	old.TaxiLight = true
	cur := old
	cur.EngineRunning = true

	msgs := messages(h.secondary(old, cur))
	assert.Contains(t, msgs, "Engine started")
	assert.Contains(t, msgs, "Engine started with the beacon light off")
	assert.Contains(t, msgs, "Taxi or landing lights on during engine start")
	assert.Equal(t, model.StatusTracking, h.ctrl.Status())
}

func TestDetectSecondary_EngineStopAfterLandingFinishes(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	h.with(func(s *tracking.Session) {
		s.WasAirborne = true
		p := parked()
		s.LastPrimary = &p
	})
	old := baseSecondary()
	old.EngineRunning = true
	cur := old
	cur.EngineRunning = false

	assert.Contains(t, messages(h.secondary(old, cur)), "Engine stopped")

	require.Len(t, h.out.reports, 1)
	report := h.out.reports[0]
	assert.Equal(t, "DLH100", report.Flight.Number)
	assert.Contains(t, messages(report.Events), "Engine stopped")
	assert.Equal(t, "Flight tracking stopped", report.Events[len(report.Events)-1].Message)
	assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
	assert.Equal(t, 1, h.out.deleted)

	// A second shutdown edge after the session ended does nothing.
	h.secondary(old, cur)
	assert.Len(t, h.out.reports, 1)
}

func TestDetectSecondary_EngineStopNeverAirborneAborts(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := baseSecondary()
	old.EngineRunning = true
	cur := old
	cur.EngineRunning = false

	h.secondary(old, cur)
	assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
	assert.Empty(t, h.out.reports)
	assert.Equal(t, 1, h.out.deleted, "accidental start is discarded")
	assert.Equal(t, 0, h.out.saved)
}

func TestDetectSecondary_RunwayShutdownWarning(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	h.with(func(s *tracking.Session) {
		s.WasAirborne = true
		s.TaxiInStarted = true
		p := parked()
		s.LastPrimary = &p
	})
	old := baseSecondary()
	old.EngineRunning = true
	cur := old
	cur.EngineRunning = false

	assert.Contains(t, messages(h.secondary(old, cur)), "Possible engine shutdown on the runway")
	require.Len(t, h.out.reports, 1)
}

func TestDetectSecondary_TaxiInTurnedSuppressesRunwayWarning(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	h.with(func(s *tracking.Session) {
		s.WasAirborne = true
		s.TaxiInStarted = true
		p := parked()
		s.LastPrimary = &p
	})
	h.ctrl.MarkTaxiInTurned(context.Background())

	old := baseSecondary()
	old.EngineRunning = true
	cur := old
	cur.EngineRunning = false

	assert.NotContains(t, messages(h.secondary(old, cur)), "Possible engine shutdown on the runway")
}

func TestDetectSecondary_Pushback(t *testing.T) {
	t.Run("during ground handling aborts", func(t *testing.T) {
		h := newHarness(t, model.StatusGroundOperations)
		old := baseSecondary()
		cur := old
		cur.Pushback = model.PushbackLeft
		h.secondary(old, cur)
		assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
		assert.Contains(t, h.out.prompts, tracking.PromptAbortedPushbackGroundHandle)
	})

	t.Run("edges while tracking", func(t *testing.T) {
		h := newHarness(t, model.StatusTracking)
		old := baseSecondary()
		cur := old
		cur.Pushback = model.PushbackStraight
		assert.Contains(t, messages(h.secondary(old, cur)), "Pushback started")
		assert.Contains(t, messages(h.secondary(cur, old)), "Pushback finished")
		assert.Equal(t, model.StatusTracking, h.ctrl.Status())
	})
}

func TestDetectSecondary_Systems(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	h.with(func(s *tracking.Session) {
		p := parked()
		s.LastPrimary = &p
	})

	old := baseSecondary()
	old.GearDown = true
	old.FlapsPercent = 0
	cur := old
	cur.GearDown = false
	cur.ParkingBrake = true
	cur.SeatbeltSigns = true
	cur.FlapsPercent = 25.2

	events := h.secondary(old, cur)
	msgs := messages(events)
	assert.Contains(t, msgs, "Gear handle raised on the ground")
	assert.Contains(t, msgs, "Parking brake on")
	assert.Contains(t, msgs, "Seatbelt signs on")
	assert.Contains(t, msgs, "Flaps set to 25%")
	for _, e := range events {
		if e.Message == "Gear handle raised on the ground" {
			assert.Equal(t, model.SeverityWarning, e.Severity)
		}
	}

	// Sub-unit flap jitter is ignored.
	jitter := cur
	jitter.FlapsPercent = 25.4
	assert.Empty(t, h.secondary(cur, jitter))

	t.Run("jitter across a rounding boundary", func(t *testing.T) {
		h := newHarness(t, model.StatusTracking)
		prev := baseSecondary()
		prev.FlapsPercent = 49.4
		var flaps []string
		for i := range 6 {
			next := prev
			next.FlapsPercent = 49.4
			if i%2 == 0 {
				next.FlapsPercent = 49.6
			}
			for _, m := range messages(h.secondary(prev, next)) {
				if strings.HasPrefix(m, "Flaps") {
					flaps = append(flaps, m)
				}
			}
			prev = next
		}
		assert.Empty(t, flaps)
	})

	t.Run("slow creep is reported once per percent", func(t *testing.T) {
		h := newHarness(t, model.StatusTracking)
		prev := baseSecondary()
		prev.FlapsPercent = 10
		var flaps []string
		for _, v := range []float64{10.4, 10.8, 11.2, 11.6, 12.0, 12.4} {
			next := prev
			next.FlapsPercent = v
			for _, m := range messages(h.secondary(prev, next)) {
				if strings.HasPrefix(m, "Flaps") {
					flaps = append(flaps, m)
				}
			}
			prev = next
		}
		assert.Equal(t, []string{"Flaps set to 11%", "Flaps set to 12%"}, flaps)
	})
}

func TestDetectSecondary_IntegrityAborts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.SecondarySample)
		prompt tracking.Prompt
	}{
		{"crash detection off", func(s *model.SecondarySample) { s.CrashDetection = false }, tracking.PromptAbortedCrashDetection},
		{"unlimited fuel", func(s *model.SecondarySample) { s.UnlimitedFuel = true }, tracking.PromptAbortedUnlimitedFuel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, model.StatusTracking)
			old := baseSecondary()
			cur := old
			tt.mutate(&cur)
			h.secondary(old, cur)
			assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
			assert.Equal(t, 1, h.out.saved)
			assert.Contains(t, h.out.prompts, tt.prompt)
			assert.NotEmpty(t, h.out.banners)
		})
	}
}

func TestDetectPrimary_Slew(t *testing.T) {
	h := newHarness(t, model.StatusGroundOperations)
	old := parked()
	cur := old
	cur.SlewActive = true
	h.primary(old, cur)
	assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
	assert.Contains(t, h.out.prompts, tracking.PromptAbortedSlew)
}

func TestDetectPrimary_TeleportOnce(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := parked()
	cur := old
	cur.Timestamp = old.Timestamp.Add(time.Second)
	cur.SimTime = old.SimTime.Add(time.Second)
	cur.Latitude += 0.003 // ~333 m in one second

	// The abort event is emitted by the controller, not the detector.
	assert.Empty(t, h.primary(old, cur))
	assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
	require.Equal(t, 1, h.out.saved, "teleport keeps the session")
	last := h.out.lastSaved.Events[len(h.out.lastSaved.Events)-1]
	assert.Equal(t, model.EventViolation, last.Type)
	assert.Equal(t, tracking.ViolationTeleport.Message(), last.Message)

	// The next pair hits an inactive session.
	assert.Empty(t, h.primary(cur, cur))
	assert.Equal(t, 1, h.out.saved)
}

func TestDetectPrimary_FastButExplainable(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := parked()
	cur := old
	cur.Timestamp = old.Timestamp.Add(time.Second)
	cur.SimTime = old.SimTime.Add(4 * time.Second)
	cur.SimulationRate = 4
	cur.Latitude += 0.01 // ~1.1 km, fine at 4x

	assert.Empty(t, h.primary(old, cur))
	assert.Equal(t, model.StatusTracking, h.ctrl.Status())
}

func TestDetectPrimary_TimeManipulation(t *testing.T) {
	tests := []struct {
		name    string
		simTime time.Duration
		prompt  tracking.Prompt
		abort   bool
	}{
		{"small backward jitter", -3 * time.Second, "", false},
		{"backward", -6 * time.Second, tracking.PromptAbortedTimeBackward, true},
		{"normal progression", 2 * time.Second, "", false},
		{"forward", 40 * time.Second, tracking.PromptAbortedTimeForward, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, model.StatusTracking)
			old := parked()
			cur := old
			cur.Timestamp = old.Timestamp.Add(2 * time.Second)
			cur.SimTime = old.SimTime.Add(tt.simTime)

			h.primary(old, cur)
			if tt.abort {
				assert.Equal(t, model.StatusNotTracking, h.ctrl.Status())
				assert.Contains(t, h.out.prompts, tt.prompt)
			} else {
				assert.Equal(t, model.StatusTracking, h.ctrl.Status())
			}
		})
	}
}

func TestDetectPrimary_OverspeedDebounce(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	quiet := parked()
	warn := quiet
	warn.OverspeedWarning = true
	warn.Timestamp = t0.Add(time.Second)
	warn.SimTime = warn.Timestamp

	assert.Len(t, h.primary(quiet, warn), 1)

	// Same pair again: no duplicate.
	assert.Empty(t, h.primary(quiet, warn))

	// Flicker within 5 s.
	quiet2 := quiet
	quiet2.Timestamp = t0.Add(3 * time.Second)
	quiet2.SimTime = quiet2.Timestamp
	warn2 := warn
	warn2.Timestamp = t0.Add(4 * time.Second)
	warn2.SimTime = warn2.Timestamp
	assert.Empty(t, h.primary(quiet2, warn2))

	// After the window it fires again.
	quiet3 := quiet
	quiet3.Timestamp = t0.Add(12 * time.Second)
	quiet3.SimTime = quiet3.Timestamp
	warn3 := warn
	warn3.Timestamp = t0.Add(13 * time.Second)
	warn3.SimTime = warn3.Timestamp
	assert.Len(t, h.primary(quiet3, warn3), 1)
}

func TestDetectPrimary_StallIndependentOfOverspeed(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	old := parked()
	cur := old
	cur.OverspeedWarning = true
	cur.StallWarning = true
	assert.Len(t, h.primary(old, cur), 2)
}

func TestLandingLights(t *testing.T) {
	h := newHarness(t, model.StatusTracking)
	sec := baseSecondary()
	sec.EngineRunning = true
	h.with(func(s *tracking.Session) {
		s.LastSecondary = &sec
		s.WasAirborne = true
	})

	low := parked()
	low.OnGround = false
	low.AltitudeIndicated = 5000
	low.RadioHeight = 4000

	assert.Len(t, h.primary(low, low), 1)
	assert.Len(t, h.out.banners, 1)

	// Condition persists: no re-fire.
	assert.Empty(t, h.primary(low, low))
	assert.Len(t, h.out.banners, 1)

	// Climbing above the threshold re-arms.
	high := low
	high.AltitudeIndicated = 12000
	assert.Empty(t, h.primary(low, high))
	assert.Len(t, h.primary(high, low), 1)

	// Turning the light on clears the warning.
	lit := sec
	lit.LandingLight = true
	msgs := messages(h.secondary(sec, lit))
	assert.Equal(t, []string{"Landing lights on"}, msgs)
	assert.False(t, h.ctrl.Snapshot().LandingLightWarned)
}

func TestAnalyzeLanding(t *testing.T) {
	tests := []struct {
		name        string
		wasAirborne bool
		old, cur    model.LandingSample
		want        int
		severity    model.Severity
	}{
		{
			name: "soft touchdown", wasAirborne: true,
			old:  model.LandingSample{OnGround: false},
			cur:  model.LandingSample{OnGround: true, VerticalSpeed: -180, GForce: 1.2},
			want: 1, severity: model.SeverityInfo,
		},
		{
			name: "hard touchdown", wasAirborne: true,
			old:  model.LandingSample{OnGround: false},
			cur:  model.LandingSample{OnGround: true, VerticalSpeed: -720, GForce: 1.9},
			want: 1, severity: model.SeverityWarning,
		},
		{
			name: "still on ground", wasAirborne: true,
			old:  model.LandingSample{OnGround: true},
			cur:  model.LandingSample{OnGround: true},
		},
		{
			name: "never airborne",
			old:  model.LandingSample{OnGround: false},
			cur:  model.LandingSample{OnGround: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, model.StatusTracking)
			h.with(func(s *tracking.Session) { s.WasAirborne = tt.wasAirborne })

			var events []model.TrackingEvent
			h.ctrl.Update(context.Background(), func(s *tracking.Session, fx tracking.Effects) {
				events = h.det.AnalyzeLanding(s, fx, model.Pair[model.LandingSample]{Old: tt.old, New: tt.cur})
			})
			require.Len(t, events, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.severity, events[0].Severity)
				assert.NotNil(t, h.ctrl.Snapshot().Touchdown)
			}
		})
	}
}
