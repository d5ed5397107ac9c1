// Package mocksim flies a scripted gate-to-gate flight for development without a simulator.
package mocksim

import (
	"context"
	"math"
	"sync"
	"time"

	"simtrack/pkg/config"
	"simtrack/pkg/geo"
	"simtrack/pkg/model"
	"simtrack/pkg/sim"
)

// Stages of the scripted flight.
const (
	StageParked      = "PARKED"
	StagePushback    = "PUSHBACK"
	StageEngineStart = "ENGINE_START"
	StageTaxiOut     = "TAXI_OUT"
	StageTakeoff     = "TAKEOFF"
	StageAirborne    = "AIRBORNE"
	StageRollout     = "ROLLOUT"
	StageTaxiIn      = "TAXI_IN"
	StageShutdown    = "SHUTDOWN"
	StageDone        = "DONE"
)

const (
	defaultTick = 100 * time.Millisecond

	durationPushback    = 30 * time.Second
	durationEngineStart = 20 * time.Second
	durationBeaconOff   = 10 * time.Second

	taxiSpeed     = 15.0  // kt
	pushSpeed     = 2.0   // kt
	rotateSpeed   = 150.0 // kt
	approachSpeed = 140.0 // kt
	climbRate     = 2500.0
	flareRate     = -150.0
	flareHeight   = 30.0 // ft AGL
	accelRate     = 5.0  // kt/s on the takeoff roll
	decelRate     = 3.0  // kt/s on the rollout
	glideSlope    = 3.0  // degrees
	feetPerMeter  = 3.28084
	ktToMps       = 0.514444
)

// Config holds the route and timing of the mock flight.
type Config struct {
	Origin         model.Airport
	OriginElev     float64 // ft
	Destination    model.Airport
	DestElev       float64 // ft
	CruiseAltitude float64 // ft MSL
	DurationParked time.Duration
	DurationTaxi   time.Duration
	// TimeScale speeds up the simulated clock. Reported as the simulation rate.
	TimeScale float64
	// Gate, when set, keeps the aircraft parked until it returns true.
	Gate func() bool
	// Tick is the physics step in wall time.
	Tick time.Duration
}

// ConfigFrom maps the mock section of the application config.
func ConfigFrom(c config.MockSimConfig, gate func() bool) Config {
	return Config{
		Origin:         model.Airport{ICAO: c.Origin, Lat: c.OriginLat, Lon: c.OriginLon},
		OriginElev:     c.OriginElev,
		Destination:    model.Airport{ICAO: c.Destination, Lat: c.DestLat, Lon: c.DestLon},
		DestElev:       c.DestElev,
		CruiseAltitude: c.CruiseAltitude,
		DurationParked: time.Duration(c.DurationParked),
		DurationTaxi:   time.Duration(c.DurationTaxi),
		TimeScale:      c.TimeScale,
		Gate:           gate,
	}
}

// aircraft is the simulated state. Guarded by MockClient.mu.
type aircraft struct {
	lat, lon  float64
	alt       float64 // ft MSL
	ground    float64 // terrain elevation ft
	heading   float64
	gs        float64
	vs        float64
	pitch     float64
	gForce    float64
	onGround  bool
	pushback  model.PushbackState
	engines   bool
	battery   bool
	beacon    bool
	nav       bool
	strobe    bool
	taxi      bool
	landing   bool
	gear      bool
	flaps     float64
	brake     bool
	seatbelts bool
	autopilot bool
}

// MockClient implements sim.Client.
type MockClient struct {
	mu     sync.Mutex
	cfg    Config
	ac     aircraft
	stage  string
	since  time.Time // sim time the stage started
	simNow time.Time
	closed bool

	totalNM float64
	vsBuf   *sim.VerticalSpeedBuffer
	latch   sim.TouchdownLatch

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewClient creates a mock client and starts its physics loop.
func NewClient(cfg Config) *MockClient {
	m := newClient(cfg)
	m.wg.Add(1)
	go m.physicsLoop()
	return m
}

func newClient(cfg Config) *MockClient {
	if cfg.TimeScale <= 0 {
		cfg.TimeScale = 1
	}
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	origin := geo.Point{Lat: cfg.Origin.Lat, Lon: cfg.Origin.Lon}
	dest := geo.Point{Lat: cfg.Destination.Lat, Lon: cfg.Destination.Lon}

	now := time.Now().UTC()
	return &MockClient{
		cfg: cfg,
		ac: aircraft{
			lat:      cfg.Origin.Lat,
			lon:      cfg.Origin.Lon,
			alt:      cfg.OriginElev,
			ground:   cfg.OriginElev,
			heading:  geo.Bearing(origin, dest),
			onGround: true,
			battery:  true,
			nav:      true,
			brake:    true,
			gear:     true,
			gForce:   1,
		},
		stage:   StageParked,
		since:   now,
		simNow:  now,
		totalNM: geo.DistanceNM(origin, dest),
		vsBuf:   sim.NewVerticalSpeedBuffer(2 * time.Second),
		stopCh:  make(chan struct{}),
	}
}

// Stage returns the current scripted stage.
func (m *MockClient) Stage() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// GetState returns the current simulator connection/activity state.
func (m *MockClient) GetState() sim.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sim.StateFrom(!m.closed, false, false)
}

// ReadPrimary returns position and motion.
func (m *MockClient) ReadPrimary(ctx context.Context) (model.PrimarySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.PrimarySample{}, sim.ErrNotConnected
	}
	ac := m.ac
	return model.PrimarySample{
		Timestamp:         time.Now(),
		Latitude:          ac.lat,
		Longitude:         ac.lon,
		AltitudeIndicated: ac.alt,
		AltitudeTrue:      ac.alt,
		RadioHeight:       math.Max(0, ac.alt-ac.ground),
		GroundSpeed:       ac.gs,
		TrueAirspeed:      ac.gs,
		Heading:           ac.heading,
		Pitch:             ac.pitch,
		VerticalSpeed:     ac.vs,
		OnGround:          ac.onGround,
		SimulationRate:    m.cfg.TimeScale,
		SimTime:           m.simNow,
	}, nil
}

// ReadSecondary returns switch and system states.
func (m *MockClient) ReadSecondary(ctx context.Context) (model.SecondarySample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.SecondarySample{}, sim.ErrNotConnected
	}
	ac := m.ac
	return model.SecondarySample{
		Timestamp:        time.Now(),
		EngineRunning:    ac.engines,
		BeaconLight:      ac.beacon,
		NavLight:         ac.nav,
		StrobeLight:      ac.strobe,
		TaxiLight:        ac.taxi,
		LandingLight:     ac.landing,
		Pushback:         ac.pushback,
		BatteryMaster:    ac.battery,
		GearDown:         ac.gear,
		FlapsPercent:     ac.flaps,
		AutopilotEngaged: ac.autopilot,
		ParkingBrake:     ac.brake,
		SeatbeltSigns:    ac.seatbelts,
		NoSmokingSigns:   true,
		CrashDetection:   true,
	}, nil
}

// ReadLanding returns the latched touchdown once on the ground, the live values otherwise.
func (m *MockClient) ReadLanding(ctx context.Context) (model.LandingSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return model.LandingSample{}, sim.ErrNotConnected
	}
	ac := m.ac
	s := model.LandingSample{
		Timestamp:     time.Now(),
		OnGround:      ac.onGround,
		VerticalSpeed: ac.vs,
		GForce:        ac.gForce,
		Pitch:         ac.pitch,
		GroundSpeed:   ac.gs,
		Latitude:      ac.lat,
		Longitude:     ac.lon,
	}
	if td, ok := m.latch.Last(); ok && ac.onGround {
		s.VerticalSpeed = td.VerticalSpeed
		s.GForce = td.GForce
		s.Pitch = td.Pitch
		s.Bank = td.Bank
		s.GroundSpeed = td.GroundSpeed
		s.Latitude = td.Latitude
		s.Longitude = td.Longitude
	}
	return s, nil
}

// Close stops the physics loop.
func (m *MockClient) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopCh)
	m.wg.Wait()
	return nil
}

func (m *MockClient) physicsLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.advance(m.cfg.Tick)
		}
	}
}

// advance steps the simulation by wall duration d.
func (m *MockClient) advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	simDt := time.Duration(float64(d) * m.cfg.TimeScale)
	m.simNow = m.simNow.Add(simDt)
	dt := simDt.Seconds()
	elapsed := m.simNow.Sub(m.since)

	switch m.stage {
	case StageParked:
		if elapsed >= m.cfg.DurationParked && (m.cfg.Gate == nil || m.cfg.Gate()) {
			m.ac.brake = false
			m.ac.beacon = true
			m.ac.seatbelts = true
			m.ac.pushback = model.PushbackStraight
			m.enter(StagePushback)
		}

	case StagePushback:
		m.ac.gs = pushSpeed
		m.move(dt, m.ac.heading+180)
		if elapsed >= durationPushback {
			m.ac.gs = 0
			m.ac.pushback = model.PushbackNone
			m.enter(StageEngineStart)
		}

	case StageEngineStart:
		m.ac.engines = true
		if elapsed >= durationEngineStart {
			m.ac.taxi = true
			m.enter(StageTaxiOut)
		}

	case StageTaxiOut:
		m.ac.gs = taxiSpeed
		m.move(dt, m.ac.heading)
		if elapsed >= m.cfg.DurationTaxi {
			m.ac.taxi = false
			m.ac.landing = true
			m.ac.strobe = true
			m.ac.flaps = 25
			m.ac.heading = m.bearingToDestination()
			m.enter(StageTakeoff)
		}

	case StageTakeoff:
		m.ac.gs = math.Min(rotateSpeed, m.ac.gs+accelRate*dt)
		m.move(dt, m.ac.heading)
		if m.ac.gs >= rotateSpeed {
			m.ac.onGround = false
			m.ac.pitch = 8
			m.enter(StageAirborne)
		}

	case StageAirborne:
		m.fly(dt)

	case StageRollout:
		m.ac.gs = math.Max(taxiSpeed, m.ac.gs-decelRate*dt)
		m.move(dt, m.ac.heading)
		if m.ac.gs <= 40 {
			m.ac.landing = false
			m.ac.strobe = false
			m.ac.flaps = 0
		}
		if m.ac.gs <= taxiSpeed {
			m.ac.taxi = true
			m.ac.heading = math.Mod(m.ac.heading+90, 360)
			m.enter(StageTaxiIn)
		}

	case StageTaxiIn:
		m.move(dt, m.ac.heading)
		if elapsed >= m.cfg.DurationTaxi {
			m.ac.gs = 0
			m.ac.taxi = false
			m.ac.brake = true
			m.ac.engines = false
			m.ac.seatbelts = false
			m.enter(StageShutdown)
		}

	case StageShutdown:
		if elapsed >= durationBeaconOff {
			m.ac.beacon = false
			m.enter(StageDone)
		}
	}

	if m.stage == StageAirborne || m.stage == StageRollout {
		m.ac.vs, _ = m.vsBuf.Update(m.simNow, m.ac.alt)
	} else {
		m.ac.vs = 0
		m.vsBuf.Reset()
	}
	m.latch.Observe(m.ac.onGround, sim.Touchdown{
		At:            m.simNow,
		VerticalSpeed: m.ac.vs,
		GForce:        m.ac.gForce,
		Pitch:         m.ac.pitch,
		GroundSpeed:   m.ac.gs,
		Latitude:      m.ac.lat,
		Longitude:     m.ac.lon,
	})
}

// fly follows a climb limited by the glide path to the destination.
func (m *MockClient) fly(dt float64) {
	remainingNM := m.remainingNM()
	agl := m.ac.alt - m.ac.ground

	switch {
	case agl <= flareHeight && remainingNM < 5:
		m.ac.pitch = 5
		m.ac.alt += flareRate / 60 * dt
	default:
		remainingFt := remainingNM * geo.MetersPerNM * feetPerMeter
		glide := m.cfg.DestElev + remainingFt*math.Tan(glideSlope*math.Pi/180)
		target := math.Min(m.cfg.CruiseAltitude, glide)
		if m.ac.alt < target {
			m.ac.alt = math.Min(target, m.ac.alt+climbRate/60*dt)
			m.ac.pitch = 8
		} else {
			m.ac.alt = target
			m.ac.pitch = -1
		}
		if remainingNM > 0.05 {
			m.ac.heading = m.bearingToDestination()
		}
	}

	m.ac.gs = m.targetSpeed(remainingNM)
	m.ac.gear = agl < 500 || remainingNM < 10
	m.ac.autopilot = agl > 1500 && remainingNM > 5
	m.ac.landing = m.ac.alt < 10000
	switch {
	case remainingNM < 8:
		m.ac.flaps = 100
	case agl > 1500:
		m.ac.flaps = 0
	}

	m.move(dt, m.ac.heading)
	m.ac.ground = m.terrainBelow()

	if m.ac.alt <= m.ac.ground {
		m.ac.alt = m.ac.ground
		m.ac.onGround = true
		m.ac.pitch = 0
		m.ac.gForce = 1.15
		m.enter(StageRollout)
		return
	}
	m.ac.gForce = 1
}

func (m *MockClient) targetSpeed(remainingNM float64) float64 {
	switch {
	case remainingNM < 15:
		return approachSpeed
	case m.ac.alt < 10000:
		return 250
	default:
		return 450
	}
}

// terrainBelow interpolates field elevation along the route. The last mile
// is level with the destination field.
func (m *MockClient) terrainBelow() float64 {
	remaining := m.remainingNM()
	if m.totalNM <= 0 || remaining < 1 {
		return m.cfg.DestElev
	}
	f := math.Max(0, math.Min(1, remaining/m.totalNM))
	return m.cfg.DestElev + (m.cfg.OriginElev-m.cfg.DestElev)*f
}

func (m *MockClient) remainingNM() float64 {
	return geo.DistanceNM(geo.Point{Lat: m.ac.lat, Lon: m.ac.lon}, geo.Point{Lat: m.cfg.Destination.Lat, Lon: m.cfg.Destination.Lon})
}

func (m *MockClient) bearingToDestination() float64 {
	return geo.Bearing(geo.Point{Lat: m.ac.lat, Lon: m.ac.lon}, geo.Point{Lat: m.cfg.Destination.Lat, Lon: m.cfg.Destination.Lon})
}

func (m *MockClient) move(dt, bearing float64) {
	dist := m.ac.gs * ktToMps * dt
	if dist <= 0 {
		return
	}
	next := geo.DestinationPoint(geo.Point{Lat: m.ac.lat, Lon: m.ac.lon}, dist, math.Mod(bearing+360, 360))
	m.ac.lat, m.ac.lon = next.Lat, next.Lon
}

func (m *MockClient) enter(stage string) {
	m.stage = stage
	m.since = m.simNow
}
