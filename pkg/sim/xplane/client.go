// Package xplane reads aircraft state from the X-Plane 12 web API. Dataref IDs
// are resolved over REST, values arrive through a websocket subscription.
package xplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"simtrack/pkg/model"
	"simtrack/pkg/request"
	"simtrack/pkg/sim"
)

const (
	backoffKey    = "xplane"
	metersToFeet  = 3.28084
	mpsToKnots    = 1.943844
	secondsPerDay = 86400
)

// Getter performs REST requests. Satisfied by *request.Client.
type Getter interface {
	Get(ctx context.Context, u string, headers map[string]string) ([]byte, error)
}

// Config holds the web API endpoints and reconnect pacing.
type Config struct {
	RESTURL       string
	WSURL         string
	ReconnectBase time.Duration
	ReconnectMax  time.Duration
}

// Client implements sim.Client against a running X-Plane.
type Client struct {
	cfg     Config
	http    Getter
	dialer  *websocket.Dialer
	backoff *request.ProviderBackoff
	logger  *slog.Logger
	reqID   atomic.Int64

	mu        sync.RWMutex
	connected bool
	ids       map[int64]string
	values    map[string]float64
	updated   time.Time
	simTime   time.Time
	baseDate  time.Time
	lastZulu  float64
	extraDays int
	latch     sim.TouchdownLatch

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a client. Call Start to connect.
func New(cfg Config, http Getter) *Client {
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = 2 * time.Second
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	return &Client{
		cfg:     cfg,
		http:    http,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		backoff: request.NewProviderBackoff(cfg.ReconnectBase, cfg.ReconnectMax),
		logger:  slog.Default().With("component", "xplane"),
		values:  make(map[string]float64),
	}
}

// Start connects in the background and keeps reconnecting until Close.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	for {
		err := c.session(ctx)
		c.setDisconnected()
		if ctx.Err() != nil {
			return
		}
		c.backoff.RecordFailure(backoffKey)
		failures, next := c.backoff.GetState(backoffKey)
		c.logger.Warn("X-Plane: Connection lost, retrying", "error", err, "failures", failures, "retry_at", next.Format(time.TimeOnly))
		if err := c.backoff.Wait(ctx, backoffKey); err != nil {
			return
		}
	}
}

// session resolves datarefs, subscribes and reads updates until the socket fails.
func (c *Client) session(ctx context.Context) error {
	ids, err := c.resolve(ctx)
	if err != nil {
		return err
	}

	conn, resp, err := c.dialer.DialContext(ctx, c.cfg.WSURL, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("websocket handshake %s: %w", resp.Status, err)
		}
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
		case <-stop:
		}
	}()

	c.mu.Lock()
	c.ids = ids
	c.connected = true
	c.baseDate = time.Time{}
	c.extraDays = 0
	c.mu.Unlock()

	if err := c.subscribe(conn, ids); err != nil {
		return err
	}
	c.logger.Info("X-Plane: Connected", "datarefs", len(ids))

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("connection closed by simulator")
			}
			return fmt.Errorf("websocket read: %w", err)
		}
		if err := c.handle(data); err != nil {
			c.logger.Debug("X-Plane: Ignoring message", "error", err)
		}
	}
}

// resolve looks up the numeric IDs of the subscribed datarefs.
func (c *Client) resolve(ctx context.Context) (map[int64]string, error) {
	q := url.Values{}
	for _, name := range subscribed {
		q.Add("filter[name]", name)
	}
	body, err := c.http.Get(ctx, c.cfg.RESTURL+"/datarefs?"+q.Encode(), map[string]string{"Accept": "application/json"})
	if err != nil {
		return nil, fmt.Errorf("resolve datarefs: %w", err)
	}

	var resp datarefsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode datarefs: %w", err)
	}
	ids := make(map[int64]string, len(resp.Data))
	for _, d := range resp.Data {
		ids[d.ID] = d.Name
	}
	if len(ids) < len(subscribed) {
		c.logger.Warn("X-Plane: Some datarefs are unavailable", "resolved", len(ids), "requested", len(subscribed))
	}
	if len(ids) == 0 {
		return nil, errors.New("no datarefs resolved")
	}
	return ids, nil
}

func (c *Client) subscribe(conn *websocket.Conn, ids map[int64]string) error {
	params := subscribeParams{Datarefs: make([]subDataref, 0, len(ids))}
	for id := range ids {
		params.Datarefs = append(params.Datarefs, subDataref{ID: id})
	}
	req := subscribeRequest{RequestID: c.reqID.Add(1), Type: typeSubscribe, Params: params}
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (c *Client) handle(data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return err
	}
	switch msg.Type {
	case typeUpdate:
		var values map[string]json.RawMessage
		if err := json.Unmarshal(msg.Data, &values); err != nil {
			return err
		}
		c.applyUpdate(values, time.Now())
		c.backoff.RecordSuccess(backoffKey)
	case typeResult:
		if !msg.Success {
			return fmt.Errorf("request %d failed: %s %s", msg.RequestID, msg.ErrorCode, msg.ErrorMsg)
		}
	}
	return nil
}

// applyUpdate stores new values and derives the monotonic simulator clock.
func (c *Client) applyUpdate(raw map[string]json.RawMessage, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, v := range raw {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			continue
		}
		name, ok := c.ids[id]
		if !ok {
			continue
		}
		f, err := decodeValue(v)
		if err != nil {
			c.logger.Debug("X-Plane: Bad value", "dataref", name, "error", err)
			continue
		}
		c.values[name] = f
	}
	c.updated = now
	c.updateSimTimeLocked(now)

	c.latch.Observe(c.values[drOnGround] > 0, sim.Touchdown{
		At:            now,
		VerticalSpeed: c.values[drVerticalSpeed],
		GForce:        c.values[drGForce],
		Pitch:         c.values[drPitch],
		Bank:          c.values[drBank],
		GroundSpeed:   c.values[drGroundSpeed] * mpsToKnots,
		Latitude:      c.values[drLatitude],
		Longitude:     c.values[drLongitude],
	})
}

// updateSimTimeLocked turns zulu seconds into a timestamp. The date is taken
// once per connection; a zulu wrap past midnight advances it by one day.
func (c *Client) updateSimTimeLocked(now time.Time) {
	zulu, ok := c.values[drZuluSeconds]
	if !ok {
		return
	}
	if c.baseDate.IsZero() {
		year := now.UTC().Year()
		c.baseDate = time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(c.values[drDateDays]))
		c.lastZulu = zulu
	}
	if c.lastZulu-zulu > secondsPerDay/2 {
		c.extraDays++
	}
	c.lastZulu = zulu
	c.simTime = c.baseDate.AddDate(0, 0, c.extraDays).Add(time.Duration(zulu * float64(time.Second)))
}

func (c *Client) setDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.updated = time.Time{}
}

// GetState returns the current simulator connection/activity state.
func (c *Client) GetState() sim.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sim.StateFrom(c.connected && !c.updated.IsZero(), c.values[drPaused] > 0, c.values[drReplay] > 0)
}

// snapshot returns a copy of the values or an error when none are usable.
func (c *Client) snapshot() (map[string]float64, time.Time, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, time.Time{}, sim.ErrNotConnected
	}
	if c.updated.IsZero() {
		return nil, time.Time{}, sim.ErrNoData
	}
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out, c.simTime, nil
}

// ReadPrimary returns position and motion.
func (c *Client) ReadPrimary(ctx context.Context) (model.PrimarySample, error) {
	v, simTime, err := c.snapshot()
	if err != nil {
		return model.PrimarySample{}, err
	}
	crash := model.CrashOff
	if v[drCrashed] > 0 {
		crash = model.CrashComplete
	}
	return model.PrimarySample{
		Timestamp:         time.Now(),
		Latitude:          v[drLatitude],
		Longitude:         v[drLongitude],
		AltitudeIndicated: v[drAltIndicated],
		AltitudeTrue:      v[drElevation] * metersToFeet,
		RadioHeight:       math.Max(0, v[drAGL]*metersToFeet),
		GroundSpeed:       v[drGroundSpeed] * mpsToKnots,
		TrueAirspeed:      v[drTrueAirspeed] * mpsToKnots,
		Heading:           v[drHeading],
		Pitch:             v[drPitch],
		Bank:              v[drBank],
		VerticalSpeed:     v[drVerticalSpeed],
		OnGround:          v[drOnGround] > 0,
		SimulationRate:    v[drSimSpeed],
		CrashSequence:     crash,
		OverspeedWarning:  v[drOverspeed] > 0,
		StallWarning:      v[drStall] > 0,
		SimTime:           simTime,
	}, nil
}

// ReadSecondary returns switch and system states. X-Plane has no crash
// detection toggle or unlimited fuel, they read as on and off.
func (c *Client) ReadSecondary(ctx context.Context) (model.SecondarySample, error) {
	v, _, err := c.snapshot()
	if err != nil {
		return model.SecondarySample{}, err
	}
	pushback := model.PushbackNone
	if v[drPushback] > 0 {
		pushback = model.PushbackStraight
	}
	return model.SecondarySample{
		Timestamp:        time.Now(),
		EngineRunning:    v[drEngineRunning] > 0,
		BeaconLight:      v[drBeacon] > 0,
		NavLight:         v[drNav] > 0,
		StrobeLight:      v[drStrobe] > 0,
		TaxiLight:        v[drTaxi] > 0,
		LandingLight:     v[drLanding] > 0,
		Pushback:         pushback,
		BatteryMaster:    v[drBattery] > 0,
		GearDown:         v[drGearHandle] > 0,
		FlapsPercent:     v[drFlapRatio] * 100,
		AutopilotEngaged: v[drAutopilot] > 0,
		ParkingBrake:     v[drParkingBrake] > 0.5,
		SpoilersArmed:    v[drSpeedbrake] < 0,
		APUGenerator:     v[drAPUGenerator] > 0,
		SeatbeltSigns:    v[drSeatbelts] > 0,
		NoSmokingSigns:   v[drNoSmoking] > 0,
		CrashDetection:   true,
	}, nil
}

// ReadLanding returns the latched touchdown once on the ground, the live values otherwise.
func (c *Client) ReadLanding(ctx context.Context) (model.LandingSample, error) {
	v, _, err := c.snapshot()
	if err != nil {
		return model.LandingSample{}, err
	}
	s := model.LandingSample{
		Timestamp:     time.Now(),
		OnGround:      v[drOnGround] > 0,
		VerticalSpeed: v[drVerticalSpeed],
		GForce:        v[drGForce],
		Pitch:         v[drPitch],
		Bank:          v[drBank],
		GroundSpeed:   v[drGroundSpeed] * mpsToKnots,
		Latitude:      v[drLatitude],
		Longitude:     v[drLongitude],
	}
	if td, ok := c.latch.Last(); ok && s.OnGround {
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

// Close stops the connection loop.
func (c *Client) Close() error {
	if c.cancel == nil {
		return nil
	}
	c.cancel()
	<-c.done
	return nil
}
