// Package audio plays sound cues and spoken prompts through the default output device.
package audio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"time"

	"simtrack/pkg/config"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	targetSampleRate = beep.SampleRate(48000)
	defaultQueueSize = 16
)

// ErrQueueFull is returned by Enqueue when playback is too far behind.
var ErrQueueFull = errors.New("audio queue full")

// Service defines the interface for audio playback control.
type Service interface {
	// Play interrupts current playback and starts path. The returned channel
	// is closed when playback finishes or is stopped.
	Play(path string, filtered bool) (<-chan struct{}, error)
	// Enqueue schedules an item behind everything already queued.
	Enqueue(item Item) error
	// Stop stops current playback. Queued items still play.
	Stop()
	// IsBusy returns true while a file is loaded.
	IsBusy() bool
	// SetVolume sets playback volume (0.0 to 1.0).
	SetVolume(vol float64)
	// Volume returns current volume level.
	Volume() float64
	// QueueLength returns the number of items waiting to play.
	QueueLength() int
}

// Item is one queued playback.
type Item struct {
	Path string
	// Filtered applies the headset filter when enabled.
	Filtered bool
	// Cleanup removes the file after it played. Used for synthesized speech.
	Cleanup bool
}

// Options configures a Manager. Volume starts at 1.0, use SetVolume to change it.
type Options struct {
	Headset   config.HeadsetConfig
	QueueSize int
}

// output is the device side of the manager. The speaker package in production.
type output interface {
	Init(rate beep.SampleRate) error
	Play(s beep.Streamer)
	Clear()
	Lock()
	Unlock()
}

type speakerOutput struct{}

func (speakerOutput) Init(rate beep.SampleRate) error { return speaker.Init(rate, rate.N(time.Second/10)) }
func (speakerOutput) Play(s beep.Streamer)            { speaker.Play(s) }
func (speakerOutput) Clear()                          { speaker.Clear() }
func (speakerOutput) Lock()                           { speaker.Lock() }
func (speakerOutput) Unlock()                         { speaker.Unlock() }

// Manager implements the Service interface using gopxl/beep.
type Manager struct {
	mu          sync.RWMutex
	out         output
	initialized bool
	volume      float64
	headset     config.HeadsetConfig

	ctrl     *beep.Ctrl
	streamer *effects.Volume
	finish   func()
	gen      uint64

	queue chan Item
}

// New creates a new Manager instance.
func New(opts Options) *Manager {
	return newManager(speakerOutput{}, opts)
}

func newManager(out output, opts Options) *Manager {
	size := opts.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Manager{
		out:     out,
		volume:  1.0,
		headset: opts.Headset,
		queue:   make(chan Item, size),
	}
}

// Play starts playback of an audio file, replacing whatever is playing.
func (m *Manager) Play(path string, filtered bool) (<-chan struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	track, format, err := DecodeMedia(path)
	if err != nil {
		slog.Error("Audio: Failed to decode file", "path", path, "error", err)
		return nil, err
	}
	if err := m.ensureOutputLocked(); err != nil {
		track.Close()
		return nil, err
	}

	var s beep.Streamer = beep.Resample(3, format.SampleRate, targetSampleRate, track)
	if filtered && m.headset.Enabled {
		s = NewHeadsetFilter(s, float64(targetSampleRate), m.headset.LowCutoff, m.headset.HighCutoff)
	}

	vol := &effects.Volume{
		Streamer: s,
		Base:     2,
		Volume:   volumeToPower(m.volume),
		Silent:   m.volume <= 0.01,
	}

	done := make(chan struct{})
	var once sync.Once
	finish := func() {
		once.Do(func() {
			track.Close()
			close(done)
		})
	}

	m.gen++
	gen := m.gen
	m.ctrl = &beep.Ctrl{Streamer: vol}
	m.streamer = vol
	m.finish = finish

	// The callback runs on the output goroutine with the device lock held.
	m.out.Play(beep.Seq(m.ctrl, beep.Callback(func() {
		go m.completed(gen, finish)
	})))

	slog.Debug("Audio: Playing", "path", path, "filtered", filtered && m.headset.Enabled)
	return done, nil
}

func (m *Manager) completed(gen uint64, finish func()) {
	m.mu.Lock()
	if m.gen == gen {
		m.ctrl = nil
		m.streamer = nil
		m.finish = nil
	}
	m.mu.Unlock()
	finish()
}

// Enqueue schedules an item for sequential playback by Run.
func (m *Manager) Enqueue(item Item) error {
	select {
	case m.queue <- item:
		return nil
	default:
		slog.Warn("Audio: Queue full, dropping", "path", item.Path)
		cleanup(item)
		return ErrQueueFull
	}
}

// Run plays queued items one after another until ctx is cancelled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			m.Stop()
			m.drain()
			return
		case item := <-m.queue:
			done, err := m.Play(item.Path, item.Filtered)
			if err != nil {
				cleanup(item)
				continue
			}
			select {
			case <-done:
			case <-ctx.Done():
				m.Stop()
			}
			cleanup(item)
		}
	}
}

func (m *Manager) drain() {
	for {
		select {
		case item := <-m.queue:
			cleanup(item)
		default:
			return
		}
	}
}

func cleanup(item Item) {
	if !item.Cleanup {
		return
	}
	if err := os.Remove(item.Path); err != nil && !os.IsNotExist(err) {
		slog.Warn("Audio: Failed to remove played file", "path", item.Path, "error", err)
	}
}

// Stop stops current playback.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.ctrl != nil {
		m.out.Clear()
		m.ctrl = nil
		m.streamer = nil
	}
	if m.finish != nil {
		m.finish()
		m.finish = nil
	}
	m.gen++
}

func (m *Manager) ensureOutputLocked() error {
	if m.initialized {
		return nil
	}
	if err := m.out.Init(targetSampleRate); err != nil {
		slog.Error("Audio: Failed to initialize speaker", "error", err)
		return err
	}
	m.initialized = true
	return nil
}

// IsBusy returns true if audio is loaded.
func (m *Manager) IsBusy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctrl != nil
}

// QueueLength returns the number of queued items.
func (m *Manager) QueueLength() int {
	return len(m.queue)
}

// SetVolume sets playback volume (0.0 to 1.0).
func (m *Manager) SetVolume(vol float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	vol = clamp01(vol)
	m.volume = vol

	if m.streamer != nil {
		m.out.Lock()
		m.streamer.Volume = volumeToPower(vol)
		m.streamer.Silent = vol <= 0.01
		m.out.Unlock()
	}
}

// Volume returns current volume level.
func (m *Manager) Volume() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.volume
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
