// Package announce turns tracking sounds and prompts into queued audio playback.
package announce

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"simtrack/pkg/audio"
	"simtrack/pkg/tracking"
	"simtrack/pkg/tts"
)

// Speech engines selectable in config.
const (
	EngineVoicePack = "voice-pack"
	EngineSAPI      = "windows-sapi"
	EngineNone      = "none"
)

const requestBuffer = 32

// Player queues audio files for sequential playback.
type Player interface {
	Enqueue(item audio.Item) error
}

// Options configures an Announcer.
type Options struct {
	SoundDir string
	VoiceDir string
	Engine   string
	Voice    string
	// TempDir receives synthesized prompts. Defaults to os.TempDir().
	TempDir string
	// Enabled is checked on every call so audio can be toggled at runtime.
	Enabled func(ctx context.Context) bool
}

type request struct {
	sound  tracking.Sound
	prompt tracking.Prompt
}

// Announcer implements tracking.Announcer. Calls return immediately; Run
// resolves files, synthesizes speech and hands the result to the player in
// call order.
type Announcer struct {
	player Player
	speech tts.Provider
	opts   Options
	reqs   chan request

	mu     sync.Mutex
	warned map[string]bool
}

var _ tracking.Announcer = (*Announcer)(nil)

// New creates an Announcer. speech may be nil unless the engine synthesizes.
func New(player Player, speech tts.Provider, opts Options) *Announcer {
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Engine == EngineSAPI && speech == nil {
		slog.Warn("Announce: No speech provider for engine, prompts are silent", "engine", opts.Engine)
		opts.Engine = EngineNone
	}
	return &Announcer{
		player: player,
		speech: speech,
		opts:   opts,
		reqs:   make(chan request, requestBuffer),
		warned: make(map[string]bool),
	}
}

// PlaySound queues a sound cue.
func (a *Announcer) PlaySound(s tracking.Sound) {
	a.submit(request{sound: s})
}

// Say queues a spoken prompt.
func (a *Announcer) Say(p tracking.Prompt) {
	a.submit(request{prompt: p})
}

func (a *Announcer) submit(r request) {
	if a.opts.Enabled != nil && !a.opts.Enabled(context.Background()) {
		return
	}
	select {
	case a.reqs <- r:
	default:
		slog.Warn("Announce: Backlog full, dropping", "sound", r.sound, "prompt", r.prompt)
	}
}

// Run processes requests until ctx is cancelled.
func (a *Announcer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-a.reqs:
			if r.sound != "" {
				a.playSound(r.sound)
			} else {
				a.speak(ctx, r.prompt)
			}
		}
	}
}

func (a *Announcer) playSound(s tracking.Sound) {
	path := audio.Resolve(a.opts.SoundDir, string(s))
	if path == "" {
		a.warnMissing(a.opts.SoundDir, string(s))
		return
	}
	a.enqueue(audio.Item{Path: path})
}

func (a *Announcer) speak(ctx context.Context, p tracking.Prompt) {
	switch a.opts.Engine {
	case EngineNone:
		slog.Info("Announce: " + Text(p))
	case EngineSAPI:
		a.synthesize(ctx, p)
	default:
		path := audio.Resolve(a.opts.VoiceDir, string(p))
		if path == "" {
			a.warnMissing(a.opts.VoiceDir, string(p))
			return
		}
		a.enqueue(audio.Item{Path: path, Filtered: true})
	}
}

func (a *Announcer) synthesize(ctx context.Context, p tracking.Prompt) {
	base := filepath.Join(a.opts.TempDir, "simtrack-prompt-"+uuid.NewString())
	format, err := a.speech.Synthesize(ctx, Text(p), a.opts.Voice, base)
	if err != nil {
		slog.Warn("Announce: Speech synthesis failed", "prompt", p, "error", err)
		return
	}
	path := base + "." + format
	if err := tts.VerifyAudioFile(path); err != nil {
		slog.Warn("Announce: Discarding synthesized prompt", "prompt", p, "error", err)
		_ = os.Remove(path)
		return
	}
	a.enqueue(audio.Item{Path: path, Filtered: true, Cleanup: true})
}

func (a *Announcer) enqueue(item audio.Item) {
	if err := a.player.Enqueue(item); err != nil {
		slog.Warn("Announce: Playback not queued", "path", item.Path, "error", err)
	}
}

// warnMissing logs each missing pack file once.
func (a *Announcer) warnMissing(dir, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := filepath.Join(dir, name)
	if a.warned[key] {
		return
	}
	a.warned[key] = true
	slog.Warn("Announce: Audio file missing", "dir", dir, "name", name)
}

// MissingSounds returns the sound cues without a file in dir.
func MissingSounds(dir string) []string {
	var missing []string
	for _, s := range Sounds {
		if audio.Resolve(dir, string(s)) == "" {
			missing = append(missing, string(s))
		}
	}
	return missing
}
