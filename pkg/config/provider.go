package config

import (
	"context"
	"strconv"
	"time"

	"simtrack/pkg/store"
)

// Provider gives access to the effective configuration: settings changed at
// runtime and persisted in the state store win over the static file.
type Provider interface {
	SimProvider(ctx context.Context) string

	PrimaryInterval(ctx context.Context) time.Duration
	SecondaryInterval(ctx context.Context) time.Duration
	LandingInterval(ctx context.Context) time.Duration

	AudioEnabled(ctx context.Context) bool
	Volume(ctx context.Context) float64
	ReportEnabled(ctx context.Context) bool

	// Raw access (for components that need deep access)
	AppConfig() *Config
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) SimProvider(ctx context.Context) string {
	fallback := p.base.Sim.Provider
	if fallback == "" {
		fallback = "xplane"
	}
	return p.getString(ctx, KeySimSource, fallback)
}

func (p *UnifiedProvider) PrimaryInterval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyPrimaryInterval, p.base.Sampling.Primary.Std())
}

func (p *UnifiedProvider) SecondaryInterval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeySecondaryInterval, p.base.Sampling.Secondary.Std())
}

func (p *UnifiedProvider) LandingInterval(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyLandingInterval, p.base.Sampling.Landing.Std())
}

func (p *UnifiedProvider) AudioEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeyAudioEnabled, p.base.Audio.Enabled)
}

func (p *UnifiedProvider) Volume(ctx context.Context) float64 {
	v := p.getFloat64(ctx, KeyVolume, p.base.Audio.Volume)
	return min(max(v, 0), 1)
}

func (p *UnifiedProvider) ReportEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeyReportEnabled, p.base.Report.Enabled)
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil && dur > 0 {
				return dur
			}
		}
	}
	return fallback
}
