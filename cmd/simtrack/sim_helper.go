package main

import (
	"context"
	"log/slog"

	"simtrack/pkg/config"
	"simtrack/pkg/sim"
	"simtrack/pkg/sim/mocksim"
	"simtrack/pkg/sim/xplane"
)

// initializeSimClient picks the simulator source. gate holds the mock
// aircraft at the stand until the session is tracking.
func initializeSimClient(ctx context.Context, cfg *config.Config, http xplane.Getter, gate func() bool) (sim.Client, error) {
	if cfg.Sim.Provider == "mock" {
		slog.Info("Sim Source: Mock", "origin", cfg.Sim.Mock.Origin, "destination", cfg.Sim.Mock.Destination)
		return mocksim.NewClient(mocksim.ConfigFrom(cfg.Sim.Mock, gate)), nil
	}

	slog.Info("Sim Source: X-Plane", "rest", cfg.Sim.XPlane.RESTURL, "ws", cfg.Sim.XPlane.WSURL)
	xp := xplane.New(xplane.Config{
		RESTURL:       cfg.Sim.XPlane.RESTURL,
		WSURL:         cfg.Sim.XPlane.WSURL,
		ReconnectBase: cfg.Request.Backoff.BaseDelay.Std(),
		ReconnectMax:  cfg.Request.Backoff.MaxDelay.Std(),
	}, http)
	xp.Start(ctx)
	return xp, nil
}
