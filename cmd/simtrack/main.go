package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"simtrack/internal/api"
	"simtrack/pkg/announce"
	"simtrack/pkg/audio"
	"simtrack/pkg/config"
	"simtrack/pkg/core"
	"simtrack/pkg/db"
	"simtrack/pkg/db/maintenance"
	"simtrack/pkg/detector"
	"simtrack/pkg/logging"
	"simtrack/pkg/model"
	"simtrack/pkg/phase"
	"simtrack/pkg/probe"
	"simtrack/pkg/report"
	"simtrack/pkg/request"
	"simtrack/pkg/session"
	"simtrack/pkg/sim"
	"simtrack/pkg/store"
	"simtrack/pkg/tracker"
	"simtrack/pkg/tracking"
	"simtrack/pkg/tts"
	"simtrack/pkg/tts/sapi"
	"simtrack/pkg/version"
)

const (
	defaultConfigPath = "configs/simtrack.yaml"
	// profileWindow smooths the vertical speed used for the climb profile.
	profileWindow = 5 * time.Second
)

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(defaultConfigPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: " + defaultConfigPath)
		return
	}

	if err := run(context.Background(), defaultConfigPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

// services bundles what the HTTP server needs from the running agent.
type services struct {
	cfg      *config.Config
	st       store.Store
	prov     *config.UnifiedProvider
	tr       *tracker.Tracker
	ctrl     *tracking.Controller
	sessions *session.Manager
	proc     *core.Processor
	sched    *core.Scheduler
	hub      *api.Hub
	telH     *api.TelemetryHandler
	player   *audio.Manager
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()
	tts.SetLogPath(filepath.Join(filepath.Dir(appCfg.Log.Server.Path), "speech.log"))

	slog.Info("SimTrack Started", "version", version.Version)

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := maintenance.Run(ctx, st, dbConn, maintenance.Retention{
		Events:  time.Duration(appCfg.DB.EventRetention),
		Reports: time.Duration(appCfg.DB.ReportRetention),
	}); err != nil {
		slog.Error("Maintenance tasks failed", "error", err)
	}

	prov := config.NewProvider(appCfg, st)
	tr := tracker.New()
	reqClient := request.New(tr, request.Options{
		Timeout:   time.Duration(appCfg.Request.Timeout),
		Retries:   appCfg.Request.Retries,
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
	})

	svcs := &services{cfg: appCfg, st: st, prov: prov, tr: tr}

	// The hub serves controller snapshots, the controller notifies the hub.
	svcs.hub = api.NewHub(func() any { return svcs.ctrl.Snapshot() })
	go svcs.hub.Run(ctx)
	svcs.telH = api.NewTelemetryHandler(svcs.hub)

	// Audio
	svcs.player = audio.New(audio.Options{Headset: appCfg.Audio.Headset})
	svcs.player.SetVolume(prov.Volume(ctx))
	go svcs.player.Run(ctx)

	announcer := announce.New(svcs.player, initSpeech(appCfg), announce.Options{
		SoundDir: appCfg.Audio.SoundDir,
		VoiceDir: appCfg.Audio.VoiceDir,
		Engine:   appCfg.Audio.Engine,
		Voice:    appCfg.Audio.Voice,
		Enabled:  prov.AudioEnabled,
	})
	go announcer.Run(ctx)

	// Reports
	submitter := report.NewSubmitter(st, reqClient, report.Config{
		BaseURL: appCfg.Report.BaseURL,
		Token:   appCfg.Report.Token,
		Enabled: prov.ReportEnabled,
	}, svcs.hub)
	go submitter.Run(ctx)
	if n, err := submitter.RetryPending(ctx); err != nil {
		slog.Error("Report: failed to queue pending reports", "error", err)
	} else if n > 0 {
		slog.Info("Report: queued pending reports", "count", n)
	}

	// Tracking
	svcs.sessions = session.NewManager(st)
	svcs.ctrl = tracking.NewController(trackingConfig(appCfg), tracking.Sinks{
		Notifier:  svcs.hub,
		Announcer: announcer,
		Finalizer: submitter,
		Saver:     svcs.sessions,
		Events:    st,
	})
	svcs.ctrl.Start(ctx)

	svcs.proc = core.NewProcessor(svcs.ctrl,
		detector.New(detectorConfig(appCfg)),
		phase.NewClassifier(),
		phase.NewProfileTracker(profileWindow),
	)
	go svcs.proc.Run(ctx)

	// Simulator
	simClient, err := initializeSimClient(ctx, appCfg, reqClient, func() bool {
		return svcs.ctrl.Status() == model.StatusTracking
	})
	if err != nil {
		return fmt.Errorf("failed to initialize sim client: %w", err)
	}
	defer simClient.Close()

	svcs.sched = setupScheduler(appCfg, prov, simClient, svcs)
	go svcs.sched.Start(ctx)

	core.NewSessionPersistenceJob(svcs.ctrl, svcs.sessions, time.Duration(appCfg.Tracking.PersistInterval)).Start(ctx)

	// Startup verification
	results := probe.Run(ctx, startupProbes(appCfg, dbConn, reqClient))
	if err := probe.AnalyzeResults(results); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, svcs)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

// initSpeech returns the synthesizer for engines that need one.
func initSpeech(cfg *config.Config) tts.Provider {
	if cfg.Audio.Engine == announce.EngineSAPI {
		return sapi.NewProvider()
	}
	return nil
}

func trackingConfig(cfg *config.Config) tracking.Config {
	return tracking.Config{
		GroundTick:          time.Duration(cfg.Tracking.GroundTick),
		BannerDuration:      time.Duration(cfg.Tracking.BannerDuration),
		FuelRateKgPerMin:    cfg.Tracking.FuelRateKgPerMin,
		PayloadRateKgPerMin: cfg.Tracking.PayloadRateKgPerMin,
		MinLoadingTime:      time.Duration(cfg.Tracking.MinLoadingTime),
		ResumeMaxDistanceNM: cfg.Tracking.ResumeMaxDistance.NM(),
	}
}

func detectorConfig(cfg *config.Config) detector.Config {
	det := detector.DefaultConfig()
	if cfg.Tracking.DebounceWindow > 0 {
		det.DebounceWindow = time.Duration(cfg.Tracking.DebounceWindow)
	}
	if cfg.Tracking.HardLandingFPM > 0 {
		det.HardLandingFPM = cfg.Tracking.HardLandingFPM
	}
	return det
}

func setupScheduler(cfg *config.Config, prov config.Provider, simClient sim.Client, svcs *services) *core.Scheduler {
	sched := core.NewScheduler(prov, simClient, svcs.proc, svcs.ctrl, svcs.telH)
	sched.SetStats(svcs.tr)

	// Forget pairing state when the simulator reconnects
	sched.AddResettable(svcs.proc)

	sched.AddJob(core.NewTrackRecorder(svcs.ctrl, cfg.Sampling.TrackDistance.Meters()))
	return sched
}

func startupProbes(cfg *config.Config, dbConn *db.DB, client probe.Getter) []probe.Probe {
	probes := []probe.Probe{
		{Name: "Database", Check: probe.Database(dbConn), Critical: true},
	}
	if cfg.Audio.Enabled {
		probes = append(probes, probe.Probe{
			Name:  "SoundPack",
			Check: probe.SoundPack(cfg.Audio.SoundDir, announce.MissingSounds),
		})
	}
	if cfg.Report.Enabled && cfg.Report.BaseURL != "" {
		probes = append(probes, probe.Probe{
			Name:    "ReportService",
			Check:   probe.Reachable(client, strings.TrimRight(cfg.Report.BaseURL, "/")+"/health"),
			Timeout: 3 * time.Second,
		})
	}
	return probes
}

func runServer(ctx context.Context, svcs *services) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	latest := func() *model.PrimarySample { return svcs.sched.Latest() }
	trackingH := api.NewTrackingHandler(svcs.ctrl, svcs.sessions, svcs.st, latest, svcs.cfg.Tracking.ResumeMaxDistance.NM())

	srv := api.NewServer(svcs.cfg.Server.Address,
		svcs.telH,
		trackingH,
		api.NewConfigHandler(svcs.st, svcs.prov, svcs.player),
		api.NewStatsHandler(svcs.tr, svcs.proc, svcs.hub),
		svcs.hub,
		shutdownFunc,
	)

	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
