package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"npc-director/server/internal/config"
	servernet "npc-director/server/internal/net"
	"npc-director/server/internal/net/ws"
	"npc-director/server/internal/observability"
	"npc-director/server/internal/replica"
	"npc-director/server/internal/sim"
	"npc-director/server/internal/telemetry"
	"npc-director/server/internal/weapon"
	"npc-director/server/internal/world"
	"npc-director/server/logging"
	loggingSinks "npc-director/server/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

type Options struct {
	// ConfigPath names a YAML file layered over the embedded defaults. Empty
	// runs on the defaults alone.
	ConfigPath string
	// Addr overrides server.addr when set.
	Addr          string
	Logger        telemetry.Logger
	Observability observability.Config
	// Stdout receives the console sink. Defaults to os.Stdout.
	Stdout io.Writer
}

// Server is a fully wired director: world, loop, feed and HTTP surface.
type Server struct {
	cfg     *config.Config
	logger  telemetry.Logger
	router  *logging.Router
	metrics *logging.Metrics
	world   *world.World
	armory  *weapon.Armory
	loop    *sim.Loop
	hub     *ws.Hub
	handler http.Handler
}

// Run loads the configuration, builds the server and serves until ctx is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	path := opts.ConfigPath
	if raw := os.Getenv("NPC_CONFIG"); raw != "" && path == "" {
		path = raw
	}
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	applyEnv(cfg, logger)
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}

	observabilityCfg := opts.Observability
	if raw := os.Getenv("ENABLE_PPROF"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			observabilityCfg.EnablePprof = value
		} else {
			logger.Printf("invalid ENABLE_PPROF=%q: %v", raw, err)
		}
	}
	opts.Observability = observabilityCfg
	opts.Logger = logger

	srv, err := New(cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := srv.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close server: %v", cerr)
		}
	}()

	stop := make(chan struct{})
	go srv.loop.Run(stop)
	defer close(stop)

	httpSrv := &http.Server{Addr: cfg.Server.Addr, Handler: srv.handler}
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("server listening on %s", httpSrv.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.hub.Close()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load default config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(cfg *config.Config, logger telemetry.Logger) {
	if raw := os.Getenv("NPC_ADDR"); raw != "" {
		cfg.Server.Addr = raw
	}
	if raw := os.Getenv("NPC_TICK_RATE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Simulation.TickRate = value
		} else {
			logger.Printf("invalid NPC_TICK_RATE=%q", raw)
		}
	}
}

// New wires every component from cfg without starting the loop or listening.
func New(cfg *config.Config, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	fallbackLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	logConfig := cfg.Logging.LoggingConfig()
	sinks, err := openSinks(logConfig, stdout)
	if err != nil {
		return nil, err
	}
	metrics := &logging.Metrics{}
	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks, logging.WithMetrics(metrics))
	if err != nil {
		closeSinks(sinks)
		return nil, fmt.Errorf("failed to construct logging router: %w", err)
	}

	deps := sim.Deps{
		Logger:    logger,
		Metrics:   telemetry.WrapMetrics(metrics),
		Clock:     logging.SystemClock{},
		Publisher: router,
	}
	w := world.New(cfg.World.WorldConfig(), deps)
	armory := weapon.NewArmory(cfg.Weapons, w, router)
	w.RegisterAdvancer(armory)

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		router:  router,
		metrics: metrics,
		world:   w,
		armory:  armory,
	}
	if err := s.populate(); err != nil {
		router.Close(context.Background())
		return nil, err
	}

	s.hub = ws.NewHub(ws.HubConfig{
		Logger:    logger,
		Metrics:   deps.Metrics,
		Publisher: router,
	})
	s.loop = sim.NewLoop(w, sim.LoopConfig{
		TickRate:        cfg.Simulation.TickRate,
		CatchupMaxTicks: cfg.Simulation.CatchupMaxTicks,
		CommandCapacity: cfg.Simulation.CommandCapacity,
		PerActorLimit:   cfg.Simulation.PerActorLimit,
	}, sim.LoopHooks{
		AfterStep: s.publish,
	})
	s.handler = servernet.NewHTTPHandler(s.hub, servernet.HTTPHandlerConfig{
		Logger:        logger,
		Engine:        s.loop,
		TickRate:      s.loop.Config().TickRate,
		Schema:        func() any { return config.Schema() },
		Telemetry:     metrics.Snapshot,
		Observability: opts.Observability,
	})
	return s, nil
}

// populate spawns the configured players first so NPC perception sees them
// on the first tick.
func (s *Server) populate() error {
	for _, player := range s.cfg.Players {
		if _, err := s.world.SpawnPlayer(player.Spec()); err != nil {
			return fmt.Errorf("spawn player %q: %w", player.ID, err)
		}
	}
	for _, npc := range s.cfg.NPCs {
		spec, err := npc.Spec(s.cfg)
		if err != nil {
			return err
		}
		if npc.Armed {
			spec.Weapon = s.armory.Factory()
		}
		if _, err := s.world.SpawnNPC(spec); err != nil {
			return fmt.Errorf("spawn npc %q: %w", npc.ID, err)
		}
	}
	return nil
}

// publish runs on the loop goroutine after every step.
func (s *Server) publish(result sim.LoopStepResult) {
	s.hub.Broadcast(replica.FrameFromSnapshot(result.Snapshot, result.Now))
}

func (s *Server) Handler() http.Handler { return s.handler }
func (s *Server) Hub() *ws.Hub          { return s.hub }
func (s *Server) Loop() *sim.Loop       { return s.loop }

// Close flushes and closes the logging sinks.
func (s *Server) Close(ctx context.Context) error {
	if s.router == nil {
		return nil
	}
	return s.router.Close(ctx)
}

func openSinks(cfg logging.Config, stdout io.Writer) ([]logging.NamedSink, error) {
	var sinks []logging.NamedSink
	if cfg.HasSink(logging.SinkConsole) {
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(stdout, cfg.Console)})
	}
	if cfg.HasSink(logging.SinkJSON) {
		file, err := openLogFile(cfg.JSON.FilePath)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("json sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, cfg.JSON.FlushInterval)})
	}
	if cfg.HasSink(logging.SinkCSV) {
		file, err := openLogFile(cfg.CSV.FilePath)
		if err != nil {
			closeSinks(sinks)
			return nil, fmt.Errorf("csv sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkCSV, Sink: loggingSinks.NewCSV(file)})
	}
	if cfg.HasSink(logging.SinkNATS) {
		sink, err := loggingSinks.NewNATS(cfg.NATS)
		if err != nil {
			closeSinks(sinks)
			return nil, err
		}
		sinks = append(sinks, logging.NamedSink{Name: logging.SinkNATS, Sink: sink})
	}
	return sinks, nil
}

func openLogFile(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}

func closeSinks(sinks []logging.NamedSink) {
	for _, sink := range sinks {
		sink.Sink.Close(context.Background())
	}
}
