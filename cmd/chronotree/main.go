package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chronotree/engine/internal/config"
	"github.com/chronotree/engine/internal/core/event"
	"github.com/chronotree/engine/internal/core/sched"
	coresys "github.com/chronotree/engine/internal/core/system"
	"github.com/chronotree/engine/internal/data"
	"github.com/chronotree/engine/internal/observability"
	"github.com/chronotree/engine/internal/scripting"
	"github.com/chronotree/engine/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/engine.toml"
	if p := os.Getenv("CHRONOTREE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load the scene table
	sceneTable, err := data.LoadSceneTable(cfg.Scene.Path)
	if err != nil {
		return fmt.Errorf("load scene: %w", err)
	}
	log.Info("scene loaded",
		zap.String("path", cfg.Scene.Path),
		zap.Int("nodes", sceneTable.Count()),
		zap.Int("roots", len(sceneTable.Roots)))

	// 4. Init Lua scripting engine
	luaEngine, err := scripting.NewEngine(cfg.Scripts.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	// 5. Create the world and instantiate the scene
	bus := event.NewBus()
	world := sched.NewWorld(sched.WithLogger(log), sched.WithBus(bus))
	scene, err := scripting.BuildScene(world, luaEngine, sceneTable)
	if err != nil {
		return fmt.Errorf("build scene: %w", err)
	}

	// The first root in the scene file starts live.
	if err := world.SetActive(scene.Roots[0], true); err != nil {
		return fmt.Errorf("activate root: %w", err)
	}
	log.Info("root activated", zap.String("name", scene.Name(scene.Roots[0])))

	// 6. Metrics
	var metrics *observability.FrameCollector
	if cfg.Metrics.Enabled {
		metrics, err = observability.NewFrameCollector(nil)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
		log.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
	}

	// 7. Register systems with the runner
	runner := coresys.NewRunner()
	runner.Register(system.NewEventDispatchSystem(bus))
	runner.Register(system.NewDriveSystem(world, metrics))
	runner.Register(system.NewStatsSystem(world, metrics, log))

	// 8. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Engine.FrameRate)
	defer ticker.Stop()

	log.Info("frame loop started", zap.Duration("frame_rate", cfg.Engine.FrameRate))

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Engine.FrameRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			if root := world.ActiveRoot(); !root.IsZero() {
				if err := world.SetActive(root, false); err != nil {
					log.Error("retire root", zap.Error(err))
				}
			}
			// Deliver notifications emitted by the exit hooks.
			bus.Rotate()
			bus.Dispatch()
			log.Info("stopped", zap.Uint64("frames", world.Stats().FramesDriven))
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
