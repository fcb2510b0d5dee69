// Command prism opens a window and renders a demo scene through the
// deferred HDR pipeline.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"Prism3D/internal/behaviour"
	"Prism3D/internal/capture"
	"Prism3D/internal/config"
	"Prism3D/internal/engine"
	"Prism3D/internal/gpu/opengl"
	"Prism3D/internal/logger"
	"Prism3D/internal/platform"
	"Prism3D/internal/renderer"

	"go.uber.org/zap"
)

func init() {
	// GLFW and the GL context must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "path to a TOML settings file, watched for [frame] changes")
	modelPath := flag.String("model", "", "OBJ or glTF model to place at the origin")
	flag.Parse()

	logger.Init()
	defer logger.Sync()

	if err := run(*configPath, *modelPath); err != nil {
		logger.Log.Error("Prism exited", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func loadConfig(path, model string) (config.File, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return cfg, err
		}
	}
	if model != "" {
		cfg.Scene.Model = model
	}
	return cfg, nil
}

func run(configPath, modelPath string) error {
	cfg, err := loadConfig(configPath, modelPath)
	if err != nil {
		return err
	}

	win, err := platform.Open(cfg.Window)
	if err != nil {
		return err
	}
	defer win.Close()

	dev, err := opengl.NewDevice()
	if err != nil {
		return err
	}
	r, err := renderer.NewRenderer(dev, win, cfg.Pipeline)
	if err != nil {
		return err
	}
	defer r.Release()
	r.OnResize(win.FramebufferSize())

	releaseScene, err := buildScene(r, cfg.Scene)
	if err != nil {
		return err
	}
	defer releaseScene()

	behaviours, err := behaviour.Build(cfg.Scene.Behaviours)
	if err != nil {
		return err
	}
	eng := engine.New(r, win, behaviours, cfg.Frame)

	saver, err := capture.NewSaver(cfg.Capture)
	if err != nil {
		return err
	}
	defer func() {
		if err := saver.Close(); err != nil {
			logger.Log.Warn("Some captures were not written", zap.Error(err))
		}
	}()
	eng.SetCapturer(saver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath != "" {
		if err := config.Watch(ctx, configPath, eng.ApplyFrameSettings); err != nil {
			logger.Log.Warn("Settings will not hot-reload", zap.Error(err))
		}
	}

	err = eng.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
