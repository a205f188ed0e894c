package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"glaucomaml/config"
	ghttp "glaucomaml/http"
	"glaucomaml/logger"
	"glaucomaml/ml"
	"glaucomaml/predict"
)

// StartupError is fatal: the process cannot serve without the model. Hint
// tells the operator what to fix.
type StartupError struct {
	Hint string
	Err  error
}

func (e *StartupError) Error() string {
	return e.Hint + ": " + e.Err.Error()
}

func (e *StartupError) Unwrap() error {
	return e.Err
}

type application struct {
	config  *config.Config
	log     *zap.Logger
	service *predict.Service
	server  *ghttp.Server
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	app, err := startup(*configPath)
	if err != nil {
		var serr *StartupError
		if errors.As(err, &serr) {
			fmt.Fprintln(os.Stderr, serr.Hint)
		}
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer app.log.Sync()

	go func() {
		if err := app.server.Start(); err != nil {
			app.log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.log.Info("shutting down")

	if err := app.server.Stop(); err != nil {
		app.log.Error("server forced to shutdown", zap.Error(err))
	}

	app.log.Info("exiting")
}

// startup loads everything the server needs. Any failure is a
// *StartupError and nothing is served.
func startup(configPath string) (*application, error) {
	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, &StartupError{
			Hint: fmt.Sprintf("Configuration file '%s' could not be loaded. Pass its location with -config.", configPath),
			Err:  err,
		}
	}

	// 2. Logger
	log, err := logger.New(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Service:    "glaucomaml",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return nil, &StartupError{Hint: "Logger could not be initialised. Check the log section of the configuration.", Err: err}
	}
	zap.ReplaceGlobals(log)

	// 3. Load the model once; it is read-only from here on
	model, err := ml.LoadModel(cfg.Model.Path)
	if err != nil {
		hint := fmt.Sprintf("Model file '%s' could not be loaded. Re-export it or point model.path at a valid artifact.", cfg.Model.Path)
		if errors.Is(err, ml.ErrArtifactNotFound) {
			hint = fmt.Sprintf("Model file '%s' not found. Please ensure it is at the path configured as model.path in config.yaml.", cfg.Model.Path)
		}
		return nil, &StartupError{Hint: hint, Err: err}
	}
	log.Info("model loaded",
		zap.String("path", cfg.Model.Path),
		zap.Int("features", len(model.FeatureNames())),
	)

	// 4. Bind it to its variant
	variant, err := predict.LookupVariant(cfg.Model.Variant)
	if err != nil {
		return nil, &StartupError{Hint: "Unknown model.variant in config.yaml.", Err: err}
	}
	if len(cfg.Model.Labels) > 0 {
		variant.Contract.Labels = cfg.Model.Labels
	}
	service, err := predict.NewService(variant, model, predict.Options{
		CacheSize: cfg.Model.CacheSize,
		Alignment: cfg.Model.Alignment,
		Logger:    log,
	})
	if err != nil {
		hint := "Model schema could not be used."
		var merr *predict.MisalignmentError
		if errors.As(err, &merr) {
			hint = "Model schema does not match the input form. Fix the artifact's feature names or set model.alignment to warn."
		}
		return nil, &StartupError{Hint: hint, Err: err}
	}

	// 5. HTTP server
	server := ghttp.NewServer(ghttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxBodyBytes:   cfg.Http.MaxBodyBytes,
	}, service, log)

	return &application{
		config:  cfg,
		log:     log,
		service: service,
		server:  server,
	}, nil
}
