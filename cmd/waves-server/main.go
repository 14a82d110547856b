package main

import (
	"net/http"
	"time"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
	wavesnotifiers "github.com/phetsims/greenhouse-effect-sub005/internal/waves/notifiers"
)

func main() {
	cfg := loadServerConfig()

	logger := NewLogger(cfg.LogLevel)
	logger.Infof("Starting waves-server: addr=%s log_level=%s", cfg.Addr, cfg.LogLevel)

	srv := NewServer(logger)
	srv.snapshotDir = cfg.SnapshotDir
	srv.snapshotEverySteps = cfg.SnapshotEverySteps
	srv.stepInterval = time.Duration(cfg.StepIntervalMs) * time.Millisecond

	// Create the default model at startup so clients can step it
	// without a prior /config call
	modelCfg := waves.DefaultModelConfig()
	if cfg.ModelConfigFile != "" {
		loaded, err := loadModelConfigFromFile(cfg.ModelConfigFile)
		if err != nil {
			logger.Fatalf("Cannot load model config file: path=%s error=%v", cfg.ModelConfigFile, err)
		}
		modelCfg = loaded
		logger.Infof("Model config loaded from file: path=%s", cfg.ModelConfigFile)
	}

	modelID := waves.ModelID(cfg.DefaultModelID)
	if _, err := srv.CreateModel(modelID, modelCfg); err != nil {
		logger.Fatalf("Cannot create default model: model_id=%s error=%v", modelID, err)
	}
	logger.Infof("Default model created: model_id=%s snapshot_dir=%s snapshot_every_steps=%d",
		modelID, cfg.SnapshotDir, cfg.SnapshotEverySteps)

	// Built-in websocket notifier so live membership events are one
	// /ws/live connection away
	wsNotifier := wavesnotifiers.NewWebSocketNotifier("live")
	if err := srv.notifierMgr.RegisterNotifier(wsNotifier); err != nil {
		logger.Fatalf("Cannot register websocket notifier: error=%v", err)
	}

	http.HandleFunc("/healthz", srv.handleHealth)
	http.HandleFunc("/models", srv.handleListModels)
	http.HandleFunc("/model/", srv.handleModelRoutes)
	http.HandleFunc("/notifiers", srv.handleNotifiersRoutes)
	http.HandleFunc("/notifiers/", srv.handleNotifiersRoutes)
	http.HandleFunc("/ws/", srv.handleWebSocket)

	logger.Infof("waves-server listening on %s", cfg.Addr)
	logger.Fatalf("%v", http.ListenAndServe(cfg.Addr, nil))
}
