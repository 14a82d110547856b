package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

// wavesLoggerAdapter adapts the server's Logger to the waves.Logger interface
type wavesLoggerAdapter struct {
	logger *Logger
}

func (a *wavesLoggerAdapter) Debugf(format string, v ...any) {
	a.logger.Debugf(format, v...)
}

func (a *wavesLoggerAdapter) Infof(format string, v ...any) {
	a.logger.Infof(format, v...)
}

func (a *wavesLoggerAdapter) Warnf(format string, v ...any) {
	a.logger.Warnf(format, v...)
}

func (a *wavesLoggerAdapter) Errorf(format string, v ...any) {
	a.logger.Errorf(format, v...)
}

// modelHost wraps one WavesModel with the serialization and pacing the
// core deliberately leaves to the host: a mutex around every step, the
// current inputs, and an optional ticker goroutine that auto-runs the
// model in scaled real time.
type modelHost struct {
	mu        sync.Mutex
	model     *waves.WavesModel
	inputs    waves.Inputs
	stopCh    chan struct{}
	isRunning bool

	stepsSinceSnapshot int
}

func newModelHost(model *waves.WavesModel) *modelHost {
	return &modelHost{
		model: model,
		inputs: waves.Inputs{
			SunShining:         true,
			SunIntensity:       1,
			SurfaceTemperature: 288,
		},
	}
}

// Step advances the model once under the host lock and returns the
// number of steps taken since the last snapshot flush.
func (h *modelHost) Step(dt float64) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.model.StepModel(dt, h.inputs)
	h.stepsSinceSnapshot++
	return h.stepsSinceSnapshot
}

// SetInputs replaces the inputs consumed by subsequent steps.
func (h *modelHost) SetInputs(inputs waves.Inputs) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.inputs = inputs
}

// Inputs returns the inputs consumed by subsequent steps.
func (h *modelHost) Inputs() waves.Inputs {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inputs
}

// Snapshot captures the model state under the host lock.
func (h *modelHost) Snapshot() waves.Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stepsSinceSnapshot = 0
	return h.model.Snapshot()
}

// Restore replaces the model state under the host lock.
func (h *modelHost) Restore(snapshot waves.Snapshot) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.model.RestoreSnapshot(snapshot)
}

// WaveStates returns the serialized current wave collection.
func (h *modelHost) WaveStates() []waves.WaveState {
	h.mu.Lock()
	defer h.mu.Unlock()
	modelWaves := h.model.Waves()
	out := make([]waves.WaveState, 0, len(modelWaves))
	for _, wave := range modelWaves {
		out = append(out, wave.State())
	}
	return out
}

// Run starts stepping the model on a ticker until Stop is called. Each
// tick advances the model by the tick interval, so the simulation runs
// in real time. It can be called again after stopping.
func (h *modelHost) Run(interval time.Duration, onStep func(stepsSinceSnapshot int)) {
	h.mu.Lock()
	if h.isRunning {
		h.mu.Unlock()
		return
	}
	h.stopCh = make(chan struct{})
	h.isRunning = true
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				steps := h.Step(interval.Seconds())
				if onStep != nil {
					onStep(steps)
				}
			case <-h.stopCh:
				h.mu.Lock()
				h.isRunning = false
				h.mu.Unlock()
				return
			}
		}
	}()
}

// Stop halts the auto-run loop. Manual stepping stays available.
func (h *modelHost) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.isRunning {
		return
	}
	close(h.stopCh)
}

// Server represents the HTTP server for the greenhouse waves simulation
type Server struct {
	mu                 sync.RWMutex
	manager            *waves.ModelManager
	hosts              map[waves.ModelID]*modelHost
	notifierMgr        *waves.NotificationManager
	snapshotDir        string
	snapshotEverySteps int
	stepInterval       time.Duration
	logger             *Logger
}

// NewServer creates a new server instance
func NewServer(logger *Logger) *Server {
	wavesLogger := &wavesLoggerAdapter{logger: logger}
	return &Server{
		manager:     waves.NewModelManagerWithLogger(wavesLogger),
		hosts:       make(map[waves.ModelID]*modelHost),
		notifierMgr: waves.NewNotificationManagerWithLogger(wavesLogger),
		logger:      logger,
	}
}

// CreateModel builds a model from the given config and registers a host
// for it. An existing model with the same ID is replaced.
func (s *Server) CreateModel(id waves.ModelID, cfg waves.ModelConfig) (*modelHost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, exists := s.hosts[id]; exists {
		old.Stop()
		_ = s.manager.DeleteModel(id)
		delete(s.hosts, id)
	}

	model, err := s.manager.CreateModel(id, cfg)
	if err != nil {
		return nil, err
	}
	model.SetNotificationManager(s.notifierMgr)

	host := newModelHost(model)
	s.hosts[id] = host
	return host, nil
}

// GetHost retrieves the host for a model by ID
func (s *Server) GetHost(id waves.ModelID) (*modelHost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	host, exists := s.hosts[id]
	return host, exists
}

// DeleteModel stops and removes a model by ID
func (s *Server) DeleteModel(id waves.ModelID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	host, exists := s.hosts[id]
	if !exists {
		return fmt.Errorf("model with id %s does not exist", id)
	}
	host.Stop()
	delete(s.hosts, id)
	return s.manager.DeleteModel(id)
}

// ListModels returns all registered model IDs
func (s *Server) ListModels() []waves.ModelID {
	return s.manager.ListModels()
}
