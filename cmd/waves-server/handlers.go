package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
	wavesnotifiers "github.com/phetsims/greenhouse-effect-sub005/internal/waves/notifiers"
)

// extractModelID extracts the model ID from a path like "/model/{modelID}/..."
// Returns the model ID and the remaining path, or empty string if not found
func extractModelID(path string) (waves.ModelID, string) {
	if !strings.HasPrefix(path, "/model/") {
		return "", ""
	}

	rest := path[len("/model/"):]

	idx := strings.Index(rest, "/")
	if idx == -1 {
		// No more path segments, the whole thing is the model ID
		return waves.ModelID(rest), ""
	}

	modelID := waves.ModelID(rest[:idx])
	remainingPath := rest[idx:]
	return modelID, remainingPath
}

func (s *Server) snapshotPath(id waves.ModelID) string {
	return filepath.Join(s.snapshotDir, string(id)+".snapshot.json")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// POST /model/{modelID}/config
// Body: ModelConfig JSON (empty body uses the default configuration)
// Creates a new model with the given ID, or replaces an existing one
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/config", http.StatusBadRequest)
		return
	}

	cfg := waves.DefaultModelConfig()
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid config json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.CreateModel(modelID, cfg); err != nil {
		s.logger.Errorf("Failed to create model: model_id=%s error=%v", modelID, err)
		http.Error(w, "cannot create model: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Infof("Model created: model_id=%s lanes_sun=%d lanes_ground=%d layers=%d",
		modelID, len(cfg.Sun.Lanes), len(cfg.Ground.Lanes), len(cfg.Layers))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("model configured"))
}

// POST /model/{modelID}/step
// Body: { "dt": 0.033, "inputs": { ... } }  (inputs optional, keeps current when omitted)
type stepRequest struct {
	Dt     float64       `json:"dt"`
	Inputs *waves.Inputs `json:"inputs,omitempty"`
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/step", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	var req stepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Dt <= 0 {
		http.Error(w, "dt must be positive", http.StatusBadRequest)
		return
	}

	if req.Inputs != nil {
		host.SetInputs(*req.Inputs)
	}
	steps := host.Step(req.Dt)
	s.maybeAutoSnapshot(modelID, host, steps)

	s.logger.Debugf("Model stepped: model_id=%s dt=%v", modelID, req.Dt)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("stepped"))
}

// PUT /model/{modelID}/inputs
// Body: Inputs JSON, applied to all subsequent steps
func (s *Server) handleSetInputs(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/inputs", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	var inputs waves.Inputs
	if err := json.NewDecoder(r.Body).Decode(&inputs); err != nil {
		http.Error(w, "invalid inputs json: "+err.Error(), http.StatusBadRequest)
		return
	}

	host.SetInputs(inputs)
	s.logger.Debugf("Model inputs updated: model_id=%s", modelID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("inputs updated"))
}

// GET /model/{modelID}/inputs
func (s *Server) handleGetInputs(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/inputs", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(host.Inputs()); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /model/{modelID}/start
// Start the model auto-running with the specified interval (in milliseconds)
// Query param: interval (default: the server's configured step interval)
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/start", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	interval := s.stepInterval
	if intervalStr := r.URL.Query().Get("interval"); intervalStr != "" {
		if ms, err := strconv.Atoi(intervalStr); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		} else {
			http.Error(w, "invalid interval: must be a positive integer (milliseconds)", http.StatusBadRequest)
			return
		}
	}

	host.Run(interval, func(steps int) {
		s.maybeAutoSnapshot(modelID, host, steps)
	})
	s.logger.Infof("Model started: model_id=%s interval=%v", modelID, interval)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("model started"))
}

// POST /model/{modelID}/stop
// Stop the model auto-running
func (s *Server) handleStopModel(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/stop", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	host.Stop()
	s.logger.Infof("Model stopped: model_id=%s", modelID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("model stopped"))
}

// GET /model/{modelID}/waves
func (s *Server) handleListWaves(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/waves", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	waveStates := host.WaveStates()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(waveStates); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /models
// List all model IDs
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	modelIDs := s.ListModels()

	ids := make([]string, len(modelIDs))
	for i, id := range modelIDs {
		ids[i] = string(id)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string][]string{"models": ids}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// DELETE /model/{modelID}
// Delete a model
func (s *Server) handleDeleteModel(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}", http.StatusBadRequest)
		return
	}

	if err := s.DeleteModel(modelID); err != nil {
		s.logger.Warnf("Failed to delete model: model_id=%s error=%v", modelID, err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	s.logger.Infof("Model deleted: model_id=%s", modelID)

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("model deleted"))
}

// handleModelRoutes routes requests to model-specific handlers
// Handles paths like /model/{modelID}/config, /model/{modelID}/step, etc.
func (s *Server) handleModelRoutes(w http.ResponseWriter, r *http.Request) {
	modelID, remainingPath := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/...", http.StatusBadRequest)
		return
	}

	switch {
	case remainingPath == "/config" && r.Method == http.MethodPost:
		s.handleConfig(w, r)
	case remainingPath == "/step" && r.Method == http.MethodPost:
		s.handleStep(w, r)
	case remainingPath == "/inputs" && r.Method == http.MethodPut:
		s.handleSetInputs(w, r)
	case remainingPath == "/inputs" && r.Method == http.MethodGet:
		s.handleGetInputs(w, r)
	case remainingPath == "/start" && r.Method == http.MethodPost:
		s.handleStart(w, r)
	case remainingPath == "/stop" && r.Method == http.MethodPost:
		s.handleStopModel(w, r)
	case remainingPath == "/waves" && r.Method == http.MethodGet:
		s.handleListWaves(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodPost:
		s.handleSaveSnapshot(w, r)
	case remainingPath == "/snapshot" && r.Method == http.MethodGet:
		s.handleGetSnapshot(w, r)
	case remainingPath == "/restore" && r.Method == http.MethodPost:
		s.handleRestoreSnapshot(w, r)
	case remainingPath == "" && r.Method == http.MethodDelete:
		s.handleDeleteModel(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleNotifiersRoutes handles notifier management endpoints
func (s *Server) handleNotifiersRoutes(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/notifiers" && r.Method == http.MethodGet:
		s.handleListNotifiers(w, r)
	case r.URL.Path == "/notifiers" && r.Method == http.MethodPost:
		s.handleRegisterNotifier(w, r)
	case strings.HasPrefix(r.URL.Path, "/notifiers/") && r.Method == http.MethodDelete:
		s.handleUnregisterNotifier(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// GET /notifiers
// List all registered notifiers
func (s *Server) handleListNotifiers(w http.ResponseWriter, _ *http.Request) {
	notifierIDs := s.notifierMgr.ListNotifiers()

	notifiers := make([]map[string]string, 0, len(notifierIDs))
	for _, id := range notifierIDs {
		notifier, exists := s.notifierMgr.GetNotifier(id)
		if exists {
			notifiers = append(notifiers, map[string]string{
				"id":   id,
				"type": notifier.Type(),
			})
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"notifiers": notifiers}); err != nil {
		http.Error(w, "cannot encode: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// POST /notifiers
// Register a new notifier
// Body: { "type": "webhook", "id": "my-webhook", "config": { "url": "http://..." } }
// or: { "type": "websocket", "id": "my-socket" }
type registerNotifierRequest struct {
	Type   string         `json:"type"`
	ID     string         `json:"id"`
	Config map[string]any `json:"config"`
}

func (s *Server) handleRegisterNotifier(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req registerNotifierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.ID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	var notifier waves.Notifier

	switch req.Type {
	case "webhook":
		url, ok := req.Config["url"].(string)
		if !ok || url == "" {
			http.Error(w, "webhook URL is required", http.StatusBadRequest)
			return
		}
		wh := wavesnotifiers.NewWebhookNotifier(req.ID, url)

		// Set custom headers if provided
		if headers, ok := req.Config["headers"].(map[string]any); ok {
			for k, v := range headers {
				if vStr, ok := v.(string); ok {
					wh.SetHeader(k, vStr)
				}
			}
		}

		notifier = wh
	case "websocket":
		notifier = wavesnotifiers.NewWebSocketNotifier(req.ID)
	default:
		http.Error(w, "unknown notifier type: "+req.Type, http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.RegisterNotifier(notifier); err != nil {
		http.Error(w, "cannot register notifier: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier registered"))
}

// DELETE /notifiers/{id}
// Unregister a notifier
func (s *Server) handleUnregisterNotifier(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if !strings.HasPrefix(path, "/notifiers/") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	notifierID := strings.TrimPrefix(path, "/notifiers/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required", http.StatusBadRequest)
		return
	}

	if err := s.notifierMgr.UnregisterNotifier(notifierID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("notifier unregistered"))
}

// GET /ws/{notifierID}
// Attach a websocket client to a registered websocket notifier
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	notifierID := strings.TrimPrefix(r.URL.Path, "/ws/")
	if notifierID == "" {
		http.Error(w, "notifier ID is required in path: /ws/{notifierID}", http.StatusBadRequest)
		return
	}

	notifier, exists := s.notifierMgr.GetNotifier(notifierID)
	if !exists {
		http.Error(w, "notifier not found", http.StatusNotFound)
		return
	}

	wsNotifier, ok := notifier.(*wavesnotifiers.WebSocketNotifier)
	if !ok {
		http.Error(w, "notifier is not a websocket notifier", http.StatusBadRequest)
		return
	}

	upgrader := wsNotifier.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("Failed to upgrade websocket: notifier_id=%s error=%v", notifierID, err)
		return
	}

	wsNotifier.RegisterClient(conn)
	s.logger.Infof("WebSocket client connected: notifier_id=%s remote=%s", notifierID, conn.RemoteAddr())
}

// POST /model/{modelID}/snapshot
// Triggers a synchronous snapshot save to the configured snapshot directory
func (s *Server) handleSaveSnapshot(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/snapshot", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	path, err := s.saveSnapshotFile(modelID, host)
	if err != nil {
		s.logger.Errorf("Failed to save snapshot: model_id=%s error=%v", modelID, err)
		http.Error(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.logger.Debugf("Snapshot saved: model_id=%s path=%s", modelID, path)

	response := map[string]string{
		"status": "ok",
		"path":   path,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "cannot encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}
}

// GET /model/{modelID}/snapshot
// Returns the raw snapshot JSON if it exists
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/snapshot", http.StatusBadRequest)
		return
	}

	if _, exists := s.GetHost(modelID); !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	if s.snapshotDir == "" {
		http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
		return
	}

	data, err := os.ReadFile(s.snapshotPath(modelID))
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "snapshot not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to read snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// POST /model/{modelID}/restore
// Body: Snapshot JSON. An empty body restores from the saved snapshot file.
func (s *Server) handleRestoreSnapshot(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	modelID, _ := extractModelID(r.URL.Path)
	if modelID == "" {
		http.Error(w, "model ID is required in path: /model/{modelID}/restore", http.StatusBadRequest)
		return
	}

	host, exists := s.GetHost(modelID)
	if !exists {
		http.Error(w, "model not found", http.StatusNotFound)
		return
	}

	var snapshot waves.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		if !errors.Is(err, io.EOF) {
			http.Error(w, "invalid snapshot json: "+err.Error(), http.StatusBadRequest)
			return
		}

		// Empty body: fall back to the snapshot file
		if s.snapshotDir == "" {
			http.Error(w, "snapshot directory not configured", http.StatusInternalServerError)
			return
		}
		data, readErr := os.ReadFile(s.snapshotPath(modelID))
		if readErr != nil {
			if os.IsNotExist(readErr) {
				http.Error(w, "snapshot not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to read snapshot: "+readErr.Error(), http.StatusInternalServerError)
			return
		}
		snapshot, readErr = waves.DecodeSnapshotJSON(data)
		if readErr != nil {
			http.Error(w, "failed to decode snapshot: "+readErr.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := host.Restore(snapshot); err != nil {
		s.logger.Errorf("Failed to restore snapshot: model_id=%s error=%v", modelID, err)
		http.Error(w, "cannot restore snapshot: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.logger.Infof("Snapshot restored: model_id=%s time=%v waves=%d", modelID, snapshot.Time, len(snapshot.Waves))

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("snapshot restored"))
}

// saveSnapshotFile writes the host's current snapshot to the snapshot
// directory, using a temp file rename so readers never observe a
// partial write.
func (s *Server) saveSnapshotFile(id waves.ModelID, host *modelHost) (string, error) {
	if err := os.MkdirAll(s.snapshotDir, 0o755); err != nil {
		return "", err
	}

	snapshot := host.Snapshot()
	data, err := waves.EncodeSnapshotJSON(snapshot)
	if err != nil {
		return "", err
	}

	path := s.snapshotPath(id)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", err
	}
	return path, nil
}

// maybeAutoSnapshot saves a snapshot when the host has stepped enough
// times since the last save. Failures are logged, never fatal.
func (s *Server) maybeAutoSnapshot(id waves.ModelID, host *modelHost, stepsSinceSnapshot int) {
	if s.snapshotDir == "" || s.snapshotEverySteps <= 0 {
		return
	}
	if stepsSinceSnapshot < s.snapshotEverySteps {
		return
	}
	if _, err := s.saveSnapshotFile(id, host); err != nil {
		s.logger.Warnf("Auto snapshot failed: model_id=%s error=%v", id, err)
	}
}
