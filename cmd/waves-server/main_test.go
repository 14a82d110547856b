package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv := NewServer(NewLogger("error"))
	srv.snapshotDir = t.TempDir()
	srv.stepInterval = 33 * time.Millisecond
	return srv
}

func TestExtractModelID(t *testing.T) {
	cases := []struct {
		path         string
		expectedID   waves.ModelID
		expectedRest string
	}{
		{"/model/default/step", "default", "/step"},
		{"/model/default", "default", ""},
		{"/model/a-b-c/snapshot", "a-b-c", "/snapshot"},
		{"/models", "", ""},
		{"/other/default/step", "", ""},
	}
	for _, c := range cases {
		id, rest := extractModelID(c.path)
		if id != c.expectedID || rest != c.expectedRest {
			t.Errorf("extractModelID(%q): expected (%q, %q), got (%q, %q)", c.path, c.expectedID, c.expectedRest, id, rest)
		}
	}
}

func TestServer_HandleConfigAndStep(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/model/test-model/config", nil)
	w := httptest.NewRecorder()
	srv.handleConfig(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for config, got %d: %s", w.Code, w.Body.String())
	}

	body, err := json.Marshal(stepRequest{Dt: 1})
	if err != nil {
		t.Fatalf("Failed to marshal step request: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/model/test-model/step", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleStep(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for step, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/model/test-model/waves", nil)
	w = httptest.NewRecorder()
	srv.handleListWaves(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for waves, got %d: %s", w.Code, w.Body.String())
	}
	var states []waves.WaveState
	if err := json.Unmarshal(w.Body.Bytes(), &states); err != nil {
		t.Fatalf("Failed to parse waves response: %v", err)
	}
	if len(states) == 0 {
		t.Error("Expected the stepped model to contain waves")
	}
}

func TestServer_HandleStep_Invalid(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.CreateModel("test-model", waves.DefaultModelConfig()); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	body, _ := json.Marshal(stepRequest{Dt: 0})
	req := httptest.NewRequest(http.MethodPost, "/model/test-model/step", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleStep(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for nonpositive dt, got %d", w.Code)
	}

	body, _ = json.Marshal(stepRequest{Dt: 1})
	req = httptest.NewRequest(http.MethodPost, "/model/unknown/step", bytes.NewReader(body))
	w = httptest.NewRecorder()
	srv.handleStep(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown model, got %d", w.Code)
	}
}

func TestServer_HandleInputs(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.CreateModel("test-model", waves.DefaultModelConfig()); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	inputs := waves.Inputs{SunShining: true, SunIntensity: 0.8, SurfaceTemperature: 290, Concentration: 0.4}
	body, err := json.Marshal(inputs)
	if err != nil {
		t.Fatalf("Failed to marshal inputs: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/model/test-model/inputs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleSetInputs(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/model/test-model/inputs", nil)
	w = httptest.NewRecorder()
	srv.handleGetInputs(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var got waves.Inputs
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("Failed to parse inputs response: %v", err)
	}
	if got != inputs {
		t.Errorf("Expected inputs %+v, got %+v", inputs, got)
	}
}

func TestServer_HandleSaveSnapshot(t *testing.T) {
	srv := newTestServer(t)
	host, err := srv.CreateModel("test-model", waves.DefaultModelConfig())
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		host.Step(1)
	}

	req := httptest.NewRequest(http.MethodPost, "/model/test-model/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleSaveSnapshot(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if response["status"] != "ok" {
		t.Errorf("Expected status 'ok', got '%s'", response["status"])
	}
	if response["path"] == "" {
		t.Error("Expected non-empty path in response")
	}

	expectedPath := filepath.Join(srv.snapshotDir, "test-model.snapshot.json")
	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Expected snapshot file at %s: %v", expectedPath, err)
	}
	snapshot, err := waves.DecodeSnapshotJSON(data)
	if err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if snapshot.ModelID != "test-model" {
		t.Errorf("Expected model ID 'test-model', got '%s'", snapshot.ModelID)
	}
	if snapshot.Time != 5 {
		t.Errorf("Expected time 5, got %v", snapshot.Time)
	}
	if len(snapshot.Waves) == 0 {
		t.Error("Expected waves in the snapshot")
	}
}

func TestServer_HandleGetSnapshot_NotFound(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.CreateModel("test-model", waves.DefaultModelConfig()); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/model/test-model/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleGetSnapshot(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleSaveSnapshot_NoSnapshotDir(t *testing.T) {
	srv := NewServer(NewLogger("error"))
	if _, err := srv.CreateModel("test-model", waves.DefaultModelConfig()); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/model/test-model/snapshot", nil)
	w := httptest.NewRecorder()
	srv.handleSaveSnapshot(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d: %s", w.Code, w.Body.String())
	}
}

func TestServer_HandleRestoreSnapshot(t *testing.T) {
	srv := newTestServer(t)
	host, err := srv.CreateModel("test-model", waves.DefaultModelConfig())
	if err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		host.Step(1)
	}
	snapshot := host.Snapshot()
	body, err := waves.EncodeSnapshotJSON(snapshot)
	if err != nil {
		t.Fatalf("EncodeSnapshotJSON failed: %v", err)
	}

	for i := 0; i < 4; i++ {
		host.Step(1)
	}

	req := httptest.NewRequest(http.MethodPost, "/model/test-model/restore", bytes.NewReader(body))
	w := httptest.NewRecorder()
	srv.handleRestoreSnapshot(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	restored := host.Snapshot()
	if restored.Time != snapshot.Time {
		t.Errorf("Expected restored time %v, got %v", snapshot.Time, restored.Time)
	}
	if len(restored.Waves) != len(snapshot.Waves) {
		t.Errorf("Expected %d waves after restore, got %d", len(snapshot.Waves), len(restored.Waves))
	}
}

func TestServer_DeleteModel(t *testing.T) {
	srv := newTestServer(t)
	if _, err := srv.CreateModel("test-model", waves.DefaultModelConfig()); err != nil {
		t.Fatalf("CreateModel failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodDelete, "/model/test-model", nil)
	w := httptest.NewRecorder()
	srv.handleModelRoutes(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if _, exists := srv.GetHost("test-model"); exists {
		t.Error("Expected the host to be gone after delete")
	}
	if len(srv.ListModels()) != 0 {
		t.Error("Expected no models after delete")
	}
}

func TestLoadServerConfig_Defaults(t *testing.T) {
	for _, name := range []string{
		"GREENHOUSE_ADDR", "GREENHOUSE_MODEL_ID", "GREENHOUSE_CONFIG_FILE",
		"GREENHOUSE_SNAPSHOT_DIR", "GREENHOUSE_SNAPSHOT_EVERY_STEPS",
		"GREENHOUSE_STEP_INTERVAL", "GREENHOUSE_LOG_LEVEL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"waves-server"}

	cfg := loadServerConfig()

	if cfg.Addr != ":8080" {
		t.Errorf("Expected Addr to be ':8080', got '%s'", cfg.Addr)
	}
	if cfg.DefaultModelID != "default" {
		t.Errorf("Expected DefaultModelID to be 'default', got '%s'", cfg.DefaultModelID)
	}
	if cfg.ModelConfigFile != "" {
		t.Errorf("Expected ModelConfigFile to be empty, got '%s'", cfg.ModelConfigFile)
	}
	if cfg.SnapshotDir != "./data" {
		t.Errorf("Expected SnapshotDir to be './data', got '%s'", cfg.SnapshotDir)
	}
	if cfg.SnapshotEverySteps != 1000 {
		t.Errorf("Expected SnapshotEverySteps to be 1000, got %d", cfg.SnapshotEverySteps)
	}
	if cfg.StepIntervalMs != 33 {
		t.Errorf("Expected StepIntervalMs to be 33, got %d", cfg.StepIntervalMs)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected LogLevel to be 'info', got '%s'", cfg.LogLevel)
	}
}

func TestLoadServerConfig_EnvVars(t *testing.T) {
	t.Setenv("GREENHOUSE_ADDR", ":9090")
	t.Setenv("GREENHOUSE_MODEL_ID", "test-model")
	t.Setenv("GREENHOUSE_SNAPSHOT_EVERY_STEPS", "500")
	t.Setenv("GREENHOUSE_LOG_LEVEL", "debug")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"waves-server"}

	cfg := loadServerConfig()

	if cfg.Addr != ":9090" {
		t.Errorf("Expected Addr to be ':9090', got '%s'", cfg.Addr)
	}
	if cfg.DefaultModelID != "test-model" {
		t.Errorf("Expected DefaultModelID to be 'test-model', got '%s'", cfg.DefaultModelID)
	}
	if cfg.SnapshotEverySteps != 500 {
		t.Errorf("Expected SnapshotEverySteps to be 500, got %d", cfg.SnapshotEverySteps)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected LogLevel to be 'debug', got '%s'", cfg.LogLevel)
	}
}

func TestLoadServerConfig_FlagsOverrideEnvVars(t *testing.T) {
	t.Setenv("GREENHOUSE_ADDR", ":9090")
	t.Setenv("GREENHOUSE_MODEL_ID", "env-model")

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"waves-server", "-addr", ":7070", "-model-id", "flag-model"}

	cfg := loadServerConfig()

	if cfg.Addr != ":7070" {
		t.Errorf("Expected Addr to be ':7070' (from flag), got '%s'", cfg.Addr)
	}
	if cfg.DefaultModelID != "flag-model" {
		t.Errorf("Expected DefaultModelID to be 'flag-model' (from flag), got '%s'", cfg.DefaultModelID)
	}
}

func TestLoadModelConfigFromFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "config.json")
	data, err := json.Marshal(waves.DefaultModelConfig())
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := loadModelConfigFromFile(tmpFile)
	if err != nil {
		t.Fatalf("Expected no error loading valid config, got: %v", err)
	}
	if len(cfg.Layers) != 3 {
		t.Errorf("Expected 3 layers, got %d", len(cfg.Layers))
	}
}

func TestLoadModelConfigFromFile_MissingFile(t *testing.T) {
	if _, err := loadModelConfigFromFile("/nonexistent/config.json"); err == nil {
		t.Error("Expected error when loading missing file")
	}
}

func TestLoadModelConfigFromFile_InvalidJSON(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "invalid.json")
	if err := os.WriteFile(tmpFile, []byte("not valid json"), 0o644); err != nil {
		t.Fatalf("Failed to write invalid JSON file: %v", err)
	}
	if _, err := loadModelConfigFromFile(tmpFile); err == nil {
		t.Error("Expected error when loading invalid JSON")
	}
}

func TestLoadModelConfigFromFile_InvalidConfig(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "invalid-config.json")
	if err := os.WriteFile(tmpFile, []byte(`{"ground_altitude": 10, "top_altitude": 5}`), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	if _, err := loadModelConfigFromFile(tmpFile); err == nil {
		t.Error("Expected error when loading an invalid model config")
	}
}

func TestLogger_Levels(t *testing.T) {
	cases := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LogLevelDebug},
		{"DEBUG", LogLevelDebug},
		{"info", LogLevelInfo},
		{"warn", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"ERROR", LogLevelError},
		{"invalid", LogLevelInfo},
	}
	for _, c := range cases {
		logger := NewLogger(c.input)
		if logger.level != c.expected {
			t.Errorf("NewLogger(%q): expected level %v, got %v", c.input, c.expected, logger.level)
		}
	}
}
