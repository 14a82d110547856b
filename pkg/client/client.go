package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

// ConfigBuilder provides a fluent API for building model configurations.
// Use it to define the emission lanes, atmosphere layers, and reflection
// parameters of a greenhouse waves model.
type ConfigBuilder struct {
	cfg waves.ModelConfig
}

// NewConfig creates a new configuration builder seeded with the standard
// greenhouse-effect defaults, but with no lanes or layers. Add those
// with SunLane, GroundLane, and Layer.
func NewConfig() *ConfigBuilder {
	cfg := waves.DefaultModelConfig()
	cfg.Sun.Lanes = nil
	cfg.Ground.Lanes = nil
	cfg.Layers = nil
	return &ConfigBuilder{cfg: cfg}
}

// Altitudes sets the ground and top-of-atmosphere altitudes, in meters.
func (cb *ConfigBuilder) Altitudes(ground, top float64) *ConfigBuilder {
	cb.cfg.GroundAltitude = ground
	cb.cfg.TopAltitude = top
	return cb
}

// SunLane adds a sunlight emission lane at the given x position, in
// meters, emitting in the given direction. The direction must be a unit
// vector pointing downward.
func (cb *ConfigBuilder) SunLane(originX float64, direction waves.Vec2) *ConfigBuilder {
	cb.cfg.Sun.Lanes = append(cb.cfg.Sun.Lanes, waves.WaveSourceSpec{
		OriginX:   originX,
		Direction: direction,
	})
	return cb
}

// GroundLane adds an infrared emission lane at the given x position, in
// meters, emitting in the given direction. The direction must be a unit
// vector pointing upward.
func (cb *ConfigBuilder) GroundLane(originX float64, direction waves.Vec2) *ConfigBuilder {
	cb.cfg.Ground.Lanes = append(cb.cfg.Ground.Lanes, waves.WaveSourceSpec{
		OriginX:   originX,
		Direction: direction,
	})
	return cb
}

// GroundGaps enables or disables gap cycling on the ground source, where
// each wave lives for a random lifetime and is separated from its
// replacement by a quiet interval.
func (cb *ConfigBuilder) GroundGaps(enabled bool) *ConfigBuilder {
	cb.cfg.Ground.GapsEnabled = enabled
	return cb
}

// GroundLifetimes sets the lifetime range, in seconds, used by ground
// gap cycling.
func (cb *ConfigBuilder) GroundLifetimes(min, max float64) *ConfigBuilder {
	cb.cfg.Ground.MinLifetime = min
	cb.cfg.Ground.MaxLifetime = max
	return cb
}

// Layer adds an absorbing atmosphere layer at the given altitude, in
// meters, spanning [minX, maxX].
func (cb *ConfigBuilder) Layer(altitude, minX, maxX float64) *ConfigBuilder {
	cb.cfg.Layers = append(cb.cfg.Layers, waves.AtmosphereLayerConfig{
		Altitude: altitude,
		MinX:     minX,
		MaxX:     maxX,
	})
	return cb
}

// CloudReflectance sets the fraction of a crossing wave's intensity the
// cloud reflects, in [0, 1].
func (cb *ConfigBuilder) CloudReflectance(reflectance float64) *ConfigBuilder {
	cb.cfg.Cloud.Reflectance = reflectance
	return cb
}

// Glacier sets the albedo threshold at which glacier reflection
// activates and the fixed intensity of the reflected waves.
func (cb *ConfigBuilder) Glacier(albedoThreshold, reflectedIntensity float64) *ConfigBuilder {
	cb.cfg.Glacier.AlbedoThreshold = albedoThreshold
	cb.cfg.Glacier.ReflectedIntensity = reflectedIntensity
	return cb
}

// PropagationSpeed overrides the model-scaled speed of light, in meters
// per second.
func (cb *ConfigBuilder) PropagationSpeed(speed float64) *ConfigBuilder {
	cb.cfg.PropagationSpeed = speed
	return cb
}

// RenderingWavelengths sets the view-scale wavelength, in meters, used
// to depict each band.
func (cb *ConfigBuilder) RenderingWavelengths(visible, infrared float64) *ConfigBuilder {
	cb.cfg.RenderingWavelengths.Visible = visible
	cb.cfg.RenderingWavelengths.Infrared = infrared
	return cb
}

// Build converts the builder to a ModelConfig that can be used with
// Client.ApplyConfig or passed directly to waves.NewWavesModel.
func (cb *ConfigBuilder) Build() waves.ModelConfig {
	return cb.cfg
}

// Client is an HTTP client for a waves-server instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at the given base URL
// (e.g., "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

// NewWithHTTPClient creates a client that sends requests through the
// provided http.Client, for callers that need custom timeouts or
// transports.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// StepRequest is the body of a step call. Inputs may be nil to keep the
// model's current inputs.
type StepRequest struct {
	Dt     float64       `json:"dt"`
	Inputs *waves.Inputs `json:"inputs,omitempty"`
}

// ApplyConfig creates or replaces the model with the given ID on the
// server using the provided configuration.
func (c *Client) ApplyConfig(ctx context.Context, modelID string, cfg waves.ModelConfig) error {
	return c.postJSON(ctx, []string{"model", modelID, "config"}, cfg, nil)
}

// Step advances the model by dt seconds, optionally replacing its
// inputs first.
func (c *Client) Step(ctx context.Context, modelID string, dt float64, inputs *waves.Inputs) error {
	return c.postJSON(ctx, []string{"model", modelID, "step"}, StepRequest{Dt: dt, Inputs: inputs}, nil)
}

// SetInputs replaces the inputs the model consumes on subsequent steps.
func (c *Client) SetInputs(ctx context.Context, modelID string, inputs waves.Inputs) error {
	return c.doJSON(ctx, http.MethodPut, []string{"model", modelID, "inputs"}, inputs, nil)
}

// Waves returns the serialized current wave collection of the model.
func (c *Client) Waves(ctx context.Context, modelID string) ([]waves.WaveState, error) {
	var out []waves.WaveState
	if err := c.getJSON(ctx, []string{"model", modelID, "waves"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Start begins auto-running the model on the server.
func (c *Client) Start(ctx context.Context, modelID string) error {
	return c.postJSON(ctx, []string{"model", modelID, "start"}, nil, nil)
}

// Stop halts the model's auto-run loop on the server.
func (c *Client) Stop(ctx context.Context, modelID string) error {
	return c.postJSON(ctx, []string{"model", modelID, "stop"}, nil, nil)
}

// SaveSnapshot asks the server to persist a snapshot of the model and
// returns the path it was written to.
func (c *Client) SaveSnapshot(ctx context.Context, modelID string) (string, error) {
	var resp map[string]string
	if err := c.postJSON(ctx, []string{"model", modelID, "snapshot"}, nil, &resp); err != nil {
		return "", err
	}
	return resp["path"], nil
}

// GetSnapshot fetches the model's saved snapshot from the server.
func (c *Client) GetSnapshot(ctx context.Context, modelID string) (waves.Snapshot, error) {
	var snapshot waves.Snapshot
	if err := c.getJSON(ctx, []string{"model", modelID, "snapshot"}, &snapshot); err != nil {
		return waves.Snapshot{}, err
	}
	return snapshot, nil
}

// RestoreSnapshot replaces the model's state with the given snapshot.
func (c *Client) RestoreSnapshot(ctx context.Context, modelID string, snapshot waves.Snapshot) error {
	return c.postJSON(ctx, []string{"model", modelID, "restore"}, snapshot, nil)
}

// DeleteModel removes the model from the server.
func (c *Client) DeleteModel(ctx context.Context, modelID string) error {
	return c.doJSON(ctx, http.MethodDelete, []string{"model", modelID}, nil, nil)
}

// ListModels returns the IDs of all models on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	var resp map[string][]string
	if err := c.getJSON(ctx, []string{"models"}, &resp); err != nil {
		return nil, err
	}
	return resp["models"], nil
}

// RegisterWebhookNotifier registers a webhook notifier on the server so
// wave membership events are POSTed to the given URL.
func (c *Client) RegisterWebhookNotifier(ctx context.Context, id, webhookURL string, headers map[string]string) error {
	config := map[string]any{"url": webhookURL}
	if len(headers) > 0 {
		hdrs := make(map[string]any, len(headers))
		for k, v := range headers {
			hdrs[k] = v
		}
		config["headers"] = hdrs
	}
	body := map[string]any{
		"type":   "webhook",
		"id":     id,
		"config": config,
	}
	return c.postJSON(ctx, []string{"notifiers"}, body, nil)
}

// RegisterWebSocketNotifier registers a websocket notifier on the
// server. Clients can then attach at /ws/{id} to stream membership
// events.
func (c *Client) RegisterWebSocketNotifier(ctx context.Context, id string) error {
	body := map[string]any{
		"type": "websocket",
		"id":   id,
	}
	return c.postJSON(ctx, []string{"notifiers"}, body, nil)
}

// UnregisterNotifier removes a notifier from the server.
func (c *Client) UnregisterNotifier(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, []string{"notifiers", id}, nil, nil)
}

func (c *Client) getJSON(ctx context.Context, pathParts []string, out any) error {
	return c.doJSON(ctx, http.MethodGet, pathParts, nil, out)
}

func (c *Client) postJSON(ctx context.Context, pathParts []string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, pathParts, body, out)
}

func (c *Client) doJSON(ctx context.Context, method string, pathParts []string, body, out any) error {
	u, err := url.JoinPath(c.baseURL, pathParts...)
	if err != nil {
		return fmt.Errorf("failed to build URL: %w", err)
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}
