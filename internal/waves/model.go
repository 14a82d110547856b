package waves

import "math"

// ModelID is a unique identifier for a waves model instance.
type ModelID string

// Inputs is the read-only state the model consumes from its sibling
// components on every step.
type Inputs struct {
	// SunShining enables sunlight production.
	SunShining bool `json:"sun_shining"`

	// SunIntensity is the sunlight start intensity, in (0, 1].
	SunIntensity float64 `json:"sun_intensity"`

	// SurfaceTemperature is the ground temperature in kelvin; it drives
	// the intensity of the ground's infrared emission.
	SurfaceTemperature float64 `json:"surface_temperature"`

	// Concentration is the greenhouse gas concentration, in [0, 1].
	Concentration float64 `json:"concentration"`

	// Cloud state.
	CloudEnabled  bool    `json:"cloud_enabled"`
	CloudPosition Vec2    `json:"cloud_position"`
	CloudWidth    float64 `json:"cloud_width"`

	// GroundAlbedo is the current ground albedo, in [0, 1]. At or above
	// the configured threshold the ground is considered glaciated.
	GroundAlbedo float64 `json:"ground_albedo"`
}

// Temperature-to-intensity mapping for the ground's infrared emission.
const (
	groundMinTemperature   = 245.0
	groundMaxTemperature   = 295.0
	minGroundWaveIntensity = 0.05
)

// groundIntensityFromTemperature maps a surface temperature to the start
// intensity of ground-emitted infrared waves.
func groundIntensityFromTemperature(temperature float64) float64 {
	normalized := (temperature - groundMinTemperature) / (groundMaxTemperature - groundMinTemperature)
	return math.Min(math.Max(normalized, minGroundWaveIntensity), 1)
}

// ConcentrationToAttenuation maps a greenhouse gas concentration in
// [0, 1] to the attenuation an atmosphere layer applies to infrared
// waves crossing it. The quadratic was fit empirically against the
// expected energy balance and is only valid while wave intensities stay
// in their current (0, 1] convention.
func ConcentrationToAttenuation(concentration float64) float64 {
	c := math.Min(math.Max(concentration, 0), 1)
	return -0.84*c*c + 1.66*c
}

// atmosphereLayer is one configured absorbing layer, with the stable
// attenuator identity the model issued for it.
type atmosphereLayer struct {
	id       AttenuatorID
	altitude float64
	minX     float64
	maxX     float64
}

func (l *atmosphereLayer) AttenuatorID() AttenuatorID { return l.id }
func (l *atmosphereLayer) Altitude() float64          { return l.altitude }

// cloudElement adapts the cloud, whose geometry arrives as step inputs,
// to the AttenuationSource capability.
type cloudElement struct {
	model *WavesModel
	id    AttenuatorID
}

func (c *cloudElement) AttenuatorID() AttenuatorID { return c.id }
func (c *cloudElement) Altitude() float64          { return c.model.inputs.CloudPosition.Y }

// layerInteraction tracks one active absorption/re-emission between a
// ground-originating infrared wave and an atmosphere layer.
type layerInteraction struct {
	sourceID   WaveID
	layerIndex int
	emittedID  WaveID
}

// WavesModel owns the shared wave collection, the two wave sources (sun
// and ground), and the three interaction detectors. All state changes
// happen inside StepModel; the model is deliberately lock-free, and a
// host that reads it concurrently must serialize around the step itself.
type WavesModel struct {
	ID ModelID

	cfg    ModelConfig
	logger Logger

	time   float64
	inputs Inputs

	waves     []*Wave
	waveIndex map[WaveID]*Wave

	sunSource    *EMWaveSource
	groundSource *EMWaveSource

	cloud  *cloudElement
	layers []*atmosphereLayer

	cloudReflections   map[WaveID]WaveID
	glacierReflections map[WaveID]WaveID
	layerInteractions  []*layerInteraction

	addedThisStep   []*Wave
	removedThisStep []*Wave

	notificationMgr *NotificationManager
}

// NewWavesModel creates a model from the given configuration. It returns
// a ValidationError if the configuration is inconsistent.
func NewWavesModel(cfg ModelConfig) (*WavesModel, error) {
	return NewWavesModelWithLogger(cfg, NewNoOpLogger())
}

// NewWavesModelWithLogger creates a model with a custom logger.
func NewWavesModelWithLogger(cfg ModelConfig, logger Logger) (*WavesModel, error) {
	if err := ValidateModelConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = NewNoOpLogger()
	}

	m := &WavesModel{
		ID:                 ModelID(NewRandomID()),
		cfg:                cfg,
		logger:             logger,
		waveIndex:          make(map[WaveID]*Wave),
		cloudReflections:   make(map[WaveID]WaveID),
		glacierReflections: make(map[WaveID]WaveID),
	}
	m.cloud = &cloudElement{model: m, id: AttenuatorID("cloud-" + NewRandomID())}
	for _, layerCfg := range cfg.Layers {
		m.layers = append(m.layers, &atmosphereLayer{
			id:       AttenuatorID("layer-" + NewRandomID()),
			altitude: layerCfg.Altitude,
			minX:     layerCfg.MinX,
			maxX:     layerCfg.MaxX,
		})
	}

	m.sunSource = NewEMWaveSource(
		m,
		VisibleWavelength,
		cfg.TopAltitude, cfg.GroundAltitude,
		cfg.Sun.Lanes,
		func() bool { return m.inputs.SunShining },
		func() float64 { return m.inputs.SunIntensity },
		EMWaveSourceOptions{
			GapsEnabled:   cfg.Sun.GapsEnabled,
			InterWaveTime: cfg.Sun.InterWaveTime,
			LifetimeRange: lifetimeRangeFromConfig(cfg.Sun),
		},
	)
	m.groundSource = NewEMWaveSource(
		m,
		InfraredWavelength,
		cfg.GroundAltitude, cfg.TopAltitude,
		cfg.Ground.Lanes,
		func() bool { return groundIntensityFromTemperature(m.inputs.SurfaceTemperature) > 0 },
		func() float64 { return groundIntensityFromTemperature(m.inputs.SurfaceTemperature) },
		EMWaveSourceOptions{
			GapsEnabled:   cfg.Ground.GapsEnabled,
			InterWaveTime: cfg.Ground.InterWaveTime,
			LifetimeRange: lifetimeRangeFromConfig(cfg.Ground),
		},
	)

	return m, nil
}

func lifetimeRangeFromConfig(src SourceConfig) [2]float64 {
	if src.MinLifetime == 0 && src.MaxLifetime == 0 {
		return [2]float64{}
	}
	return [2]float64{src.MinLifetime, src.MaxLifetime}
}

// Config returns the model's configuration.
func (m *WavesModel) Config() ModelConfig { return m.cfg }

// Time returns the accumulated simulation time, in seconds.
func (m *WavesModel) Time() float64 { return m.time }

// Inputs returns the inputs consumed on the most recent step.
func (m *WavesModel) Inputs() Inputs { return m.inputs }

// SetNotificationManager installs the manager that membership-change
// events are published through. Pass nil to disable publication.
func (m *WavesModel) SetNotificationManager(mgr *NotificationManager) {
	m.notificationMgr = mgr
}

// Waves returns a snapshot slice of the current wave collection. The
// pointed-to waves are live model state and must be treated as read-only
// while a step may run.
func (m *WavesModel) Waves() []*Wave {
	out := make([]*Wave, len(m.waves))
	copy(out, m.waves)
	return out
}

// WaveCount returns the number of waves currently in the model.
func (m *WavesModel) WaveCount() int { return len(m.waves) }

// Wave returns the wave with the given ID, if present.
func (m *WavesModel) Wave(id WaveID) (*Wave, bool) {
	wave, exists := m.waveIndex[id]
	return wave, exists
}

// StepModel advances the whole model by dt seconds against the given
// inputs. Sources reconcile their lanes, every wave advances, then the
// three interaction detectors run against post-step geometry, and
// finally fully-propagated waves are removed. Membership changes are
// published once, at the end of the step.
func (m *WavesModel) StepModel(dt float64, inputs Inputs) {
	if dt < 0 {
		m.logger.Warnf("waves model: ignoring negative dt %v", dt)
		return
	}
	m.inputs = inputs
	m.time += dt
	m.addedThisStep = nil
	m.removedThisStep = nil

	m.sunSource.Step(dt)
	m.groundSource.Step(dt)

	// Advance all waves before any detector runs, so the detectors
	// observe post-step geometry.
	for _, wave := range m.waves {
		wave.Step(dt)
	}

	m.updateCloudInteractions()
	m.updateLayerInteractions()
	m.updateGlacierInteractions()

	// Removal is deferred to the end of the step so the passes above
	// can iterate safely.
	m.removeCompletedWaves()

	m.publishMembershipEvents()
}

// addWave inserts a wave into the shared collection and records the
// membership change.
func (m *WavesModel) addWave(wave *Wave) {
	m.waves = append(m.waves, wave)
	m.waveIndex[wave.ID] = wave
	m.addedThisStep = append(m.addedThisStep, wave)
}

func (m *WavesModel) removeCompletedWaves() {
	kept := m.waves[:0]
	for _, wave := range m.waves {
		if !wave.Sourced() && wave.IsCompletelyPropagated() {
			delete(m.waveIndex, wave.ID)
			m.removedThisStep = append(m.removedThisStep, wave)
			continue
		}
		kept = append(kept, wave)
	}
	m.waves = kept
}

func (m *WavesModel) publishMembershipEvents() {
	if m.notificationMgr == nil {
		return
	}
	if len(m.addedThisStep) == 0 && len(m.removedThisStep) == 0 {
		return
	}
	notifierIDs := m.notificationMgr.ListNotifiers()
	for _, wave := range m.addedThisStep {
		m.notificationMgr.Enqueue(NewMembershipEvent(m.ID, WaveAdded, m.time, wave), notifierIDs)
	}
	for _, wave := range m.removedThisStep {
		m.notificationMgr.Enqueue(NewMembershipEvent(m.ID, WaveRemoved, m.time, wave), notifierIDs)
	}
}

// AddedThisStep returns the waves added during the most recent step.
func (m *WavesModel) AddedThisStep() []*Wave { return m.addedThisStep }

// RemovedThisStep returns the waves removed during the most recent step.
func (m *WavesModel) RemovedThisStep() []*Wave { return m.removedThisStep }

// Reset returns the model to its initial state: no waves, no tracked
// interactions, zero time. The sources' lifetime maps and creation
// queues are cleared too.
func (m *WavesModel) Reset() {
	m.waves = nil
	m.waveIndex = make(map[WaveID]*Wave)
	m.cloudReflections = make(map[WaveID]WaveID)
	m.glacierReflections = make(map[WaveID]WaveID)
	m.layerInteractions = nil
	m.sunSource.Reset()
	m.groundSource.Reset()
	m.time = 0
	m.addedThisStep = nil
	m.removedThisStep = nil
}

// newModelWave creates a wave honoring the model-wide propagation speed
// and rendering wavelength configuration.
func (m *WavesModel) newModelWave(wavelength float64, origin, direction Vec2, propagationLimit float64, opts WaveOptions) (*Wave, error) {
	if opts.PropagationSpeed == 0 {
		opts.PropagationSpeed = m.cfg.PropagationSpeed
	}
	if opts.RenderingWavelength == 0 {
		if wavelength == InfraredWavelength {
			opts.RenderingWavelength = m.cfg.RenderingWavelengths.Infrared
		} else {
			opts.RenderingWavelength = m.cfg.RenderingWavelengths.Visible
		}
	}
	return NewWave(wavelength, origin, direction, propagationLimit, opts)
}
