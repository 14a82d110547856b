package waves

import "math"

// SourceConfig describes one EMWaveSource: its emission lanes plus the
// gap-cycling parameters. Zero-valued timing fields fall back to the
// package defaults.
type SourceConfig struct {
	Lanes         []WaveSourceSpec `json:"lanes"`
	GapsEnabled   bool             `json:"gaps_enabled,omitempty"`
	InterWaveTime float64          `json:"inter_wave_time,omitempty"`
	MinLifetime   float64          `json:"min_lifetime,omitempty"`
	MaxLifetime   float64          `json:"max_lifetime,omitempty"`
}

// CloudConfig holds the static part of the cloud's behavior; the cloud's
// enabled flag, position, and width arrive as step inputs.
type CloudConfig struct {
	// Reflectance is the fraction of a crossing wave's intensity the
	// cloud reflects, in [0, 1].
	Reflectance float64 `json:"reflectance"`
}

// AtmosphereLayerConfig describes one absorbing layer of the atmosphere
// as a horizontal segment in model space.
type AtmosphereLayerConfig struct {
	Altitude float64 `json:"altitude"`
	MinX     float64 `json:"min_x"`
	MaxX     float64 `json:"max_x"`
}

// GlacierConfig holds the parameters of glacier (ice age) reflection.
type GlacierConfig struct {
	// AlbedoThreshold is the ground albedo at or above which glacier
	// reflection activates.
	AlbedoThreshold float64 `json:"albedo_threshold"`

	// ReflectedIntensity is the fixed intensity of glacier-reflected
	// waves, in (0, 1].
	ReflectedIntensity float64 `json:"reflected_intensity"`

	// PhaseOffset is the fixed initial phase of glacier-reflected
	// waves, in radians.
	PhaseOffset float64 `json:"phase_offset,omitempty"`
}

// RenderingWavelengthConfig maps each band to the wavelength used to
// depict it. These are view-scale values with no physical meaning.
type RenderingWavelengthConfig struct {
	Visible  float64 `json:"visible"`
	Infrared float64 `json:"infrared"`
}

// ModelConfig is the full construction-time configuration of a
// WavesModel.
type ModelConfig struct {
	GroundAltitude float64 `json:"ground_altitude"`
	TopAltitude    float64 `json:"top_altitude"`

	Sun    SourceConfig `json:"sun"`
	Ground SourceConfig `json:"ground"`

	Cloud   CloudConfig             `json:"cloud"`
	Layers  []AtmosphereLayerConfig `json:"layers"`
	Glacier GlacierConfig           `json:"glacier"`

	RenderingWavelengths RenderingWavelengthConfig `json:"rendering_wavelengths"`

	// PropagationSpeed overrides the model-scaled speed of light for
	// every wave the model creates. Defaults to WavePropagationSpeed.
	PropagationSpeed float64 `json:"propagation_speed,omitempty"`

	// ReflectionTilt is the angle, in radians, by which reflected waves
	// lean off vertical so they don't overlap their incident wave.
	ReflectionTilt float64 `json:"reflection_tilt,omitempty"`
}

// DefaultModelConfig returns the configuration used by the standard
// greenhouse-effect screen: two sunlight lanes, two ground infrared
// lanes with gap cycling, and three absorbing atmosphere layers.
func DefaultModelConfig() ModelConfig {
	down := UnitFromAngle(-math.Pi / 2)
	downTilted := UnitFromAngle(-math.Pi/2 + math.Pi*0.05)
	up := UnitFromAngle(math.Pi / 2)
	upTilted := UnitFromAngle(math.Pi/2 - math.Pi*0.06)

	return ModelConfig{
		GroundAltitude: GroundAltitude,
		TopAltitude:    HeightOfAtmosphere,
		Sun: SourceConfig{
			Lanes: []WaveSourceSpec{
				{OriginX: -22000, Direction: down},
				{OriginX: 14000, Direction: downTilted},
			},
		},
		Ground: SourceConfig{
			Lanes: []WaveSourceSpec{
				{OriginX: -12000, Direction: upTilted},
				{OriginX: 19000, Direction: up},
			},
			GapsEnabled: true,
		},
		Cloud: CloudConfig{Reflectance: 0.5},
		Layers: []AtmosphereLayerConfig{
			{Altitude: 12000, MinX: -40000, MaxX: 40000},
			{Altitude: 25000, MinX: -40000, MaxX: 40000},
			{Altitude: 38000, MinX: -40000, MaxX: 40000},
		},
		Glacier: GlacierConfig{
			AlbedoThreshold:    0.8,
			ReflectedIntensity: 0.5,
		},
		RenderingWavelengths: RenderingWavelengthConfig{
			Visible:  defaultVisibleRenderingWavelength,
			Infrared: defaultInfraredRenderingWavelength,
		},
		PropagationSpeed: WavePropagationSpeed,
		ReflectionTilt:   math.Pi / 6,
	}
}
