package waves

import "math"

// Wavelengths of the two bands of electromagnetic energy that the model
// simulates, in meters.
const (
	VisibleWavelength  = 500e-9
	InfraredWavelength = 10e-6
)

// Altitude bounds of the model space, in meters.
const (
	GroundAltitude          = 0.0
	HeightOfAtmosphere      = 50000.0
	SunWaveOriginAltitude   = HeightOfAtmosphere
	GroundWaveOriginAltitude = GroundAltitude
)

// WavePropagationSpeed is the default speed at which waves move through
// the model, in meters per second. It is far slower than the real speed
// of light, which makes propagation visible at the model's scale.
const WavePropagationSpeed = 9000.0

// phaseRate is the rate at which each wave's phase offset evolves, in
// radians per second. The negative sign makes the rendered waveform
// appear to flow in the direction of travel.
const phaseRate = -math.Pi

// Default rendering wavelengths, in meters. These control how the view
// draws a waveform for each band and have nothing to do with the
// physical wavelengths, which are far too small to depict.
const (
	defaultVisibleRenderingWavelength  = 8000.0
	defaultInfraredRenderingWavelength = 12000.0
)

// Thresholds that keep the intensity-change list from being churned by
// insignificant adjustments.
const (
	// minimumIntensityDelta is the smallest change of intensity or
	// attenuation that is actually recorded.
	minimumIntensityDelta = 0.05

	// minimumInterChangeDistance is how close together, in meters, two
	// intensity changes may be before they are merged rather than kept
	// as separate entries.
	minimumInterChangeDistance = 120.0

	// travelingChangeStartOffset is the distance from the start point,
	// in meters, at which a traveling intensity change is spawned when
	// the start intensity is updated.
	travelingChangeStartOffset = 1.0

	// preAttenuationChangeOffset is how far beyond a new attenuator, in
	// meters, the traveling change that preserves the pre-attenuation
	// intensity is placed.
	preAttenuationChangeOffset = 0.1
)
