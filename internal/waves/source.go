package waves

import (
	"math"
	"math/rand"
)

// WaveSourceSpec describes one emission lane managed by an EMWaveSource:
// the X position waves start from and the unit direction they travel in.
type WaveSourceSpec struct {
	OriginX   float64 `json:"origin_x"`
	Direction Vec2    `json:"direction"`
}

// pendingWaveCreation is a queued replacement wave, created once its
// countdown reaches zero.
type pendingWaveCreation struct {
	Spec      WaveSourceSpec `json:"spec"`
	Countdown float64        `json:"countdown"`
}

// EMWaveSourceOptions carries the optional construction parameters of an
// EMWaveSource.
type EMWaveSourceOptions struct {
	// GapsEnabled causes each wave to be produced with a finite random
	// lifetime, after which it is cut loose and a replacement is queued,
	// creating visible gaps between successive waves on a lane.
	GapsEnabled bool

	// LifetimeRange bounds the random lifetime assigned to each wave
	// when gaps are enabled, in seconds.
	LifetimeRange [2]float64

	// InterWaveTime is the delay before a replacement wave is created
	// after its predecessor is cut loose, in seconds.
	InterWaveTime float64

	// Rand is the random source for lifetime assignment. Defaults to
	// the shared package-level source.
	Rand *rand.Rand
}

// Default gap-cycling parameters.
const (
	defaultInterWaveTime   = 0.75
	defaultMinWaveLifetime = 10.0
	defaultMaxWaveLifetime = 15.0
)

// EMWaveSource manages a set of emission lanes, guaranteeing that while
// production is enabled exactly one sourced wave exists per lane. It
// owns the waves only in the lifecycle sense; the waves themselves live
// in the model's shared collection.
type EMWaveSource struct {
	model *WavesModel

	wavelength    float64
	startAltitude float64
	endAltitude   float64
	specs         []WaveSourceSpec

	productionEnabled func() bool
	intensity         func() float64

	gapsEnabled   bool
	lifetimeRange [2]float64
	interWaveTime float64
	rng           *rand.Rand

	lifetimes map[WaveID]float64
	pending   []pendingWaveCreation

	logger Logger
}

// NewEMWaveSource creates a source that emits waves of the given
// wavelength from startAltitude toward endAltitude on each of the given
// lanes. The productionEnabled and intensity signals are read every
// step.
func NewEMWaveSource(
	model *WavesModel,
	wavelength float64,
	startAltitude, endAltitude float64,
	specs []WaveSourceSpec,
	productionEnabled func() bool,
	intensity func() float64,
	opts EMWaveSourceOptions,
) *EMWaveSource {
	interWaveTime := opts.InterWaveTime
	if interWaveTime == 0 {
		interWaveTime = defaultInterWaveTime
	}
	lifetimeRange := opts.LifetimeRange
	if lifetimeRange == [2]float64{} {
		lifetimeRange = [2]float64{defaultMinWaveLifetime, defaultMaxWaveLifetime}
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &EMWaveSource{
		model:             model,
		wavelength:        wavelength,
		startAltitude:     startAltitude,
		endAltitude:       endAltitude,
		specs:             specs,
		productionEnabled: productionEnabled,
		intensity:         intensity,
		gapsEnabled:       opts.GapsEnabled,
		lifetimeRange:     lifetimeRange,
		interWaveTime:     interWaveTime,
		rng:               rng,
		lifetimes:         make(map[WaveID]float64),
		logger:            model.logger,
	}
}

// Step reconciles each lane against the shared wave collection: creating
// a wave where one should exist but doesn't, cutting loose waves whose
// production has stopped or whose lifetime has run out, and syncing the
// start intensity of healthy waves to the current signal. Queued
// replacement countdowns are then advanced.
func (s *EMWaveSource) Step(dt float64) {
	enabled := s.productionEnabled()

	for _, spec := range s.specs {
		wave := s.findLaneWave(spec)

		if wave == nil {
			if enabled && !s.hasPending(spec) {
				s.createWave(spec)
			}
			continue
		}

		lifetime, tracked := s.lifetimes[wave.ID]
		if !tracked {
			lifetime = math.Inf(1)
		}

		if !enabled || wave.ExistenceTime() > lifetime {
			wave.SetSourced(false)
			delete(s.lifetimes, wave.ID)
			if enabled {
				s.pending = append(s.pending, pendingWaveCreation{
					Spec:      spec,
					Countdown: s.interWaveTime,
				})
			}
			continue
		}

		if err := wave.SetIntensityAtStart(s.intensity()); err != nil {
			s.logger.Errorf("wave source: intensity sync failed: wave_id=%s error=%v", wave.ID, err)
		}
	}

	// Advance the replacement queue.
	remaining := s.pending[:0]
	for _, p := range s.pending {
		p.Countdown -= dt
		if p.Countdown <= 0 {
			s.createWave(p.Spec)
		} else {
			remaining = append(remaining, p)
		}
	}
	s.pending = remaining
}

// findLaneWave locates the sourced wave currently occupying a lane, if
// any.
func (s *EMWaveSource) findLaneWave(spec WaveSourceSpec) *Wave {
	for _, wave := range s.model.waves {
		if wave.Sourced() &&
			wave.Wavelength == s.wavelength &&
			wave.Origin.X == spec.OriginX &&
			wave.Origin.Y == s.startAltitude {
			return wave
		}
	}
	return nil
}

func (s *EMWaveSource) hasPending(spec WaveSourceSpec) bool {
	for _, p := range s.pending {
		if p.Spec == spec {
			return true
		}
	}
	return false
}

// createWave instantiates a new sourced wave on the given lane, assigns
// its lifetime, and adds it to the model's shared collection.
func (s *EMWaveSource) createWave(spec WaveSourceSpec) {
	wave, err := s.model.newModelWave(
		s.wavelength,
		Vec2{X: spec.OriginX, Y: s.startAltitude},
		spec.Direction,
		s.endAltitude,
		WaveOptions{Intensity: s.intensity()},
	)
	if err != nil {
		s.logger.Errorf("wave source: cannot create wave: origin_x=%v error=%v", spec.OriginX, err)
		return
	}

	lifetime := math.Inf(1)
	if s.gapsEnabled {
		lifetime = s.lifetimeRange[0] + s.rng.Float64()*(s.lifetimeRange[1]-s.lifetimeRange[0])
	}
	s.lifetimes[wave.ID] = lifetime

	s.model.addWave(wave)
}

// Reset clears the source's lifetime bookkeeping and replacement queue.
// Waves already in the shared collection are left alone; the model owns
// their removal.
func (s *EMWaveSource) Reset() {
	s.lifetimes = make(map[WaveID]float64)
	s.pending = nil
}
