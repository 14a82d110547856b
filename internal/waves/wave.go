package waves

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats/scalar"
)

// WaveID is a unique identifier for a wave.
type WaveID string

// WaveOptions carries the optional construction parameters of a wave.
// Zero values select the defaults noted on each field.
type WaveOptions struct {
	// Intensity is the intensity at the wave's start point, in (0, 1].
	// Defaults to 1.
	Intensity float64

	// InitialPhaseOffset is the starting phase offset at the wave's
	// origin, in radians. It is wrapped into [0, 2π).
	InitialPhaseOffset float64

	// PropagationSpeed overrides the model-scaled speed of light.
	// Defaults to WavePropagationSpeed.
	PropagationSpeed float64

	// RenderingWavelength overrides the wavelength used for phase
	// calculations when depicting the wave. Defaults per band.
	RenderingWavelength float64
}

// Wave is a continuous line-segment abstraction of electromagnetic
// energy traveling along the model's altitude axis. While sourced, the
// wave is still being emitted and grows from a fixed start point; once
// unsourced, the start point itself propagates until it reaches the
// propagation limit, at which point the wave is completely propagated
// and can be removed from the model.
type Wave struct {
	ID WaveID

	// Wavelength identifies the wave's band, in meters. Immutable.
	Wavelength float64

	// Origin is where the wave was first emitted. Immutable.
	Origin Vec2

	// Direction is the unit vector of travel. It is never horizontal.
	// Immutable.
	Direction Vec2

	// PropagationLimit is the altitude beyond which the wave may not
	// extend. Immutable.
	PropagationLimit float64

	speed               float64
	renderingWavelength float64

	startPoint          Vec2
	length              float64
	sourced             bool
	existenceTime       float64
	phaseOffsetAtOrigin float64
	intensityAtStart    float64
	intensityChanges    []WaveIntensityChange
	attenuators         map[AttenuatorID]*WaveAttenuator
}

// NewWave creates a sourced, zero-length wave of the given wavelength
// that will travel from origin in the given unit direction until it
// reaches the propagationLimit altitude. It returns a ConfigurationError
// if the direction is not a non-horizontal unit vector, if the limit
// does not lie in the direction of travel, or if the intensity is out
// of range.
func NewWave(wavelength float64, origin, direction Vec2, propagationLimit float64, opts WaveOptions) (*Wave, error) {
	if !direction.IsUnit() {
		return nil, configErrorf("propagation direction %+v is not a unit vector", direction)
	}
	if scalar.EqualWithinAbs(direction.Y, 0, 1e-6) {
		return nil, configErrorf("propagation direction %+v is horizontal", direction)
	}
	if scalar.EqualWithinAbs(propagationLimit, origin.Y, positionTolerance) {
		return nil, configErrorf("propagation limit %v coincides with origin altitude %v", propagationLimit, origin.Y)
	}
	if (propagationLimit-origin.Y > 0) != (direction.Y > 0) {
		return nil, configErrorf("propagation limit %v lies opposite the direction of travel", propagationLimit)
	}

	intensity := opts.Intensity
	if intensity == 0 {
		intensity = 1
	}
	if intensity < 0 || intensity > 1 {
		return nil, configErrorf("intensity %v outside (0, 1]", intensity)
	}

	speed := opts.PropagationSpeed
	if speed == 0 {
		speed = WavePropagationSpeed
	}
	renderingWavelength := opts.RenderingWavelength
	if renderingWavelength == 0 {
		if wavelength == InfraredWavelength {
			renderingWavelength = defaultInfraredRenderingWavelength
		} else {
			renderingWavelength = defaultVisibleRenderingWavelength
		}
	}

	return &Wave{
		ID:                  WaveID(NewRandomID()),
		Wavelength:          wavelength,
		Origin:              origin,
		Direction:           direction,
		PropagationLimit:    propagationLimit,
		speed:               speed,
		renderingWavelength: renderingWavelength,
		startPoint:          origin,
		sourced:             true,
		phaseOffsetAtOrigin: wrapAngle(opts.InitialPhaseOffset),
		intensityAtStart:    intensity,
		attenuators:         make(map[AttenuatorID]*WaveAttenuator),
	}, nil
}

// StartPoint returns the wave's current start point.
func (w *Wave) StartPoint() Vec2 { return w.startPoint }

// EndPoint returns the current far end of the wave.
func (w *Wave) EndPoint() Vec2 {
	return w.startPoint.Add(w.Direction.Scale(w.length))
}

// Length returns the wave's current length, in meters.
func (w *Wave) Length() float64 { return w.length }

// Sourced reports whether the wave is still being emitted at its start
// point.
func (w *Wave) Sourced() bool { return w.sourced }

// SetSourced marks the wave as sourced or unsourced. An unsourced wave
// propagates freely, its start point advancing toward the propagation
// limit.
func (w *Wave) SetSourced(sourced bool) { w.sourced = sourced }

// ExistenceTime returns how long the wave has existed, in seconds.
func (w *Wave) ExistenceTime() float64 { return w.existenceTime }

// PhaseOffsetAtOrigin returns the wave's current phase offset at its
// origin, in [0, 2π).
func (w *Wave) PhaseOffsetAtOrigin() float64 { return w.phaseOffsetAtOrigin }

// IntensityAtStart returns the intensity at the wave's start point.
func (w *Wave) IntensityAtStart() float64 { return w.intensityAtStart }

// IntensityChanges returns a copy of the wave's intensity changes,
// ordered by ascending distance from the start point.
func (w *Wave) IntensityChanges() []WaveIntensityChange {
	out := make([]WaveIntensityChange, len(w.intensityChanges))
	copy(out, w.intensityChanges)
	return out
}

// PhaseAt returns the wave's phase at the given distance from its start
// point, in [0, 2π), based on the configured rendering wavelength.
func (w *Wave) PhaseAt(distanceFromStart float64) float64 {
	return wrapAngle(w.phaseOffsetAtOrigin + 2*math.Pi*distanceFromStart/w.renderingWavelength)
}

// RenderingWavelength returns the wavelength used to depict this wave.
func (w *Wave) RenderingWavelength() float64 { return w.renderingWavelength }

// distanceToPropagationLimit returns how far the start point can still
// travel before reaching the propagation limit.
func (w *Wave) distanceToPropagationLimit() float64 {
	return (w.PropagationLimit - w.startPoint.Y) / w.Direction.Y
}

// Step advances the wave by dt seconds. A sourced wave grows from its
// fixed start point; an unsourced wave's start point advances toward the
// propagation limit, carrying free intensity changes with it while
// anchored changes and attenuators, fixed in absolute space, fall back
// in the wave's local coordinates. Attenuators that the start point
// passes are folded permanently into the start intensity.
func (w *Wave) Step(dt float64) {
	if dt <= 0 {
		return
	}

	travel := w.speed * dt

	if w.sourced {
		distToLimit := w.distanceToPropagationLimit()
		growth := math.Min(travel, distToLimit-w.length)
		if growth > 0 {
			w.length += growth
		}

		// Free changes travel away from the source at propagation speed.
		for i := range w.intensityChanges {
			if !w.intensityChanges[i].IsAnchored() {
				w.intensityChanges[i].DistanceFromStart += travel
			}
		}
	} else {
		distToLimit := w.distanceToPropagationLimit()
		if travel > distToLimit {
			travel = distToLimit
		}
		w.startPoint = w.startPoint.Add(w.Direction.Scale(travel))
		if remaining := distToLimit - travel; w.length > remaining {
			w.length = remaining
		}

		// Attenuators and anchored changes are fixed in absolute space,
		// so the moving start point closes in on them.
		for _, attenuator := range w.attenuators {
			attenuator.DistanceFromStart -= travel
		}
		for i := range w.intensityChanges {
			if w.intensityChanges[i].IsAnchored() {
				w.intensityChanges[i].DistanceFromStart -= travel
			}
		}

		// Fold any attenuator the start point has reached into the
		// start intensity. This is irreversible.
		for id, attenuator := range w.attenuators {
			if attenuator.DistanceFromStart <= 0 {
				w.intensityAtStart *= 1 - attenuator.Attenuation
				delete(w.attenuators, id)
			}
		}
	}

	// Discard changes that have fallen off either end of the wave.
	kept := w.intensityChanges[:0]
	for _, change := range w.intensityChanges {
		if change.DistanceFromStart <= 0 || change.DistanceFromStart >= w.length {
			continue
		}
		kept = append(kept, change)
	}
	w.intensityChanges = kept
	w.sortIntensityChanges()

	w.phaseOffsetAtOrigin = wrapAngle(w.phaseOffsetAtOrigin + phaseRate*dt)
	w.existenceTime += dt
}

// GetIntensityAt returns the wave's intensity at the given distance from
// its start point. The change closest below the queried distance applies;
// a change exactly at the queried distance does not yet apply.
func (w *Wave) GetIntensityAt(distanceFromStart float64) float64 {
	intensity := w.intensityAtStart
	for _, change := range w.intensityChanges {
		if change.DistanceFromStart >= distanceFromStart {
			break
		}
		intensity = change.PostChangeIntensity
	}
	return intensity
}

// SetIntensityAtStart updates the intensity at the wave's start point.
// The previous value is preserved in a free intensity change near the
// start so the already-emitted portion of the wave keeps its intensity
// as it travels. Updates smaller than the minimum recordable delta are
// ignored to keep the change list from churning.
func (w *Wave) SetIntensityAtStart(intensity float64) error {
	if intensity <= 0 || intensity > 1 {
		return stateErrorf("SetIntensityAtStart", "intensity %v outside (0, 1]", intensity)
	}
	if math.Abs(intensity-w.intensityAtStart) < minimumIntensityDelta {
		return nil
	}

	// Reuse a free change already sitting near the start rather than
	// piling up a new one per update.
	reused := false
	for i := range w.intensityChanges {
		change := &w.intensityChanges[i]
		if !change.IsAnchored() && change.DistanceFromStart < minimumInterChangeDistance {
			change.PostChangeIntensity = w.intensityAtStart
			reused = true
			break
		}
	}
	if !reused {
		w.intensityChanges = append(w.intensityChanges, WaveIntensityChange{
			PostChangeIntensity: w.intensityAtStart,
			DistanceFromStart:   travelingChangeStartOffset,
		})
	}

	w.intensityAtStart = intensity
	w.sortIntensityChanges()
	return nil
}

// AddAttenuator attaches an attenuator for the given source at the given
// distance from the wave's start point. The intensity beyond that point
// drops by the attenuation fraction; the pre-attenuation intensity of
// any wave content already beyond the attenuator is preserved in a free
// change that travels onward with the wave.
func (w *Wave) AddAttenuator(distanceFromStart, attenuation float64, source AttenuationSource) error {
	if attenuation < 0 || attenuation > 1 {
		return stateErrorf("AddAttenuator", "attenuation %v outside [0, 1]", attenuation)
	}
	id := source.AttenuatorID()
	if _, exists := w.attenuators[id]; exists {
		return stateErrorf("AddAttenuator", "attenuator already present for source %s", id)
	}

	preAttenuationIntensity := w.GetIntensityAt(distanceFromStart)

	w.attenuators[id] = &WaveAttenuator{
		Attenuation:       attenuation,
		DistanceFromStart: distanceFromStart,
	}
	w.intensityChanges = append(w.intensityChanges, WaveIntensityChange{
		PostChangeIntensity: preAttenuationIntensity * (1 - attenuation),
		DistanceFromStart:   distanceFromStart,
		AnchoredTo:          id,
	})

	// Content already beyond the attenuator passed through before the
	// attenuator existed, so it keeps the old intensity and travels on.
	if distanceFromStart+preAttenuationChangeOffset < w.length {
		w.intensityChanges = append(w.intensityChanges, WaveIntensityChange{
			PostChangeIntensity: preAttenuationIntensity,
			DistanceFromStart:   distanceFromStart + preAttenuationChangeOffset,
		})
	}

	w.sortIntensityChanges()
	return nil
}

// HasAttenuator reports whether an attenuator is present for the given
// source.
func (w *Wave) HasAttenuator(id AttenuatorID) bool {
	_, exists := w.attenuators[id]
	return exists
}

// AttenuatorDistance returns the current distance from the start point
// of the attenuator for the given source, if one is present.
func (w *Wave) AttenuatorDistance(id AttenuatorID) (float64, bool) {
	attenuator, exists := w.attenuators[id]
	if !exists {
		return 0, false
	}
	return attenuator.DistanceFromStart, true
}

// Attenuation returns the attenuation fraction of the attenuator for the
// given source, if one is present.
func (w *Wave) Attenuation(id AttenuatorID) (float64, bool) {
	attenuator, exists := w.attenuators[id]
	if !exists {
		return 0, false
	}
	return attenuator.Attenuation, true
}

// RemoveAttenuator detaches the attenuator for the given source. The
// attenuated region that already exists stays attenuated: if the
// anchored intensity change still lies within the wave, it is freed to
// travel with the wave; otherwise it is deleted outright.
func (w *Wave) RemoveAttenuator(id AttenuatorID) error {
	attenuator, exists := w.attenuators[id]
	if !exists {
		return stateErrorf("RemoveAttenuator", "no attenuator for source %s", id)
	}
	delete(w.attenuators, id)

	idx := w.anchoredChangeIndex(id)
	if idx < 0 {
		return nil
	}
	change := &w.intensityChanges[idx]
	if change.DistanceFromStart > 0 && change.DistanceFromStart < w.length {
		change.PostChangeIntensity = w.GetIntensityAt(change.DistanceFromStart) * (1 - attenuator.Attenuation)
		change.AnchoredTo = ""
	} else {
		w.intensityChanges = append(w.intensityChanges[:idx], w.intensityChanges[idx+1:]...)
	}
	return nil
}

// SetAttenuation updates the attenuation fraction of an existing
// attenuator. Updates smaller than the minimum recordable delta are
// ignored. When the stretch of wave just beyond the anchored change is
// clear, the old change is freed to carry the previous attenuated value
// away and a fresh anchored change takes its place; otherwise the
// anchored change is corrected in place.
func (w *Wave) SetAttenuation(id AttenuatorID, attenuation float64) error {
	if attenuation < 0 || attenuation > 1 {
		return stateErrorf("SetAttenuation", "attenuation %v outside [0, 1]", attenuation)
	}
	attenuator, exists := w.attenuators[id]
	if !exists {
		return stateErrorf("SetAttenuation", "no attenuator for source %s", id)
	}
	if math.Abs(attenuation-attenuator.Attenuation) < minimumIntensityDelta {
		return nil
	}
	attenuator.Attenuation = attenuation

	idx := w.anchoredChangeIndex(id)
	if idx < 0 {
		w.intensityChanges = append(w.intensityChanges, WaveIntensityChange{
			PostChangeIntensity: w.GetIntensityAt(attenuator.DistanceFromStart) * (1 - attenuation),
			DistanceFromStart:   attenuator.DistanceFromStart,
			AnchoredTo:          id,
		})
		w.sortIntensityChanges()
		return nil
	}

	change := &w.intensityChanges[idx]
	post := w.GetIntensityAt(change.DistanceFromStart) * (1 - attenuation)

	if w.hasChangeCloselyAfter(idx) {
		change.PostChangeIntensity = post
	} else {
		change.AnchoredTo = ""
		w.intensityChanges = append(w.intensityChanges, WaveIntensityChange{
			PostChangeIntensity: post,
			DistanceFromStart:   attenuator.DistanceFromStart,
			AnchoredTo:          id,
		})
	}
	w.sortIntensityChanges()
	return nil
}

// IsCompletelyPropagated reports whether the wave's start point has
// reached the propagation limit, meaning nothing of the wave remains in
// the model space.
func (w *Wave) IsCompletelyPropagated() bool {
	return scalar.EqualWithinAbs(w.startPoint.Y, w.PropagationLimit, positionTolerance)
}

func (w *Wave) anchoredChangeIndex(id AttenuatorID) int {
	for i, change := range w.intensityChanges {
		if change.AnchoredTo == id {
			return i
		}
	}
	return -1
}

// hasChangeCloselyAfter reports whether another intensity change lies
// within the minimum inter-change distance beyond the change at idx.
func (w *Wave) hasChangeCloselyAfter(idx int) bool {
	reference := w.intensityChanges[idx].DistanceFromStart
	for i, change := range w.intensityChanges {
		if i == idx {
			continue
		}
		if change.DistanceFromStart > reference && change.DistanceFromStart-reference < minimumInterChangeDistance {
			return true
		}
	}
	return false
}

func (w *Wave) sortIntensityChanges() {
	sort.SliceStable(w.intensityChanges, func(i, j int) bool {
		return w.intensityChanges[i].DistanceFromStart < w.intensityChanges[j].DistanceFromStart
	})
}
