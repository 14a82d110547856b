package waves

// AttenuatorID is the stable opaque identifier of a model element that
// attenuates waves, such as a cloud or an atmosphere layer. The owning
// model issues one per attenuating element at construction time; waves
// key their attenuator tables by it.
type AttenuatorID string

// AttenuationSource is the narrow capability a model element needs in
// order to attach attenuation to waves. Each concrete attenuating
// collaborator (cloud, atmosphere layer, arbitrary test double)
// implements it.
type AttenuationSource interface {
	// AttenuatorID returns the element's stable identifier.
	AttenuatorID() AttenuatorID

	// Altitude returns the altitude at which the element sits, in meters.
	Altitude() float64
}

// WaveAttenuator records the effect an external model element has on a
// wave: the fraction of intensity removed at a given point. The distance
// shifts as the wave's local coordinate origin moves, so it is mutable;
// the attenuation amount changes only through Wave.SetAttenuation.
type WaveAttenuator struct {
	// Attenuation is the fraction of the incoming intensity removed at
	// this point, in [0, 1].
	Attenuation float64 `json:"attenuation"`

	// DistanceFromStart is where the attenuator sits relative to the
	// wave's current start point, in meters.
	DistanceFromStart float64 `json:"distance_from_start"`
}
