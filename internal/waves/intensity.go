package waves

// WaveIntensityChange marks a discontinuity in a wave's intensity
// profile. Everything at a greater distance from the wave's start point
// than the change, up to the next change, has the post-change intensity.
//
// A change is either anchored to an attenuating model element, in which
// case it stays fixed in absolute space while the wave moves past it, or
// free, in which case it travels along with the wave.
type WaveIntensityChange struct {
	// PostChangeIntensity is the intensity on the far side of the
	// change, in (0, 1].
	PostChangeIntensity float64 `json:"post_change_intensity"`

	// DistanceFromStart is the position of the change relative to the
	// wave's current start point, in meters.
	DistanceFromStart float64 `json:"distance_from_start"`

	// AnchoredTo names the attenuating element this change is pinned
	// to, or is empty for a free change.
	AnchoredTo AttenuatorID `json:"anchored_to,omitempty"`
}

// IsAnchored reports whether the change is pinned to an attenuating
// element rather than traveling with the wave.
func (c WaveIntensityChange) IsAnchored() bool {
	return c.AnchoredTo != ""
}
