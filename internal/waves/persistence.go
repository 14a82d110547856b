package waves

import (
	"encoding/json"
	"fmt"
	"math"
)

// WaveState is the serializable form of a Wave.
type WaveState struct {
	ID                  WaveID                         `json:"id"`
	Wavelength          float64                        `json:"wavelength"`
	Origin              Vec2                           `json:"origin"`
	Direction           Vec2                           `json:"direction"`
	PropagationLimit    float64                        `json:"propagation_limit"`
	StartPoint          Vec2                           `json:"start_point"`
	Length              float64                        `json:"length"`
	Sourced             bool                           `json:"sourced"`
	ExistenceTime       float64                        `json:"existence_time"`
	PhaseOffsetAtOrigin float64                        `json:"phase_offset_at_origin"`
	IntensityAtStart    float64                        `json:"intensity_at_start"`
	IntensityChanges    []WaveIntensityChange          `json:"intensity_changes,omitempty"`
	Attenuators         map[AttenuatorID]WaveAttenuator `json:"attenuators,omitempty"`
	PropagationSpeed    float64                        `json:"propagation_speed"`
	RenderingWavelength float64                        `json:"rendering_wavelength"`
}

// State captures the wave's complete current state.
func (w *Wave) State() WaveState {
	attenuators := make(map[AttenuatorID]WaveAttenuator, len(w.attenuators))
	for id, attenuator := range w.attenuators {
		attenuators[id] = *attenuator
	}
	return WaveState{
		ID:                  w.ID,
		Wavelength:          w.Wavelength,
		Origin:              w.Origin,
		Direction:           w.Direction,
		PropagationLimit:    w.PropagationLimit,
		StartPoint:          w.startPoint,
		Length:              w.length,
		Sourced:             w.sourced,
		ExistenceTime:       w.existenceTime,
		PhaseOffsetAtOrigin: w.phaseOffsetAtOrigin,
		IntensityAtStart:    w.intensityAtStart,
		IntensityChanges:    w.IntensityChanges(),
		Attenuators:         attenuators,
		PropagationSpeed:    w.speed,
		RenderingWavelength: w.renderingWavelength,
	}
}

// waveFromState rebuilds a wave from its serialized form. Construction
// invariants are re-checked; the mutable fields are then restored as-is.
func waveFromState(state WaveState) (*Wave, error) {
	wave, err := NewWave(state.Wavelength, state.Origin, state.Direction, state.PropagationLimit, WaveOptions{
		Intensity:           state.IntensityAtStart,
		InitialPhaseOffset:  state.PhaseOffsetAtOrigin,
		PropagationSpeed:    state.PropagationSpeed,
		RenderingWavelength: state.RenderingWavelength,
	})
	if err != nil {
		return nil, err
	}
	wave.ID = state.ID
	wave.startPoint = state.StartPoint
	wave.length = state.Length
	wave.sourced = state.Sourced
	wave.existenceTime = state.ExistenceTime
	wave.intensityChanges = append([]WaveIntensityChange(nil), state.IntensityChanges...)
	wave.sortIntensityChanges()
	for id, attenuator := range state.Attenuators {
		restored := attenuator
		wave.attenuators[id] = &restored
	}
	return wave, nil
}

// SourceState is the serializable lifecycle state of an EMWaveSource:
// the lifetime assigned to each of its active waves and the queued
// replacement creations. An infinite lifetime is encoded as -1, since
// JSON has no representation for infinity.
type SourceState struct {
	Lifetimes map[WaveID]float64    `json:"lifetimes"`
	Pending   []pendingWaveCreation `json:"pending,omitempty"`
}

// State captures the source's lifecycle bookkeeping.
func (s *EMWaveSource) State() SourceState {
	lifetimes := make(map[WaveID]float64, len(s.lifetimes))
	for id, lifetime := range s.lifetimes {
		if math.IsInf(lifetime, 1) {
			lifetime = -1
		}
		lifetimes[id] = lifetime
	}
	return SourceState{
		Lifetimes: lifetimes,
		Pending:   append([]pendingWaveCreation(nil), s.pending...),
	}
}

// restoreState replaces the source's lifecycle bookkeeping.
func (s *EMWaveSource) restoreState(state SourceState) {
	s.lifetimes = make(map[WaveID]float64, len(state.Lifetimes))
	for id, lifetime := range state.Lifetimes {
		if lifetime < 0 {
			lifetime = math.Inf(1)
		}
		s.lifetimes[id] = lifetime
	}
	s.pending = append([]pendingWaveCreation(nil), state.Pending...)
}

// LayerInteractionState is the serializable form of one active
// atmosphere-layer interaction.
type LayerInteractionState struct {
	SourceID   WaveID `json:"source_id"`
	LayerIndex int    `json:"layer_index"`
	EmittedID  WaveID `json:"emitted_id"`
}

// Snapshot represents a point-in-time capture of a model's state: the
// wave collection, each source's lifecycle bookkeeping, and the three
// interaction-tracking tables.
type Snapshot struct {
	ModelID            ModelID                 `json:"model_id"`
	Time               float64                 `json:"time"`
	Waves              []WaveState             `json:"waves"`
	SunSource          SourceState             `json:"sun_source"`
	GroundSource       SourceState             `json:"ground_source"`
	CloudReflections   map[WaveID]WaveID       `json:"cloud_reflections,omitempty"`
	GlacierReflections map[WaveID]WaveID       `json:"glacier_reflections,omitempty"`
	LayerInteractions  []LayerInteractionState `json:"layer_interactions,omitempty"`
}

// Snapshot captures the model's current state.
func (m *WavesModel) Snapshot() Snapshot {
	waveStates := make([]WaveState, 0, len(m.waves))
	for _, wave := range m.waves {
		waveStates = append(waveStates, wave.State())
	}
	cloudReflections := make(map[WaveID]WaveID, len(m.cloudReflections))
	for sourceID, reflectedID := range m.cloudReflections {
		cloudReflections[sourceID] = reflectedID
	}
	glacierReflections := make(map[WaveID]WaveID, len(m.glacierReflections))
	for sourceID, reflectedID := range m.glacierReflections {
		glacierReflections[sourceID] = reflectedID
	}
	layerInteractions := make([]LayerInteractionState, 0, len(m.layerInteractions))
	for _, interaction := range m.layerInteractions {
		layerInteractions = append(layerInteractions, LayerInteractionState{
			SourceID:   interaction.sourceID,
			LayerIndex: interaction.layerIndex,
			EmittedID:  interaction.emittedID,
		})
	}
	return Snapshot{
		ModelID:            m.ID,
		Time:               m.time,
		Waves:              waveStates,
		SunSource:          m.sunSource.State(),
		GroundSource:       m.groundSource.State(),
		CloudReflections:   cloudReflections,
		GlacierReflections: glacierReflections,
		LayerInteractions:  layerInteractions,
	}
}

// RestoreSnapshot replaces the model's state with the snapshot's. The
// snapshot is validated against the model's configuration first; on
// error the model is left unchanged.
func (m *WavesModel) RestoreSnapshot(snapshot Snapshot) error {
	if err := ValidateSnapshot(snapshot, len(m.layers)); err != nil {
		return err
	}

	restoredWaves := make([]*Wave, 0, len(snapshot.Waves))
	restoredIndex := make(map[WaveID]*Wave, len(snapshot.Waves))
	for _, state := range snapshot.Waves {
		wave, err := waveFromState(state)
		if err != nil {
			return fmt.Errorf("cannot restore wave %s: %w", state.ID, err)
		}
		restoredWaves = append(restoredWaves, wave)
		restoredIndex[wave.ID] = wave
	}

	m.time = snapshot.Time
	m.waves = restoredWaves
	m.waveIndex = restoredIndex
	m.sunSource.restoreState(snapshot.SunSource)
	m.groundSource.restoreState(snapshot.GroundSource)

	m.cloudReflections = make(map[WaveID]WaveID, len(snapshot.CloudReflections))
	for sourceID, reflectedID := range snapshot.CloudReflections {
		m.cloudReflections[sourceID] = reflectedID
	}
	m.glacierReflections = make(map[WaveID]WaveID, len(snapshot.GlacierReflections))
	for sourceID, reflectedID := range snapshot.GlacierReflections {
		m.glacierReflections[sourceID] = reflectedID
	}
	m.layerInteractions = nil
	for _, state := range snapshot.LayerInteractions {
		m.layerInteractions = append(m.layerInteractions, &layerInteraction{
			sourceID:   state.SourceID,
			layerIndex: state.LayerIndex,
			emittedID:  state.EmittedID,
		})
	}
	m.addedThisStep = nil
	m.removedThisStep = nil
	return nil
}

// ValidateSnapshot performs validation checks on a snapshot.
// It verifies that:
//   - All wave IDs are non-empty and unique
//   - All interaction-tracking entries reference waves in the snapshot
//   - All layer indexes fall within [0, layerCount)
//
// Returns an error if validation fails, nil otherwise.
func ValidateSnapshot(snapshot Snapshot, layerCount int) error {
	seenIDs := make(map[WaveID]struct{}, len(snapshot.Waves))
	for i, wave := range snapshot.Waves {
		if wave.ID == "" {
			return fmt.Errorf("wave at index %d has empty ID", i)
		}
		if _, exists := seenIDs[wave.ID]; exists {
			return fmt.Errorf("duplicate wave ID: %s", wave.ID)
		}
		seenIDs[wave.ID] = struct{}{}
	}

	checkRef := func(kind string, id WaveID) error {
		if _, exists := seenIDs[id]; !exists {
			return fmt.Errorf("%s references unknown wave: %s", kind, id)
		}
		return nil
	}
	for sourceID, reflectedID := range snapshot.CloudReflections {
		if err := checkRef("cloud reflection", sourceID); err != nil {
			return err
		}
		if err := checkRef("cloud reflection", reflectedID); err != nil {
			return err
		}
	}
	for sourceID, reflectedID := range snapshot.GlacierReflections {
		if err := checkRef("glacier reflection", sourceID); err != nil {
			return err
		}
		if err := checkRef("glacier reflection", reflectedID); err != nil {
			return err
		}
	}
	for _, interaction := range snapshot.LayerInteractions {
		if err := checkRef("layer interaction", interaction.SourceID); err != nil {
			return err
		}
		if err := checkRef("layer interaction", interaction.EmittedID); err != nil {
			return err
		}
		if interaction.LayerIndex < 0 || interaction.LayerIndex >= layerCount {
			return fmt.Errorf("layer interaction has invalid layer index %d (model has %d layers)", interaction.LayerIndex, layerCount)
		}
	}
	return nil
}

// EncodeSnapshotJSON encodes a snapshot to JSON format.
// Returns the JSON bytes and any encoding error.
func EncodeSnapshotJSON(snapshot Snapshot) ([]byte, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshotJSON decodes a snapshot from JSON format.
// Returns the decoded snapshot and any decoding error.
func DecodeSnapshotJSON(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snapshot, nil
}
