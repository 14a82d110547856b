package waves

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

func TestWaveStateRoundTrip(t *testing.T) {
	wave := newTestWave(t, WaveOptions{})
	wave.Step(1)
	wave.Step(1)
	attenuator := &testAttenuationSource{id: "layer-a", altitude: 9000}
	if err := wave.AddAttenuator(9000, 0.4, attenuator); err != nil {
		t.Fatalf("AddAttenuator failed: %v", err)
	}
	wave.SetSourced(false)
	wave.Step(0.5)

	restored, err := waveFromState(wave.State())
	if err != nil {
		t.Fatalf("waveFromState failed: %v", err)
	}

	if restored.ID != wave.ID {
		t.Errorf("Expected ID %s, got %s", wave.ID, restored.ID)
	}
	if restored.StartPoint() != wave.StartPoint() {
		t.Errorf("Expected start point %+v, got %+v", wave.StartPoint(), restored.StartPoint())
	}
	if restored.Length() != wave.Length() {
		t.Errorf("Expected length %v, got %v", wave.Length(), restored.Length())
	}
	if restored.Sourced() != wave.Sourced() {
		t.Errorf("Expected sourced %v, got %v", wave.Sourced(), restored.Sourced())
	}
	if restored.ExistenceTime() != wave.ExistenceTime() {
		t.Errorf("Expected existence time %v, got %v", wave.ExistenceTime(), restored.ExistenceTime())
	}
	if !restored.HasAttenuator("layer-a") {
		t.Error("Expected the attenuator to survive the round trip")
	}
	for _, distance := range []float64{0, 4000, 10000, 16000} {
		if got, want := restored.GetIntensityAt(distance), wave.GetIntensityAt(distance); got != want {
			t.Errorf("Intensity at %v: expected %v, got %v", distance, want, got)
		}
	}
}

func TestWaveFromState_Invalid(t *testing.T) {
	state := newTestWave(t, WaveOptions{}).State()
	state.Direction = Vec2{X: 3, Y: 4}
	if _, err := waveFromState(state); err == nil {
		t.Error("Expected error for non-unit direction, got nil")
	}
}

func TestSourceState_InfiniteLifetimeSentinel(t *testing.T) {
	model := newTestModel(t)
	model.StepModel(1, testInputs())

	state := model.sunSource.State()
	if len(state.Lifetimes) != 1 {
		t.Fatalf("Expected 1 tracked lifetime, got %d", len(state.Lifetimes))
	}
	for id, lifetime := range state.Lifetimes {
		if lifetime != -1 {
			t.Errorf("Expected -1 sentinel for infinite lifetime, got %v", lifetime)
		}
		model.sunSource.restoreState(state)
		if !math.IsInf(model.sunSource.lifetimes[id], 1) {
			t.Errorf("Expected restored lifetime to be +Inf, got %v", model.sunSource.lifetimes[id])
		}
	}
}

func TestModelSnapshotRoundTrip(t *testing.T) {
	model := newTestModel(t)
	inputs := testInputs()
	inputs.CloudEnabled = true
	inputs.CloudPosition = Vec2{X: 0, Y: 20000}
	inputs.CloudWidth = 20000
	inputs.Concentration = 0.5
	for i := 0; i < 5; i++ {
		model.StepModel(1, inputs)
	}
	snapshot := model.Snapshot()
	if len(snapshot.Waves) == 0 {
		t.Fatal("Expected the snapshot to contain waves")
	}

	data, err := EncodeSnapshotJSON(snapshot)
	if err != nil {
		t.Fatalf("EncodeSnapshotJSON failed: %v", err)
	}
	decoded, err := DecodeSnapshotJSON(data)
	if err != nil {
		t.Fatalf("DecodeSnapshotJSON failed: %v", err)
	}

	restored, err := NewWavesModel(testModelConfig())
	if err != nil {
		t.Fatalf("NewWavesModel failed: %v", err)
	}
	if err := restored.RestoreSnapshot(decoded); err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}

	if restored.Time() != model.Time() {
		t.Errorf("Expected time %v, got %v", model.Time(), restored.Time())
	}
	if restored.WaveCount() != model.WaveCount() {
		t.Errorf("Expected %d waves, got %d", model.WaveCount(), restored.WaveCount())
	}
	if len(restored.cloudReflections) != len(model.cloudReflections) {
		t.Errorf("Expected %d cloud reflections, got %d", len(model.cloudReflections), len(restored.cloudReflections))
	}
	if len(restored.layerInteractions) != len(model.layerInteractions) {
		t.Errorf("Expected %d layer interactions, got %d", len(model.layerInteractions), len(restored.layerInteractions))
	}
	for _, original := range model.Waves() {
		counterpart, exists := restored.Wave(original.ID)
		if !exists {
			t.Errorf("Expected wave %s in the restored model", original.ID)
			continue
		}
		if counterpart.StartPoint() != original.StartPoint() || counterpart.Length() != original.Length() {
			t.Errorf("Wave %s geometry mismatch after restore", original.ID)
		}
		if !scalar.EqualWithinAbs(counterpart.GetIntensityAt(0), original.GetIntensityAt(0), 1e-12) {
			t.Errorf("Wave %s intensity mismatch after restore", original.ID)
		}
	}
}

func TestRestoreSnapshot_InvalidLeavesModelUnchanged(t *testing.T) {
	model := newTestModel(t)
	model.StepModel(1, testInputs())
	timeBefore := model.Time()
	countBefore := model.WaveCount()

	bad := model.Snapshot()
	bad.CloudReflections = map[WaveID]WaveID{"missing-source": "missing-reflection"}

	if err := model.RestoreSnapshot(bad); err == nil {
		t.Fatal("Expected error for dangling reflection reference, got nil")
	}
	if model.Time() != timeBefore {
		t.Errorf("Expected time %v to be untouched, got %v", timeBefore, model.Time())
	}
	if model.WaveCount() != countBefore {
		t.Errorf("Expected %d waves to be untouched, got %d", countBefore, model.WaveCount())
	}
}

func TestValidateSnapshot(t *testing.T) {
	wave := newTestWave(t, WaveOptions{})
	base := Snapshot{Waves: []WaveState{wave.State()}}

	cases := []struct {
		name    string
		mutate  func(*Snapshot)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(*Snapshot) {},
		},
		{
			name: "empty wave ID",
			mutate: func(s *Snapshot) {
				s.Waves[0].ID = ""
			},
			wantErr: true,
		},
		{
			name: "duplicate wave ID",
			mutate: func(s *Snapshot) {
				s.Waves = append(s.Waves, s.Waves[0])
			},
			wantErr: true,
		},
		{
			name: "dangling cloud reflection",
			mutate: func(s *Snapshot) {
				s.CloudReflections = map[WaveID]WaveID{wave.ID: "gone"}
			},
			wantErr: true,
		},
		{
			name: "dangling glacier reflection",
			mutate: func(s *Snapshot) {
				s.GlacierReflections = map[WaveID]WaveID{"gone": wave.ID}
			},
			wantErr: true,
		},
		{
			name: "dangling layer interaction",
			mutate: func(s *Snapshot) {
				s.LayerInteractions = []LayerInteractionState{{SourceID: wave.ID, LayerIndex: 0, EmittedID: "gone"}}
			},
			wantErr: true,
		},
		{
			name: "layer index out of range",
			mutate: func(s *Snapshot) {
				s.LayerInteractions = []LayerInteractionState{{SourceID: wave.ID, LayerIndex: 3, EmittedID: wave.ID}}
			},
			wantErr: true,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			snapshot := base
			snapshot.Waves = append([]WaveState(nil), base.Waves...)
			c.mutate(&snapshot)
			err := ValidateSnapshot(snapshot, 1)
			if c.wantErr && err == nil {
				t.Error("Expected validation error, got nil")
			}
			if !c.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}
