package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/phetsims/greenhouse-effect-sub005/internal/waves"
)

func main() {
	var (
		configFile    = flag.String("config-file", "", "path to model config JSON file (optional, built-in default otherwise)")
		steps         = flag.Int("steps", 1000, "number of steps to run")
		dt            = flag.Float64("dt", 1.0/30.0, "model seconds per step")
		sunIntensity  = flag.Float64("sun-intensity", 1.0, "sunlight intensity in (0, 1]")
		temperature   = flag.Float64("temperature", 288, "surface temperature in kelvin")
		concentration = flag.Float64("concentration", 0.5, "greenhouse gas concentration in [0, 1]")
		albedo        = flag.Float64("albedo", 0.2, "ground albedo in [0, 1]")
		cloud         = flag.Bool("cloud", false, "enable the cloud")
		cloudX        = flag.Float64("cloud-x", 0, "cloud center x position in meters")
		cloudY        = flag.Float64("cloud-y", 20000, "cloud altitude in meters")
		cloudWidth    = flag.Float64("cloud-width", 18000, "cloud width in meters")
		snapshotFile  = flag.String("snapshot-out", "", "path to write the final snapshot JSON (optional)")
	)
	flag.Parse()

	cfg, err := loadModelConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading model config: %v\n", err)
		os.Exit(1)
	}

	model, err := waves.NewWavesModel(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating model: %v\n", err)
		os.Exit(1)
	}
	model.ID = "simulation"

	inputs := waves.Inputs{
		SunShining:         true,
		SunIntensity:       *sunIntensity,
		SurfaceTemperature: *temperature,
		Concentration:      *concentration,
		GroundAlbedo:       *albedo,
		CloudEnabled:       *cloud,
		CloudPosition:      waves.Vec2{X: *cloudX, Y: *cloudY},
		CloudWidth:         *cloudWidth,
	}

	for i := 0; i < *steps; i++ {
		model.StepModel(*dt, inputs)
	}

	printSummary(model, *steps, *dt)

	if *snapshotFile != "" {
		if err := writeSnapshot(model, *snapshotFile); err != nil {
			fmt.Fprintf(os.Stderr, "error writing snapshot: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Snapshot written to %s\n", *snapshotFile)
	}
}

func loadModelConfig(path string) (waves.ModelConfig, error) {
	if path == "" {
		return waves.DefaultModelConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return waves.ModelConfig{}, fmt.Errorf("reading config file: %w", err)
	}

	var cfg waves.ModelConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return waves.ModelConfig{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := waves.ValidateModelConfig(cfg); err != nil {
		return waves.ModelConfig{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func printSummary(model *waves.WavesModel, steps int, dt float64) {
	modelWaves := model.Waves()

	var visible, infrared, sourced int
	for _, w := range modelWaves {
		switch w.Wavelength {
		case waves.VisibleWavelength:
			visible++
		case waves.InfraredWavelength:
			infrared++
		}
		if w.Sourced() {
			sourced++
		}
	}

	fmt.Printf("Simulation finished (steps=%d, dt=%.4f, model_time=%.2fs)\n", steps, dt, model.Time())
	fmt.Printf("Waves: total=%d visible=%d infrared=%d sourced=%d\n",
		len(modelWaves), visible, infrared, sourced)

	for _, w := range modelWaves {
		band := "infrared"
		if w.Wavelength == waves.VisibleWavelength {
			band = "visible"
		}
		fmt.Printf("  %s %s origin=(%.0f, %.0f) length=%.0f intensity=%.3f changes=%d\n",
			w.ID, band, w.Origin.X, w.Origin.Y, w.Length(), w.IntensityAtStart(), len(w.IntensityChanges()))
	}
}

func writeSnapshot(model *waves.WavesModel, path string) error {
	data, err := waves.EncodeSnapshotJSON(model.Snapshot())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
