package waves

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats/scalar"
)

// ValidationError collects multiple validation issues
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "invalid config: unknown validation error"
	}
	if len(e.Issues) == 1 {
		return e.Issues[0]
	}
	return "config validation errors: " + strings.Join(e.Issues, "; ")
}

func (e *ValidationError) Add(issue string) {
	e.Issues = append(e.Issues, issue)
}

func (e *ValidationError) HasIssues() bool {
	return len(e.Issues) > 0
}

// ValidateModelConfig performs comprehensive validation of a ModelConfig
func ValidateModelConfig(cfg ModelConfig) error {
	err := &ValidationError{}

	if cfg.TopAltitude <= cfg.GroundAltitude {
		err.Add(fmt.Sprintf("top altitude %v must exceed ground altitude %v", cfg.TopAltitude, cfg.GroundAltitude))
	}

	validateSource := func(name string, src SourceConfig, downward bool) {
		if len(src.Lanes) == 0 {
			err.Add(name + " source has no lanes")
		}
		for i, lane := range src.Lanes {
			if !lane.Direction.IsUnit() {
				err.Add(fmt.Sprintf("%s lane %d direction %+v is not a unit vector", name, i, lane.Direction))
				continue
			}
			if scalar.EqualWithinAbs(lane.Direction.Y, 0, 1e-6) {
				err.Add(fmt.Sprintf("%s lane %d direction is horizontal", name, i))
				continue
			}
			if downward && lane.Direction.Y > 0 {
				err.Add(fmt.Sprintf("%s lane %d must point downward", name, i))
			}
			if !downward && lane.Direction.Y < 0 {
				err.Add(fmt.Sprintf("%s lane %d must point upward", name, i))
			}
		}
		if src.MinLifetime < 0 || src.MaxLifetime < 0 {
			err.Add(name + " source lifetimes must be nonnegative")
		}
		if src.MaxLifetime != 0 && src.MaxLifetime < src.MinLifetime {
			err.Add(name + " source max lifetime is below min lifetime")
		}
	}
	validateSource("sun", cfg.Sun, true)
	validateSource("ground", cfg.Ground, false)

	if cfg.Cloud.Reflectance < 0 || cfg.Cloud.Reflectance > 1 {
		err.Add(fmt.Sprintf("cloud reflectance %v outside [0, 1]", cfg.Cloud.Reflectance))
	}

	for i, layer := range cfg.Layers {
		if layer.Altitude <= cfg.GroundAltitude || layer.Altitude >= cfg.TopAltitude {
			err.Add(fmt.Sprintf("layer %d altitude %v outside the atmosphere", i, layer.Altitude))
		}
		if layer.MinX >= layer.MaxX {
			err.Add(fmt.Sprintf("layer %d has empty x range [%v, %v]", i, layer.MinX, layer.MaxX))
		}
	}

	if cfg.Glacier.AlbedoThreshold < 0 || cfg.Glacier.AlbedoThreshold > 1 {
		err.Add(fmt.Sprintf("glacier albedo threshold %v outside [0, 1]", cfg.Glacier.AlbedoThreshold))
	}
	if cfg.Glacier.ReflectedIntensity <= 0 || cfg.Glacier.ReflectedIntensity > 1 {
		err.Add(fmt.Sprintf("glacier reflected intensity %v outside (0, 1]", cfg.Glacier.ReflectedIntensity))
	}

	if cfg.RenderingWavelengths.Visible <= 0 || cfg.RenderingWavelengths.Infrared <= 0 {
		err.Add("rendering wavelengths must be positive")
	}
	if cfg.PropagationSpeed < 0 {
		err.Add(fmt.Sprintf("propagation speed %v must be nonnegative", cfg.PropagationSpeed))
	}

	if err.HasIssues() {
		return err
	}
	return nil
}
