package waves

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// The three detectors below are independent: each is re-evaluated from
// scratch every step against post-step geometry, and none reads the
// bookkeeping of another.

// updateCloudInteractions reflects sunlight off the cloud. Each visible
// downward wave crossing the cloud's span gets a reflected counterpart
// and an attenuator at the crossing depth. Reflections end when the
// cloud disables or the source wave's start point passes below the
// cloud; disabling also strips every cloud attenuator from every wave.
func (m *WavesModel) updateCloudInteractions() {
	if !m.inputs.CloudEnabled {
		for _, wave := range m.waves {
			if wave.HasAttenuator(m.cloud.id) {
				if err := wave.RemoveAttenuator(m.cloud.id); err != nil {
					m.logger.Errorf("cloud interaction: strip attenuator: wave_id=%s error=%v", wave.ID, err)
				}
			}
		}
		for sourceID, reflectedID := range m.cloudReflections {
			if reflected, exists := m.waveIndex[reflectedID]; exists {
				reflected.SetSourced(false)
			}
			delete(m.cloudReflections, sourceID)
		}
		return
	}

	cloudAltitude := m.inputs.CloudPosition.Y
	cloudMinX := m.inputs.CloudPosition.X - m.inputs.CloudWidth/2
	cloudMaxX := m.inputs.CloudPosition.X + m.inputs.CloudWidth/2

	// End reflections whose source is gone or has descended past the
	// cloud. The attenuator needs no explicit removal here: the source's
	// start point folded it in as it passed.
	for sourceID, reflectedID := range m.cloudReflections {
		source, exists := m.waveIndex[sourceID]
		if exists && source.StartPoint().Y > cloudAltitude {
			continue
		}
		if reflected, ok := m.waveIndex[reflectedID]; ok {
			reflected.SetSourced(false)
		}
		delete(m.cloudReflections, sourceID)
	}

	for _, wave := range m.waves {
		if wave.Wavelength != VisibleWavelength || wave.Direction.Y >= 0 {
			continue
		}
		if _, tracked := m.cloudReflections[wave.ID]; tracked {
			continue
		}
		crossingDistance := (cloudAltitude - wave.StartPoint().Y) / wave.Direction.Y
		if crossingDistance <= 0 || crossingDistance >= wave.Length() {
			continue
		}
		crossingX := wave.StartPoint().X + wave.Direction.X*crossingDistance
		if crossingX < cloudMinX || crossingX > cloudMaxX {
			continue
		}

		reflectance := m.cfg.Cloud.Reflectance
		reflectedIntensity := wave.GetIntensityAt(crossingDistance) * reflectance
		if reflectedIntensity <= 0 {
			continue
		}

		// The reflected wave leans away from the side of the cloud the
		// crossing happened on, so it never overlaps its source.
		tilt := m.cfg.ReflectionTilt
		angle := math.Pi/2 - tilt
		if crossingX <= m.inputs.CloudPosition.X {
			angle = math.Pi/2 + tilt
		}

		reflected, err := m.newModelWave(
			VisibleWavelength,
			Vec2{X: crossingX, Y: cloudAltitude},
			UnitFromAngle(angle),
			m.cfg.TopAltitude,
			WaveOptions{
				Intensity:          reflectedIntensity,
				InitialPhaseOffset: wave.PhaseAt(crossingDistance),
			},
		)
		if err != nil {
			m.logger.Errorf("cloud interaction: cannot create reflected wave: source_id=%s error=%v", wave.ID, err)
			continue
		}

		if err := wave.AddAttenuator(crossingDistance, reflectance, m.cloud); err != nil {
			m.logger.Errorf("cloud interaction: cannot attach attenuator: wave_id=%s error=%v", wave.ID, err)
			continue
		}

		m.addWave(reflected)
		m.cloudReflections[wave.ID] = reflected.ID
	}
}

// updateLayerInteractions handles absorption and re-emission of
// ground-originating infrared waves by the atmosphere layers. At most
// one interaction is active per source-wave/layer pair; a wave may
// interact with several layers independently.
func (m *WavesModel) updateLayerInteractions() {
	concentration := math.Min(math.Max(m.inputs.Concentration, 0), 1)
	attenuation := ConcentrationToAttenuation(concentration)

	kept := m.layerInteractions[:0]
	for _, interaction := range m.layerInteractions {
		source, sourcePresent := m.waveIndex[interaction.sourceID]
		emitted, emittedPresent := m.waveIndex[interaction.emittedID]
		layer := m.layers[interaction.layerIndex]

		ended := !sourcePresent || concentration == 0 || source.StartPoint().Y >= layer.altitude
		if ended {
			if emittedPresent {
				emitted.SetSourced(false)
			}
			if sourcePresent && source.HasAttenuator(layer.id) {
				if err := source.RemoveAttenuator(layer.id); err != nil {
					m.logger.Errorf("layer interaction: remove attenuator: wave_id=%s error=%v", source.ID, err)
				}
			}
			continue
		}

		// Resynchronize the attenuation and the emitted intensity to the
		// current concentration.
		if err := source.SetAttenuation(layer.id, attenuation); err != nil {
			m.logger.Errorf("layer interaction: set attenuation: wave_id=%s error=%v", source.ID, err)
		}
		if emittedPresent {
			if distance, ok := source.AttenuatorDistance(layer.id); ok {
				emittedIntensity := source.GetIntensityAt(distance) * attenuation
				if emittedIntensity > 0 {
					if err := emitted.SetIntensityAtStart(emittedIntensity); err != nil {
						m.logger.Errorf("layer interaction: sync emitted intensity: wave_id=%s error=%v", emitted.ID, err)
					}
				}
			}
		}
		kept = append(kept, interaction)
	}
	m.layerInteractions = kept

	if concentration == 0 {
		return
	}

	for _, wave := range m.waves {
		if wave.Wavelength != InfraredWavelength {
			continue
		}
		if !scalar.EqualWithinAbs(wave.Origin.Y, m.cfg.GroundAltitude, positionTolerance) {
			continue
		}
		for layerIndex, layer := range m.layers {
			if m.hasLayerInteraction(wave.ID, layerIndex) {
				continue
			}
			if wave.HasAttenuator(layer.id) {
				continue
			}
			intersection, distance, ok := segmentIntersection(
				wave.StartPoint(), wave.EndPoint(),
				Vec2{X: layer.minX, Y: layer.altitude},
				Vec2{X: layer.maxX, Y: layer.altitude},
			)
			if !ok || distance <= 0 {
				continue
			}

			preAbsorptionIntensity := wave.GetIntensityAt(distance)
			emittedIntensity := preAbsorptionIntensity * attenuation
			if emittedIntensity <= 0 {
				continue
			}

			if err := wave.AddAttenuator(distance, attenuation, layer); err != nil {
				m.logger.Errorf("layer interaction: cannot attach attenuator: wave_id=%s error=%v", wave.ID, err)
				continue
			}

			// Re-emit downward, half a cycle out of phase with the
			// source at the absorption point so the two waveforms read
			// as one continuous event.
			emitted, err := m.newModelWave(
				InfraredWavelength,
				intersection,
				Vec2{X: 0, Y: -1},
				m.cfg.GroundAltitude,
				WaveOptions{
					Intensity:          emittedIntensity,
					InitialPhaseOffset: wrapAngle(wave.PhaseAt(distance) + math.Pi),
				},
			)
			if err != nil {
				m.logger.Errorf("layer interaction: cannot create emitted wave: source_id=%s error=%v", wave.ID, err)
				if removeErr := wave.RemoveAttenuator(layer.id); removeErr != nil {
					m.logger.Errorf("layer interaction: rollback attenuator: wave_id=%s error=%v", wave.ID, removeErr)
				}
				continue
			}

			m.addWave(emitted)
			m.layerInteractions = append(m.layerInteractions, &layerInteraction{
				sourceID:   wave.ID,
				layerIndex: layerIndex,
				emittedID:  emitted.ID,
			})
		}
	}
}

func (m *WavesModel) hasLayerInteraction(sourceID WaveID, layerIndex int) bool {
	for _, interaction := range m.layerInteractions {
		if interaction.sourceID == sourceID && interaction.layerIndex == layerIndex {
			return true
		}
	}
	return false
}

// updateGlacierInteractions reflects sunlight off glaciated ground.
// While the albedo sits at or above the ice-age threshold, every visible
// wave that has reached the ground gets a single fixed-intensity
// reflected counterpart, freed when the albedo drops or the source wave
// disappears.
func (m *WavesModel) updateGlacierInteractions() {
	glaciated := m.inputs.GroundAlbedo >= m.cfg.Glacier.AlbedoThreshold

	for sourceID, reflectedID := range m.glacierReflections {
		_, sourcePresent := m.waveIndex[sourceID]
		if glaciated && sourcePresent {
			continue
		}
		if reflected, exists := m.waveIndex[reflectedID]; exists {
			reflected.SetSourced(false)
		}
		delete(m.glacierReflections, sourceID)
	}

	if !glaciated {
		return
	}

	for _, wave := range m.waves {
		if wave.Wavelength != VisibleWavelength || wave.Direction.Y >= 0 {
			continue
		}
		if !scalar.EqualWithinAbs(wave.PropagationLimit, m.cfg.GroundAltitude, positionTolerance) {
			continue
		}
		if _, tracked := m.glacierReflections[wave.ID]; tracked {
			continue
		}
		// Only waves whose leading edge has reached the ground reflect.
		if wave.EndPoint().Y > m.cfg.GroundAltitude+positionTolerance {
			continue
		}

		groundX := wave.StartPoint().X +
			wave.Direction.X*(m.cfg.GroundAltitude-wave.StartPoint().Y)/wave.Direction.Y

		tilt := m.cfg.ReflectionTilt
		angle := math.Pi/2 - tilt
		if groundX <= 0 {
			angle = math.Pi/2 + tilt
		}

		reflected, err := m.newModelWave(
			VisibleWavelength,
			Vec2{X: groundX, Y: m.cfg.GroundAltitude},
			UnitFromAngle(angle),
			m.cfg.TopAltitude,
			WaveOptions{
				Intensity:          m.cfg.Glacier.ReflectedIntensity,
				InitialPhaseOffset: m.cfg.Glacier.PhaseOffset,
			},
		)
		if err != nil {
			m.logger.Errorf("glacier interaction: cannot create reflected wave: source_id=%s error=%v", wave.ID, err)
			continue
		}

		m.addWave(reflected)
		m.glacierReflections[wave.ID] = reflected.ID
	}
}
