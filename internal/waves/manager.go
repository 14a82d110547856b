package waves

import (
	"fmt"
	"sync"
)

// ModelManager manages multiple waves models, each isolated from others.
// Hosts that serve more than one simulation instance key them by ID here.
type ModelManager struct {
	mu     sync.RWMutex
	models map[ModelID]*WavesModel
	logger Logger
}

// NewModelManager creates a new model manager
func NewModelManager() *ModelManager {
	return NewModelManagerWithLogger(NewNoOpLogger())
}

// NewModelManagerWithLogger creates a model manager with a custom logger
func NewModelManagerWithLogger(logger Logger) *ModelManager {
	if logger == nil {
		logger = NewNoOpLogger()
	}
	return &ModelManager{
		models: make(map[ModelID]*WavesModel),
		logger: logger,
	}
}

// CreateModel creates a new model with the given ID and configuration.
// Returns an error if a model with that ID already exists or the
// configuration is invalid.
func (mm *ModelManager) CreateModel(id ModelID, cfg ModelConfig) (*WavesModel, error) {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, exists := mm.models[id]; exists {
		return nil, fmt.Errorf("model with id %s already exists", id)
	}

	model, err := NewWavesModelWithLogger(cfg, mm.logger)
	if err != nil {
		return nil, err
	}
	model.ID = id
	mm.models[id] = model
	return model, nil
}

// GetModel retrieves a model by ID.
// Returns the model and a boolean indicating if it was found.
func (mm *ModelManager) GetModel(id ModelID) (*WavesModel, bool) {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	model, exists := mm.models[id]
	return model, exists
}

// DeleteModel removes a model by ID.
// Returns an error if the model doesn't exist.
func (mm *ModelManager) DeleteModel(id ModelID) error {
	mm.mu.Lock()
	defer mm.mu.Unlock()

	if _, exists := mm.models[id]; !exists {
		return fmt.Errorf("model with id %s does not exist", id)
	}
	delete(mm.models, id)
	return nil
}

// ListModels returns a list of all model IDs
func (mm *ModelManager) ListModels() []ModelID {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	ids := make([]ModelID, 0, len(mm.models))
	for id := range mm.models {
		ids = append(ids, id)
	}
	return ids
}
