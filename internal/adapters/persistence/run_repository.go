package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/robofleet/internal/domain/run"
	"github.com/andrescamacho/robofleet/internal/domain/shared"
)

// ErrRunNotFound is returned when no run has the requested id
var ErrRunNotFound = errors.New("run not found")

// GormRunRepository implements run.RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// Save upserts the run header and its latest statistics
func (r *GormRunRepository) Save(ctx context.Context, rn *run.Run) error {
	model, err := runToModel(rn)
	if err != nil {
		return fmt.Errorf("failed to convert run to model: %w", err)
	}
	if result := r.db.WithContext(ctx).Save(model); result.Error != nil {
		return fmt.Errorf("failed to save run %s: %w", rn.ID(), result.Error)
	}
	return nil
}

func (r *GormRunRepository) FindByID(ctx context.Context, id string) (*run.Summary, error) {
	var model SimulationRunModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
		}
		return nil, fmt.Errorf("failed to find run: %w", result.Error)
	}
	return modelToSummary(&model)
}

func (r *GormRunRepository) List(ctx context.Context, limit int) ([]*run.Summary, error) {
	var models []SimulationRunModel
	query := r.db.WithContext(ctx).Order("created_at DESC").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to list runs: %w", result.Error)
	}

	summaries := make([]*run.Summary, 0, len(models))
	for i := range models {
		s, err := modelToSummary(&models[i])
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func runToModel(rn *run.Run) (*SimulationRunModel, error) {
	stats, err := json.Marshal(rn.Stats())
	if err != nil {
		return nil, err
	}
	metadata, err := json.Marshal(rn.Metadata())
	if err != nil {
		return nil, err
	}
	model := &SimulationRunModel{
		ID:               rn.ID(),
		Scenario:         rn.Scenario(),
		Seed:             rn.Seed(),
		Bots:             rn.Bots(),
		Status:           string(rn.Status()),
		SimulatedSeconds: rn.SimulatedSeconds(),
		Stats:            string(stats),
		Metadata:         string(metadata),
		CreatedAt:        rn.CreatedAt(),
		StartedAt:        rn.StartedAt(),
		StoppedAt:        rn.StoppedAt(),
	}
	if err := rn.LastError(); err != nil {
		model.Error = err.Error()
	}
	return model, nil
}

func modelToSummary(model *SimulationRunModel) (*run.Summary, error) {
	var stats shared.SimulationStats
	if model.Stats != "" {
		if err := json.Unmarshal([]byte(model.Stats), &stats); err != nil {
			return nil, fmt.Errorf("failed to decode statistics of run %s: %w", model.ID, err)
		}
	}
	return &run.Summary{
		ID:               model.ID,
		Scenario:         model.Scenario,
		Seed:             model.Seed,
		Bots:             model.Bots,
		Status:           shared.LifecycleStatus(model.Status),
		Error:            model.Error,
		SimulatedSeconds: model.SimulatedSeconds,
		Stats:            stats,
		CreatedAt:        model.CreatedAt,
		StartedAt:        model.StartedAt,
		StoppedAt:        model.StoppedAt,
	}, nil
}
