package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// GormTaskEventRepository implements run.TaskEventRepository using GORM.
// Events are append-only.
type GormTaskEventRepository struct {
	db        *gorm.DB
	batchSize int
}

func NewGormTaskEventRepository(db *gorm.DB) *GormTaskEventRepository {
	return &GormTaskEventRepository{db: db, batchSize: 500}
}

func (r *GormTaskEventRepository) Add(ctx context.Context, events []run.TaskEvent) error {
	if len(events) == 0 {
		return nil
	}
	models := make([]TaskEventModel, 0, len(events))
	for _, e := range events {
		models = append(models, TaskEventModel{
			RunID:   e.RunID,
			BotID:   e.BotID,
			Kind:    e.Kind,
			Task:    e.Task,
			Outcome: string(e.Outcome),
			Reason:  e.Reason,
			SimTime: e.SimTime,
		})
	}
	if result := r.db.WithContext(ctx).CreateInBatches(&models, r.batchSize); result.Error != nil {
		return fmt.Errorf("failed to add task events: %w", result.Error)
	}
	return nil
}

// FindByRun returns events in simulation order; limit <= 0 returns all
func (r *GormTaskEventRepository) FindByRun(ctx context.Context, runID string, limit int) ([]run.TaskEvent, error) {
	var models []TaskEventModel
	query := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("sim_time").Order("id")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if result := query.Find(&models); result.Error != nil {
		return nil, fmt.Errorf("failed to load task events: %w", result.Error)
	}
	events := make([]run.TaskEvent, 0, len(models))
	for _, m := range models {
		events = append(events, run.TaskEvent{
			RunID:   m.RunID,
			BotID:   m.BotID,
			Kind:    m.Kind,
			Task:    m.Task,
			Outcome: run.Outcome(m.Outcome),
			Reason:  m.Reason,
			SimTime: m.SimTime,
		})
	}
	return events, nil
}

func (r *GormTaskEventRepository) CountByOutcome(ctx context.Context, runID string) (map[run.Outcome]int, error) {
	var rows []struct {
		Outcome string
		Count   int
	}
	result := r.db.WithContext(ctx).Model(&TaskEventModel{}).
		Select("outcome, COUNT(*) AS count").
		Where("run_id = ?", runID).
		Group("outcome").
		Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to count task outcomes: %w", result.Error)
	}
	counts := make(map[run.Outcome]int, len(rows))
	for _, row := range rows {
		counts[run.Outcome(row.Outcome)] = row.Count
	}
	return counts, nil
}
