package persistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// GormBotRecordRepository implements run.BotRecordRepository using GORM
type GormBotRecordRepository struct {
	db *gorm.DB
}

func NewGormBotRecordRepository(db *gorm.DB) *GormBotRecordRepository {
	return &GormBotRecordRepository{db: db}
}

// SaveAll upserts the records in one transaction
func (r *GormBotRecordRepository) SaveAll(ctx context.Context, records []run.BotRecord) error {
	if len(records) == 0 {
		return nil
	}
	models := make([]BotStatisticsModel, 0, len(records))
	for _, rec := range records {
		models = append(models, BotStatisticsModel{
			RunID:              rec.RunID,
			BotID:              rec.BotID,
			TripsCompleted:     rec.TripsCompleted,
			TripTime:           rec.TripTime,
			QueueTime:          rec.QueueTime,
			Distance:           rec.Distance,
			FailedReservations: rec.FailedReservations,
			PodPickups:         rec.PodPickups,
			PodSetdowns:        rec.PodSetdowns,
			ItemsHandled:       rec.ItemsHandled,
			TasksCompleted:     rec.TasksCompleted,
			TasksAborted:       rec.TasksAborted,
			TasksCancelled:     rec.TasksCancelled,
		})
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save bot statistics: %w", err)
	}
	return nil
}

// FindByRun returns the records of a run ordered by bot id
func (r *GormBotRecordRepository) FindByRun(ctx context.Context, runID string) ([]run.BotRecord, error) {
	var models []BotStatisticsModel
	result := r.db.WithContext(ctx).Where("run_id = ?", runID).Order("bot_id").Find(&models)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load bot statistics: %w", result.Error)
	}
	records := make([]run.BotRecord, 0, len(models))
	for _, m := range models {
		records = append(records, run.BotRecord{
			RunID:              m.RunID,
			BotID:              m.BotID,
			TripsCompleted:     m.TripsCompleted,
			TripTime:           m.TripTime,
			QueueTime:          m.QueueTime,
			Distance:           m.Distance,
			FailedReservations: m.FailedReservations,
			PodPickups:         m.PodPickups,
			PodSetdowns:        m.PodSetdowns,
			ItemsHandled:       m.ItemsHandled,
			TasksCompleted:     m.TasksCompleted,
			TasksAborted:       m.TasksAborted,
			TasksCancelled:     m.TasksCancelled,
		})
	}
	return records, nil
}
