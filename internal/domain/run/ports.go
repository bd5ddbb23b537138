package run

import "context"

// RunRepository persists run headers and their final statistics
type RunRepository interface {
	Save(ctx context.Context, r *Run) error

	// FindByID returns the stored view of a run
	FindByID(ctx context.Context, id string) (*Summary, error)

	// List returns the most recent runs first
	List(ctx context.Context, limit int) ([]*Summary, error)
}

// BotRecordRepository persists per-bot statistics
type BotRecordRepository interface {
	SaveAll(ctx context.Context, records []BotRecord) error
	FindByRun(ctx context.Context, runID string) ([]BotRecord, error)
}

// TaskEventRepository persists task outcomes
type TaskEventRepository interface {
	Add(ctx context.Context, events []TaskEvent) error
	FindByRun(ctx context.Context, runID string, limit int) ([]TaskEvent, error)
	CountByOutcome(ctx context.Context, runID string) (map[Outcome]int, error)
}
