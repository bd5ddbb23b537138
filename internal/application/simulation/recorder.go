package simulation

import (
	"context"
	"time"

	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/domain/run"
)

// Recorder persists a run: its header when it starts and the header, per-bot
// statistics and task outcomes when it ends. Persistence failures are
// logged and never stop a simulation. A nil Recorder records nothing.
type Recorder struct {
	runs   run.RunRepository
	bots   run.BotRecordRepository
	events run.TaskEventRepository
	logger common.Logger
}

func NewRecorder(runs run.RunRepository, bots run.BotRecordRepository, events run.TaskEventRepository, logger common.Logger) *Recorder {
	if logger == nil {
		logger = common.NoOpLogger()
	}
	return &Recorder{runs: runs, bots: bots, events: events, logger: logger}
}

func (r *Recorder) begin(ctx context.Context, rn *run.Run) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.runs.Save(ctx, rn); err != nil {
		r.fail("persist run start", rn.ID(), err)
	}
}

func (r *Recorder) finish(ctx context.Context, rn *run.Run, records []run.BotRecord, events []run.TaskEvent) {
	if r == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := r.runs.Save(ctx, rn); err != nil {
		r.fail("persist run result", rn.ID(), err)
	}
	if err := r.bots.SaveAll(ctx, records); err != nil {
		r.fail("persist bot statistics", rn.ID(), err)
	}
	if len(events) > 0 {
		if err := r.events.Add(ctx, events); err != nil {
			r.fail("persist task events", rn.ID(), err)
		}
	}
}

func (r *Recorder) fail(what, runID string, err error) {
	r.logger.Log("ERROR", "failed to "+what, map[string]interface{}{
		"run_id": runID,
		"error":  err.Error(),
	})
}
