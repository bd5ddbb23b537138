package helpers

import (
	"gorm.io/gorm"

	"github.com/andrescamacho/robofleet/internal/adapters/persistence"
	"github.com/andrescamacho/robofleet/internal/application/common"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
)

// TestRepositories holds real repository instances for integration tests
type TestRepositories struct {
	DB     *gorm.DB
	Runs   *persistence.GormRunRepository
	Bots   *persistence.GormBotRecordRepository
	Events *persistence.GormTaskEventRepository
}

// NewTestRepositories creates the run repositories on db; a nil db uses the
// shared test database
func NewTestRepositories(db *gorm.DB) *TestRepositories {
	if db == nil {
		db = SharedTestDB
	}
	return &TestRepositories{
		DB:     db,
		Runs:   persistence.NewGormRunRepository(db),
		Bots:   persistence.NewGormBotRecordRepository(db),
		Events: persistence.NewGormTaskEventRepository(db),
	}
}

// Recorder wires the repositories into a simulation recorder
func (r *TestRepositories) Recorder() *simulation.Recorder {
	return simulation.NewRecorder(r.Runs, r.Bots, r.Events, common.NoOpLogger())
}
