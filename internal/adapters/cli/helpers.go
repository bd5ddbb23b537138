package cli

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/andrescamacho/robofleet/internal/adapters/logging"
	"github.com/andrescamacho/robofleet/internal/adapters/persistence"
	"github.com/andrescamacho/robofleet/internal/application/simulation"
	"github.com/andrescamacho/robofleet/internal/infrastructure/config"
	"github.com/andrescamacho/robofleet/internal/infrastructure/database"
)

// loadConfig loads system configuration, honouring --config and --verbose
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	return cfg, nil
}

// resolveScenario picks the scenario file from the flag or the user default
func resolveScenario(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	userCfg, err := loadUserConfig()
	if err != nil {
		return "", fmt.Errorf("no scenario specified and failed to load user config: %w", err)
	}
	if userCfg.DefaultScenario != "" {
		return userCfg.DefaultScenario, nil
	}
	return "", fmt.Errorf("no scenario specified: use --scenario, or set a default with 'robofleet config set-scenario'")
}

// baseSeed is the seed used by scenarios that do not name one: the user
// default, else the configured one
func baseSeed(cfg *config.Config) int64 {
	if userCfg, err := loadUserConfig(); err == nil && userCfg.DefaultSeed != nil {
		return *userCfg.DefaultSeed
	}
	return cfg.Simulation.Seed
}

func loadUserConfig() (*config.UserConfig, error) {
	handler, err := config.NewUserConfigHandler()
	if err != nil {
		return nil, err
	}
	return handler.Load()
}

// store is an open, migrated run database
type store struct {
	db     *gorm.DB
	runs   *persistence.GormRunRepository
	bots   *persistence.GormBotRecordRepository
	events *persistence.GormTaskEventRepository
}

func openStore(cfg *config.DatabaseConfig) (*store, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &store{
		db:     db,
		runs:   persistence.NewGormRunRepository(db),
		bots:   persistence.NewGormBotRecordRepository(db),
		events: persistence.NewGormTaskEventRepository(db),
	}, nil
}

func (s *store) recorder(logger *logging.SlogLogger) *simulation.Recorder {
	return simulation.NewRecorder(s.runs, s.bots, s.events, logger)
}

func (s *store) Close() error {
	return database.Close(s.db)
}
