package persistence

import (
	"time"
)

// SimulationRunModel represents the simulation_runs table
type SimulationRunModel struct {
	ID               string     `gorm:"column:id;primaryKey;not null"`
	Scenario         string     `gorm:"column:scenario;not null"`
	Seed             int64      `gorm:"column:seed;not null"`
	Bots             int        `gorm:"column:bots;not null"`
	Status           string     `gorm:"column:status;not null;index"`
	Error            string     `gorm:"column:error;type:text"`
	SimulatedSeconds float64    `gorm:"column:simulated_seconds;not null;default:0"`
	Stats            string     `gorm:"column:stats;type:text"` // JSON as text
	Metadata         string     `gorm:"column:metadata;type:text"`
	CreatedAt        time.Time  `gorm:"column:created_at;not null;index"`
	StartedAt        *time.Time `gorm:"column:started_at"`
	StoppedAt        *time.Time `gorm:"column:stopped_at"`
}

func (SimulationRunModel) TableName() string {
	return "simulation_runs"
}

// BotStatisticsModel represents the bot_statistics table
type BotStatisticsModel struct {
	RunID              string              `gorm:"column:run_id;primaryKey;not null"`
	BotID              int                 `gorm:"column:bot_id;primaryKey;not null"`
	Run                *SimulationRunModel `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TripsCompleted     int                 `gorm:"column:trips_completed;not null;default:0"`
	TripTime           float64             `gorm:"column:trip_time;not null;default:0"`
	QueueTime          float64             `gorm:"column:queue_time;not null;default:0"`
	Distance           float64             `gorm:"column:distance;not null;default:0"`
	FailedReservations int                 `gorm:"column:failed_reservations;not null;default:0"`
	PodPickups         int                 `gorm:"column:pod_pickups;not null;default:0"`
	PodSetdowns        int                 `gorm:"column:pod_setdowns;not null;default:0"`
	ItemsHandled       int                 `gorm:"column:items_handled;not null;default:0"`
	TasksCompleted     int                 `gorm:"column:tasks_completed;not null;default:0"`
	TasksAborted       int                 `gorm:"column:tasks_aborted;not null;default:0"`
	TasksCancelled     int                 `gorm:"column:tasks_cancelled;not null;default:0"`
}

func (BotStatisticsModel) TableName() string {
	return "bot_statistics"
}

// TaskEventModel represents the task_events table
type TaskEventModel struct {
	ID      int                 `gorm:"column:id;primaryKey;autoIncrement"`
	RunID   string              `gorm:"column:run_id;not null;index"`
	Run     *SimulationRunModel `gorm:"foreignKey:RunID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	BotID   int                 `gorm:"column:bot_id;not null"`
	Kind    string              `gorm:"column:kind;not null"`
	Task    string              `gorm:"column:task;type:text"`
	Outcome string              `gorm:"column:outcome;not null"`
	Reason  string              `gorm:"column:reason;type:text"`
	SimTime float64             `gorm:"column:sim_time;not null"`
}

func (TaskEventModel) TableName() string {
	return "task_events"
}
