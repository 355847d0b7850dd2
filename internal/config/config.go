package config

import (
	"time"
)

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	App      AppConfig      `mapstructure:"app" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Quiz     QuizConfig     `mapstructure:"quiz" validate:"required"`
	Scoring  ScoringConfig  `mapstructure:"scoring" validate:"required"`
	Tasks    TasksConfig    `mapstructure:"tasks" validate:"required"`
}

// AppConfig contains process-wide settings.
type AppConfig struct {
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	// Timezone defines the learners' calendar day, e.g. "Asia/Tashkent".
	Timezone string `mapstructure:"timezone" validate:"required,timezone"`
}

// Location resolves the configured timezone. Validation guarantees it loads.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres sqlite"`
	URL    string `mapstructure:"url" validate:"required"`
}

// QuizConfig contains session engine settings.
type QuizConfig struct {
	DefaultQuestionCount int           `mapstructure:"default_question_count" validate:"required,gt=0,lte=100"`
	DistractorPool       int           `mapstructure:"distractor_pool" validate:"required,gte=3"`
	FinishedRetention    time.Duration `mapstructure:"finished_retention" validate:"required,gt=0"`
	IdleTimeout          time.Duration `mapstructure:"idle_timeout" validate:"required,gt=0"`
	SweepInterval        time.Duration `mapstructure:"sweep_interval" validate:"required,gt=0"`
}

// ScoringConfig contains the point deltas applied per event.
type ScoringConfig struct {
	Correct      int `mapstructure:"correct" validate:"gte=0"`
	BlitzCorrect int `mapstructure:"blitz_correct" validate:"gte=0"`
	Wrong        int `mapstructure:"wrong" validate:"lte=0"`
	Added        int `mapstructure:"added" validate:"gte=0"`
}

// TasksConfig sizes the background worker pool.
type TasksConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"required,gt=0"`
}
