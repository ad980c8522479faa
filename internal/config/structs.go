package config

import (
	"github.com/roleindex/roleindex/internal/logger"
)

// Config overall data structure.
type Config struct {
	DevMode bool // enable dev mode for development
	DB      DB
	Log     logger.Log
	Title   string
	Migrate Migrate
}

// Migrate holds settings for the bulk backfill tooling.
type Migrate struct {
	// ProgressEvery controls how many users are processed between progress
	// log lines. 0 uses the tool default.
	ProgressEvery int
}
