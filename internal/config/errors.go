package config

import (
	"errors"
)

var (
	// ErrConfigNil error if a component is handed a nil configuration.
	ErrConfigNil = errors.New("config is nil")

	// ErrUnknownDBEngine error if config db.engine names an unsupported driver.
	ErrUnknownDBEngine = errors.New("toml config db.engine must be one of mysql, postgres, sqlite")

	// ErrDBNameEmpty error if config db.name is empty for a server engine.
	ErrDBNameEmpty = errors.New("toml config db.name can not be empty")

	// ErrDBPathEmpty error if config db.path is empty for the sqlite engine.
	ErrDBPathEmpty = errors.New("toml config db.path can not be empty for sqlite")
)
