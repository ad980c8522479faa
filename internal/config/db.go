package config

// DB holds the database configuration settings.
type DB struct {
	Extras   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	// Engine selects the gorm driver: "mysql", "postgres" or "sqlite".
	Engine string
	// Path is the database file for the sqlite engine.
	Path string
}

// Supported database engines.
const (
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
	EngineSQLite   = "sqlite"
)
