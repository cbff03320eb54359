package commands

// CommonConfig contains configuration common to all commands
type CommonConfig struct {
	// DataDir is the path to the data directory holding relevance.db
	DataDir string `help:"Path to data directory" default:"./data" env:"RELEVANCE_DATA_DIR"`
	// LogLevel is the logging level to use
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"warn" enum:"debug,info,warn,error" env:"RELEVANCE_LOG_LEVEL"`
}

// RegistryConfig selects where container relevance settings are read from
type RegistryConfig struct {
	// SettingsFile is an optional YAML settings file loaded on top of the database
	SettingsFile string `help:"YAML relevance settings file, overrides stored containers" env:"RELEVANCE_SETTINGS_FILE"`
	// Strict fails when a stored container has invalid settings
	Strict bool `help:"Fail on invalid stored container settings instead of skipping them" default:"false"`
	// Concurrency bounds concurrent loads from the database
	Concurrency int `help:"Number of containers loaded concurrently" default:"4"`
}
