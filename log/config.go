package log

const (
	defaultLogMaxSize = 300 // MB
)

// FileLogConfig serializes file log related config.
type FileLogConfig struct {
	// Log filename, leave empty to disable file log.
	Filename string `mapstructure:"filename"`
	// Max size for a single file, in MB.
	MaxSize int `mapstructure:"maxSize"`
	// Max log keep days, default is never deleting.
	MaxDays int `mapstructure:"maxDays"`
	// Maximum number of old log files to retain.
	MaxBackups int `mapstructure:"maxBackups"`
}

// Config serializes log related config.
type Config struct {
	// Log level: debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Log format: console or json.
	Format string `mapstructure:"format"`
	// File log config.
	File FileLogConfig `mapstructure:"file"`
	// DisableTimestamp drops the time field, used by tests.
	DisableTimestamp bool `mapstructure:"disableTimestamp"`
}
