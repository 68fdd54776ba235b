package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "scrubber.cfg.json"

// PlaybackConfig holds the playback clock settings.
type PlaybackConfig struct {
	Speed         float64       `json:"speed" mapstructure:"speed"`
	Loop          bool          `json:"loop" mapstructure:"loop"`
	FrameInterval time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
	Autoplay      bool          `json:"autoplay" mapstructure:"autoplay"`
}

// OverlayConfig holds the detail overlay settings.
type OverlayConfig struct {
	FadeDuration  time.Duration `json:"fadeDuration" mapstructure:"fadeDuration"`
	DetailTimeout time.Duration `json:"detailTimeout" mapstructure:"detailTimeout"`
}

// SourceConfig selects where sessions and markers are read from.
type SourceConfig struct {
	Type         string        `json:"type" mapstructure:"type"`
	Path         string        `json:"path" mapstructure:"path"`
	Watch        bool          `json:"watch" mapstructure:"watch"`
	PollInterval time.Duration `json:"pollInterval" mapstructure:"pollInterval"`
}

// DBConfig holds the database connection used by the sqlite and postgres sources.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
	SSLMode  string `json:"sslmode" mapstructure:"sslmode"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./scrubberlogs")

	viper.SetDefault("playback.speed", 1.0)
	viper.SetDefault("playback.loop", false)
	viper.SetDefault("playback.frameInterval", "16ms")
	viper.SetDefault("playback.autoplay", false)

	viper.SetDefault("overlay.fadeDuration", "400ms")
	viper.SetDefault("overlay.detailTimeout", "2s")

	viper.SetDefault("source.type", "file")
	viper.SetDefault("source.path", "")
	viper.SetDefault("source.watch", true)
	viper.SetDefault("source.pollInterval", "5s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "ocap")
	viper.SetDefault("db.sslmode", "disable")
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// LoadFile reads configuration from an explicit file path.
func LoadFile(path string) error {
	SetDefaults()

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPlaybackConfig returns the playback settings.
func GetPlaybackConfig() PlaybackConfig {
	return PlaybackConfig{
		Speed:         viper.GetFloat64("playback.speed"),
		Loop:          viper.GetBool("playback.loop"),
		FrameInterval: parseDuration("playback.frameInterval", 16*time.Millisecond),
		Autoplay:      viper.GetBool("playback.autoplay"),
	}
}

// GetOverlayConfig returns the detail overlay settings.
func GetOverlayConfig() OverlayConfig {
	return OverlayConfig{
		FadeDuration:  parseDuration("overlay.fadeDuration", 400*time.Millisecond),
		DetailTimeout: parseDuration("overlay.detailTimeout", 2*time.Second),
	}
}

// GetSourceConfig returns the marker source settings.
func GetSourceConfig() SourceConfig {
	return SourceConfig{
		Type:         viper.GetString("source.type"),
		Path:         viper.GetString("source.path"),
		Watch:        viper.GetBool("source.watch"),
		PollInterval: parseDuration("source.pollInterval", 5*time.Second),
	}
}

// GetDBConfig returns the database connection settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
		SSLMode:  viper.GetString("db.sslmode"),
	}
}

func parseDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(viper.GetString(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
