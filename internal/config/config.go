package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "firerig.cfg.json"

// EnvPrefix prefixes every environment override, e.g. FIRERIG_ADVICE_APIKEY.
const EnvPrefix = "FIRERIG"

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./firerig-logs")

	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("server.allowedOrigins", []string{"*"})
	viper.SetDefault("server.readHeaderTimeout", "10s")
	viper.SetDefault("server.shutdownTimeout", "10s")

	viper.SetDefault("sim.tickRate", 60)
	viper.SetDefault("sim.geometry", "auto")
	viper.SetDefault("sim.reportInterval", "100ms")
	viper.SetDefault("sim.catalogPath", "")
	viper.SetDefault("sim.maxSessions", 64)
	viper.SetDefault("sim.trackSampleTicks", 30)

	viper.SetDefault("siren.sampleRate", 44100)
	viper.SetDefault("siren.low", 650.0)
	viper.SetDefault("siren.high", 1450.0)
	viper.SetDefault("siren.period", "4s")
	viper.SetDefault("siren.volume", 0.3)
	viper.SetDefault("siren.renderDuration", "4s")

	viper.SetDefault("advice.baseUrl", "https://generativelanguage.googleapis.com/v1beta")
	viper.SetDefault("advice.apiKey", "")
	viper.SetDefault("advice.model", "gemini-3-pro-preview")
	viper.SetDefault("advice.timeout", "60s")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "firerig")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./telemetry")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.sqlite.dumpPath", "./telemetry/firerig.db")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "firerig")
	viper.SetDefault("influx.bucket", "firerig_sessions")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "firerig")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.metricInterval", "30s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	viper.SetDefault("upload.enabled", false)
	viper.SetDefault("upload.url", "http://localhost:5000")
	viper.SetDefault("upload.secret", "")
}

// BindFlags registers the command-line overrides on fs and binds them to their config keys.
func BindFlags(fs *pflag.FlagSet) error {
	fs.String("listen", ":8080", "HTTP listen address")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("storage", "memory", "telemetry backend (memory, sqlite, postgres, websocket)")
	fs.String("geometry", "auto", "suppression geometry (auto, window, landing)")

	for key, flag := range map[string]string{
		"server.address": "listen",
		"logLevel":       "log-level",
		"storage.type":   "storage",
		"sim.geometry":   "geometry",
	} {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
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

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}
