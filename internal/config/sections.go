package config

import (
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Address           string        `json:"address" mapstructure:"address"`
	AllowedOrigins    []string      `json:"allowedOrigins" mapstructure:"allowedOrigins"`
	ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" mapstructure:"readHeaderTimeout"`
	ShutdownTimeout   time.Duration `json:"shutdownTimeout" mapstructure:"shutdownTimeout"`
}

// SimConfig holds simulation and session settings.
type SimConfig struct {
	TickRate         int           `json:"tickRate" mapstructure:"tickRate"`
	Geometry         string        `json:"geometry" mapstructure:"geometry"`
	ReportInterval   time.Duration `json:"reportInterval" mapstructure:"reportInterval"`
	CatalogPath      string        `json:"catalogPath" mapstructure:"catalogPath"`
	MaxSessions      int           `json:"maxSessions" mapstructure:"maxSessions"`
	TrackSampleTicks int           `json:"trackSampleTicks" mapstructure:"trackSampleTicks"`
}

// SirenConfig holds the siren tone and render settings.
type SirenConfig struct {
	SampleRate     int           `json:"sampleRate" mapstructure:"sampleRate"`
	Low            float64       `json:"low" mapstructure:"low"`
	High           float64       `json:"high" mapstructure:"high"`
	Period         time.Duration `json:"period" mapstructure:"period"`
	Volume         float64       `json:"volume" mapstructure:"volume"`
	RenderDuration time.Duration `json:"renderDuration" mapstructure:"renderDuration"`
}

// AdviceConfig holds the language model endpoint settings.
type AdviceConfig struct {
	BaseURL string        `json:"baseUrl" mapstructure:"baseUrl"`
	APIKey  string        `json:"apiKey" mapstructure:"apiKey"`
	Model   string        `json:"model" mapstructure:"model"`
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds in-memory SQLite backend settings.
type SQLiteConfig struct {
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
	DumpPath     string        `json:"dumpPath" mapstructure:"dumpPath"`
}

// WebSocketConfig holds remote collector settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the telemetry backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// OTelConfig holds OpenTelemetry exporter settings.
type OTelConfig struct {
	Enabled        bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName    string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout   time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	MetricInterval time.Duration `json:"metricInterval" mapstructure:"metricInterval"`
	Endpoint       string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure       bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB connection settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// GraylogConfig holds GELF shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// UploadConfig holds settings for shipping finished session exports.
type UploadConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	URL     string `json:"url" mapstructure:"url"`
	Secret  string `json:"secret" mapstructure:"secret"`
}

func GetServerConfig() ServerConfig {
	return ServerConfig{
		Address:           viper.GetString("server.address"),
		AllowedOrigins:    viper.GetStringSlice("server.allowedOrigins"),
		ReadHeaderTimeout: viper.GetDuration("server.readHeaderTimeout"),
		ShutdownTimeout:   viper.GetDuration("server.shutdownTimeout"),
	}
}

func GetSimConfig() SimConfig {
	return SimConfig{
		TickRate:         viper.GetInt("sim.tickRate"),
		Geometry:         viper.GetString("sim.geometry"),
		ReportInterval:   viper.GetDuration("sim.reportInterval"),
		CatalogPath:      viper.GetString("sim.catalogPath"),
		MaxSessions:      viper.GetInt("sim.maxSessions"),
		TrackSampleTicks: viper.GetInt("sim.trackSampleTicks"),
	}
}

func GetSirenConfig() SirenConfig {
	return SirenConfig{
		SampleRate:     viper.GetInt("siren.sampleRate"),
		Low:            viper.GetFloat64("siren.low"),
		High:           viper.GetFloat64("siren.high"),
		Period:         viper.GetDuration("siren.period"),
		Volume:         viper.GetFloat64("siren.volume"),
		RenderDuration: viper.GetDuration("siren.renderDuration"),
	}
}

func GetAdviceConfig() AdviceConfig {
	return AdviceConfig{
		BaseURL: viper.GetString("advice.baseUrl"),
		APIKey:  viper.GetString("advice.apiKey"),
		Model:   viper.GetString("advice.model"),
		Timeout: viper.GetDuration("advice.timeout"),
	}
}

func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
			DumpPath:     viper.GetString("storage.sqlite.dumpPath"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:        viper.GetBool("otel.enabled"),
		ServiceName:    viper.GetString("otel.serviceName"),
		BatchTimeout:   viper.GetDuration("otel.batchTimeout"),
		MetricInterval: viper.GetDuration("otel.metricInterval"),
		Endpoint:       viper.GetString("otel.endpoint"),
		Insecure:       viper.GetBool("otel.insecure"),
	}
}

func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

func GetUploadConfig() UploadConfig {
	return UploadConfig{
		Enabled: viper.GetBool("upload.enabled"),
		URL:     viper.GetString("upload.url"),
		Secret:  viper.GetString("upload.secret"),
	}
}
