package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0644))
	return dir
}

func TestLoad_WithValidConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"logLevel": "debug",
		"server": { "address": ":9090" },
		"db": { "host": "10.0.0.1", "port": "5433" }
	}`)

	err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "debug", viper.GetString("logLevel"))
	assert.Equal(t, ":9090", viper.GetString("server.address"))
	assert.Equal(t, "10.0.0.1", viper.GetString("db.host"))
	assert.Equal(t, "5433", viper.GetString("db.port"))
}

func TestLoad_DefaultValues(t *testing.T) {
	t.Cleanup(viper.Reset)

	require.NoError(t, Load(writeConfig(t, `{}`)))

	assert.Equal(t, "info", viper.GetString("logLevel"))
	assert.Equal(t, "./firerig-logs", viper.GetString("logsDir"))
	assert.Equal(t, ":8080", viper.GetString("server.address"))
	assert.Equal(t, 60, viper.GetInt("sim.tickRate"))
	assert.Equal(t, "auto", viper.GetString("sim.geometry"))
	assert.Equal(t, "firerig", viper.GetString("db.database"))
	assert.Equal(t, "memory", viper.GetString("storage.type"))
	assert.Equal(t, false, viper.GetBool("graylog.enabled"))
	assert.Equal(t, "firerig_sessions", viper.GetString("influx.bucket"))
	assert.Equal(t, "firerig", viper.GetString("otel.serviceName"))
}

func TestLoad_MissingFile(t *testing.T) {
	t.Cleanup(viper.Reset)

	err := Load("/nonexistent/path")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")

	var notFound viper.ConfigFileNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Cleanup(viper.Reset)
	t.Setenv("FIRERIG_ADVICE_APIKEY", "from-env")
	t.Setenv("FIRERIG_SIM_TICKRATE", "30")

	require.NoError(t, Load(writeConfig(t, `{"advice": {"apiKey": "from-file"}}`)))

	assert.Equal(t, "from-env", GetAdviceConfig().APIKey)
	assert.Equal(t, 30, GetSimConfig().TickRate)
}

func TestBindFlags(t *testing.T) {
	t.Cleanup(viper.Reset)

	fs := pflag.NewFlagSet("firerig", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--listen", ":7000", "--storage", "sqlite"}))
	require.NoError(t, Load(writeConfig(t, `{"server": {"address": ":9090"}}`)))

	assert.Equal(t, ":7000", GetServerConfig().Address)
	assert.Equal(t, "sqlite", GetStorageConfig().Type)
	assert.Equal(t, "auto", GetSimConfig().Geometry)
}

func TestGetString(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testKey", "testValue")
	assert.Equal(t, "testValue", GetString("testKey"))
}

func TestGetInt(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testInt", 42)
	assert.Equal(t, 42, GetInt("testInt"))
}

func TestGetBool(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("testBool", true)
	assert.Equal(t, true, GetBool("testBool"))
}

func TestGetSimConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetSimConfig()
	assert.Equal(t, 60, cfg.TickRate)
	assert.Equal(t, 100*time.Millisecond, cfg.ReportInterval)
	assert.Equal(t, 64, cfg.MaxSessions)
	assert.Equal(t, 30, cfg.TrackSampleTicks)
}

func TestGetSirenConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetSirenConfig()
	assert.Equal(t, 44100, cfg.SampleRate)
	assert.Equal(t, 650.0, cfg.Low)
	assert.Equal(t, 1450.0, cfg.High)
	assert.Equal(t, 4*time.Second, cfg.Period)
	assert.Equal(t, 0.3, cfg.Volume)
}

func TestGetAdviceConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"advice": { "baseUrl": "http://llm.local", "model": "tiny", "timeout": "5s" }
	}`)))

	cfg := GetAdviceConfig()
	assert.Equal(t, "http://llm.local", cfg.BaseURL)
	assert.Equal(t, "tiny", cfg.Model)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestGetStorageConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetStorageConfig()
	assert.Equal(t, "memory", cfg.Type)
	assert.Equal(t, "./telemetry", cfg.Memory.OutputDir)
	assert.Equal(t, true, cfg.Memory.CompressOutput)
	assert.Equal(t, 3*time.Minute, cfg.SQLite.DumpInterval)
}

func TestGetStorageConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"storage": {
			"type": "sqlite",
			"memory": { "outputDir": "/tmp/out", "compressOutput": false },
			"sqlite": { "dumpInterval": "10m", "dumpPath": "/tmp/rig.db" },
			"websocket": { "url": "ws://collector/api", "secret": "s3" }
		}
	}`)
	require.NoError(t, Load(dir))

	sc := GetStorageConfig()
	assert.Equal(t, "sqlite", sc.Type)
	assert.Equal(t, "/tmp/out", sc.Memory.OutputDir)
	assert.Equal(t, false, sc.Memory.CompressOutput)
	assert.Equal(t, 10*time.Minute, sc.SQLite.DumpInterval)
	assert.Equal(t, "/tmp/rig.db", sc.SQLite.DumpPath)
	assert.Equal(t, "ws://collector/api", sc.WebSocket.URL)
	assert.Equal(t, "s3", sc.WebSocket.Secret)
}

func TestGetOTelConfig_Defaults(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))

	cfg := GetOTelConfig()
	assert.Equal(t, false, cfg.Enabled)
	assert.Equal(t, "firerig", cfg.ServiceName)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 30*time.Second, cfg.MetricInterval)
	assert.Equal(t, "", cfg.Endpoint)
	assert.Equal(t, true, cfg.Insecure)
}

func TestGetOTelConfig_Override(t *testing.T) {
	t.Cleanup(viper.Reset)

	dir := writeConfig(t, `{
		"otel": {
			"enabled": true,
			"serviceName": "my-service",
			"batchTimeout": "30s",
			"metricInterval": "10s",
			"endpoint": "localhost:4317",
			"insecure": false
		}
	}`)
	require.NoError(t, Load(dir))

	oc := GetOTelConfig()
	assert.Equal(t, true, oc.Enabled)
	assert.Equal(t, "my-service", oc.ServiceName)
	assert.Equal(t, 30*time.Second, oc.BatchTimeout)
	assert.Equal(t, 10*time.Second, oc.MetricInterval)
	assert.Equal(t, "localhost:4317", oc.Endpoint)
	assert.Equal(t, false, oc.Insecure)
}

func TestGetInfluxAndGraylogConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{
		"influx": { "enabled": true, "org": "station-9" },
		"graylog": { "enabled": true, "address": "gelf:12201" }
	}`)))

	ic := GetInfluxConfig()
	assert.True(t, ic.Enabled)
	assert.Equal(t, "station-9", ic.Org)
	assert.Equal(t, "firerig_sessions", ic.Bucket)

	gc := GetGraylogConfig()
	assert.True(t, gc.Enabled)
	assert.Equal(t, "gelf:12201", gc.Address)
}

func TestGetUploadConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	require.NoError(t, Load(writeConfig(t, `{}`)))
	assert.Equal(t, UploadConfig{URL: "http://localhost:5000"}, GetUploadConfig())

	viper.Reset()
	require.NoError(t, Load(writeConfig(t, `{
		"upload": { "enabled": true, "url": "https://collector.example", "secret": "s3cret" }
	}`)))
	uc := GetUploadConfig()
	assert.True(t, uc.Enabled)
	assert.Equal(t, "https://collector.example", uc.URL)
	assert.Equal(t, "s3cret", uc.Secret)
}
