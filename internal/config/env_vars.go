package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configFileVar = "CONFIG_FILE"
	portEnvVar    = "PORT"
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	baseURLVar    = "BASE_URL"
	logLevelVar   = "LOG_LEVEL"
)

// v resolves every key against the process environment first, then the
// optional config file.
var v = newViper()

func newViper() *viper.Viper {
	vp := viper.New()
	vp.AutomaticEnv()
	return vp
}

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Edu Portal")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

// GetBaseURL returns the public base URL of the portal (e.g., "https://learn.example.com").
// Reset and confirmation links are built from it.
func (EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(GetEnv(baseURLVar, "http://localhost:8080"), "/")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func GetEnv(key, defaultValue string) string {
	value := v.GetString(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetDuration(key string, defaultValue time.Duration) time.Duration {
	if !v.IsSet(key) {
		return defaultValue
	}
	d := v.GetDuration(key)
	if d <= 0 {
		return defaultValue
	}
	return d
}

func GetBool(key string, defaultValue bool) bool {
	if !v.IsSet(key) {
		return defaultValue
	}
	return v.GetBool(key)
}

func GetInt(key string, defaultValue int) int {
	if !v.IsSet(key) {
		return defaultValue
	}
	return v.GetInt(key)
}
