package config

import "time"

type StorageConfig interface {
	GetDatabaseURL() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetDatabaseURL returns the Postgres DSN. Users are kept in memory when empty.
func (Storage) GetDatabaseURL() string {
	return GetEnv("DATABASE_URL", "")
}

// GetRedisAddr returns the Redis address. Login sessions are kept in memory when empty.
func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

type FunctionsConfig interface {
	GetFunctionsBaseURL() string
	GetFunctionsAPIKey() string
	GetFunctionsTimeout() time.Duration
}

type Functions struct{}

var _ FunctionsConfig = Functions{}

func (Functions) GetFunctionsBaseURL() string {
	return GetEnv("FUNCTIONS_BASE_URL", "")
}

func (Functions) GetFunctionsAPIKey() string {
	return GetEnv("FUNCTIONS_API_KEY", "")
}

func (Functions) GetFunctionsTimeout() time.Duration {
	return GetDuration("FUNCTIONS_TIMEOUT", 15*time.Second)
}

type MailConfig interface {
	GetSendgridAPIKey() string
	GetMailFrom() string
	GetMailFromName() string
}

type Mail struct{}

var _ MailConfig = Mail{}

// GetSendgridAPIKey returns the SendGrid key. Mail is logged instead of sent when empty.
func (Mail) GetSendgridAPIKey() string {
	return GetEnv("SENDGRID_API_KEY", "")
}

func (Mail) GetMailFrom() string {
	return GetEnv("MAIL_FROM", "no-reply@localhost")
}

func (Mail) GetMailFromName() string {
	return GetEnv("MAIL_FROM_NAME", EnvVars{}.GetAppName())
}
