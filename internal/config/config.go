package config

// Config is everything the server reads from the environment. Each part is
// its own interface so components depend only on what they use.
type Config interface {
	EnvConfig
	CorsConfig
	SessionConfig
	SecurityConfig
	StoreConfig
	TelemetryConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Session
	Security
	Store
	Telemetry
}

func New() Config {
	return mainConfig{}
}
