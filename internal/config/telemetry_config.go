package config

type TelemetryConfig interface {
	GetOTLPEndpoint() string
	GetServiceName() string
}

type Telemetry struct{}

var _ TelemetryConfig = Telemetry{}

// GetOTLPEndpoint is empty when tracing export is disabled
func (Telemetry) GetOTLPEndpoint() string {
	return GetEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
}

func (Telemetry) GetServiceName() string {
	return GetEnv("OTEL_SERVICE_NAME", "member-portal")
}
