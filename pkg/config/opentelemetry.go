package config

import "fmt"

// OpenTelemetryConfig configures OpenTelemetry tracing of a run.
type OpenTelemetryConfig struct {
	// OTLPEndpoint is the OTLP collector endpoint. Tracing is disabled when empty.
	OTLPEndpoint string `mapstructure:"otlp-endpoint"`

	// OTLPProtocol is the OTLP protocol to use: "grpc" or "http". Default: "grpc".
	OTLPProtocol string `mapstructure:"otlp-protocol"`

	// OTLPInsecure disables TLS towards the collector.
	OTLPInsecure bool `mapstructure:"otlp-insecure"`

	// ServiceName is the service name to use in traces. Default: "querybench".
	ServiceName string `mapstructure:"otlp-service-name"`
}

// Enabled reports whether spans should be exported.
func (c *OpenTelemetryConfig) Enabled() bool {
	return c != nil && c.OTLPEndpoint != ""
}

// GetOTLPProtocol returns the protocol, defaulting to "grpc".
func (c *OpenTelemetryConfig) GetOTLPProtocol() string {
	if c.OTLPProtocol == "" {
		return "grpc"
	}
	return c.OTLPProtocol
}

// GetServiceName returns the service name, defaulting to "querybench".
func (c *OpenTelemetryConfig) GetServiceName() string {
	if c.ServiceName == "" {
		return "querybench"
	}
	return c.ServiceName
}

// Validate validates the OpenTelemetry configuration.
func (c *OpenTelemetryConfig) Validate() error {
	switch c.GetOTLPProtocol() {
	case "grpc", "http":
		return nil
	default:
		return fmt.Errorf("otlp-protocol %q must be grpc or http", c.OTLPProtocol)
	}
}
