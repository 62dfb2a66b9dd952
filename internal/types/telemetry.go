package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricAPILatency       = "APILatency"
	MetricAPIRequestCount  = "APIRequestCount"
	MetricProviderFailure  = "ProviderFailure"
	MetricProviderLatency  = "ProviderLatency"
	MetricAllSourcesFailed = "AllSourcesFailed"

	// Dimension Keys
	DimEndpoint  = "Endpoint"
	DimMethod    = "Method"
	DimStatus    = "Status"
	DimProvider  = "Provider"
	DimErrorCode = "ErrorCode"

	// Metric Namespace
	MetricNamespace = "EstacionesClima"
)
