// Package telemetry publishes service metrics to AWS CloudWatch.
package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"clima/internal/types"
)

// putTimeout bounds a single PutMetricData call so a slow CloudWatch
// endpoint adds at most this much to a request.
const putTimeout = time.Second

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchMetrics records API and provider metrics.
//
// Metrics emitted:
//   - APILatency, APIRequestCount: Dims {Endpoint, Method, Status}
//   - ProviderLatency: Dims {Provider} on every provider call
//   - ProviderFailure: Dims {Provider, ErrorCode} when a call fails
//   - AllSourcesFailed: no dims, when an aggregation ends with no sources
//
// Publishing failures are logged and never returned; metrics must not fail
// a request.
type CloudWatchMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchMetrics creates a collector publishing to namespace. An
// empty namespace falls back to types.MetricNamespace.
func NewCloudWatchMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRequest emits latency and count for one API request.
func (m *CloudWatchMetrics) RecordRequest(ctx context.Context, method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dimension(types.DimEndpoint, endpoint),
		dimension(types.DimMethod, method),
		dimension(types.DimStatus, status),
	}

	m.put(ctx, "request",
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	)
}

// RecordProviderCall emits the latency of one provider call and, when err is
// non-nil, a failure count tagged with the AppError code.
func (m *CloudWatchMetrics) RecordProviderCall(ctx context.Context, provider types.ProviderName, duration time.Duration, err error) {
	data := []cwtypes.MetricDatum{{
		MetricName: aws.String(types.MetricProviderLatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{dimension(types.DimProvider, string(provider))},
	}}

	if err != nil {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricProviderFailure),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				dimension(types.DimProvider, string(provider)),
				dimension(types.DimErrorCode, errorCode(err)),
			},
		})
	}

	m.put(ctx, "provider", data...)
}

// RecordAllSourcesFailed counts aggregations that produced no sources.
func (m *CloudWatchMetrics) RecordAllSourcesFailed(ctx context.Context) {
	m.put(ctx, "all sources failed", cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAllSourcesFailed),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	})
}

// put publishes data under a deadline detached from ctx's cancellation, so
// a request that already finished still gets its metrics recorded.
func (m *CloudWatchMetrics) put(ctx context.Context, kind string, data ...cwtypes.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), putTimeout)
	defer cancel()

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		types.LoggerFromContext(ctx, m.logger).WarnContext(ctx, "failed to record metric",
			"kind", kind,
			"error", err,
		)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

func errorCode(err error) string {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Code)
	}
	return string(types.ErrCodeInternalUnexpected)
}
