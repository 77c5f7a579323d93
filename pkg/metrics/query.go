package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// OperationStats is the aggregated view of one AI operation, built from
// Prometheus counters. It backs the stats endpoint and CLI report.
type OperationStats struct {
	Operation      string `json:"operation"`
	Requests       int64  `json:"requests"`
	Errors         int64  `json:"errors"`
	Fallbacks      int64  `json:"fallbacks"`
	ResponseTokens int64  `json:"response_tokens"`
}

// QueryService queries aggregated Momentum metrics from a Prometheus
// server scraping the daemon.
type QueryService struct {
	queryAPI v1.API
}

// NewQueryService creates a query service for the Prometheus server at
// prometheusURL.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create Prometheus client: %w", err)
	}
	return &QueryService{queryAPI: v1.NewAPI(client)}, nil
}

// GetOperationStats aggregates request, error, fallback, and token counters
// for one AI operation across all resolution paths.
func (q *QueryService) GetOperationStats(ctx context.Context, operation string) (*OperationStats, error) {
	stats := &OperationStats{Operation: operation}

	var err error
	if stats.Requests, err = q.sum(ctx, fmt.Sprintf(`sum(momentum_ai_requests_total{operation=%q})`, operation)); err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}
	if stats.Errors, err = q.sum(ctx, fmt.Sprintf(`sum(momentum_ai_requests_total{operation=%q, status="error"})`, operation)); err != nil {
		return nil, fmt.Errorf("query errors: %w", err)
	}
	if stats.Fallbacks, err = q.sum(ctx, fmt.Sprintf(`sum(momentum_ai_fallbacks_total{operation=%q})`, operation)); err != nil {
		return nil, fmt.Errorf("query fallbacks: %w", err)
	}
	if stats.ResponseTokens, err = q.sum(ctx, fmt.Sprintf(`sum(momentum_ai_response_tokens_total{operation=%q})`, operation)); err != nil {
		return nil, fmt.Errorf("query response tokens: %w", err)
	}
	return stats, nil
}

// GetSyncErrorRate returns the fraction of persistence syncs that failed
// over the trailing window, or zero when no syncs were recorded.
func (q *QueryService) GetSyncErrorRate(ctx context.Context, window time.Duration) (float64, error) {
	rangeExpr := model.Duration(window).String()
	total, err := q.sumFloat(ctx, fmt.Sprintf(`sum(increase(momentum_syncs_total[%s]))`, rangeExpr))
	if err != nil {
		return 0, fmt.Errorf("query sync total: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	failed, err := q.sumFloat(ctx, fmt.Sprintf(`sum(increase(momentum_syncs_total{outcome="error"}[%s]))`, rangeExpr))
	if err != nil {
		return 0, fmt.Errorf("query sync errors: %w", err)
	}
	return failed / total, nil
}

func (q *QueryService) sum(ctx context.Context, query string) (int64, error) {
	f, err := q.sumFloat(ctx, query)
	return int64(f), err
}

func (q *QueryService) sumFloat(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}
