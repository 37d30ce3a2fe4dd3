package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/captable/internal/domain"
	"github.com/iho/captable/internal/usecase"
)

var _ usecase.Recorder = (*Metrics)(nil)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)
	m.RecordOperation(usecase.OpGetSummary, time.Millisecond, nil)
	m.RecordNormalization(0)

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestRecordOperation(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RecordOperation(usecase.OpAddStakeholder, 10*time.Millisecond, nil)
	m.RecordOperation(usecase.OpAddStakeholder, 10*time.Millisecond, &domain.CapacityError{})
	m.RecordOperation(usecase.OpUpdateEquity, 10*time.Millisecond, fmt.Errorf("%w: ghost", domain.ErrEntryNotFound))
	m.RecordOperation(usecase.OpUpdateEquity, 10*time.Millisecond, errors.New("boom"))

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"add ok", m.Operations.WithLabelValues(usecase.OpAddStakeholder, "ok"), 1},
		{"add error", m.Operations.WithLabelValues(usecase.OpAddStakeholder, "error"), 1},
		{"update error", m.Operations.WithLabelValues(usecase.OpUpdateEquity, "error"), 2},
		{"capacity", m.OperationErrors.WithLabelValues(usecase.OpAddStakeholder, "capacity_exceeded"), 1},
		{"not found", m.OperationErrors.WithLabelValues(usecase.OpUpdateEquity, "not_found"), 1},
		{"internal", m.OperationErrors.WithLabelValues(usecase.OpUpdateEquity, "internal"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}

	if n := testutil.CollectAndCount(m.OperationDuration); n != 2 {
		t.Fatalf("expected duration series for two operations, got %d", n)
	}
}

func TestRecordNormalization(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.RecordNormalization(0)
	m.RecordNormalization(3)

	if got := testutil.ToFloat64(m.Recalculations); got != 2 {
		t.Fatalf("expected 2 recalculations, got %v", got)
	}
	if got := testutil.ToFloat64(m.Normalizations); got != 1 {
		t.Fatalf("expected 1 normalization, got %v", got)
	}
}
