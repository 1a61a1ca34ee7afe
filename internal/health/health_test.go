package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

func TestAggregateDownDominates(t *testing.T) {
	probes := []Probe{
		{Name: "a", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthUP }},
		{Name: "b", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthDegraded }},
		{Name: "c", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthDOWN }},
		{Name: "d", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthError }},
	}
	report := Aggregate(context.Background(), probes, time.Second)
	assert.Equal(t, svcclient.HealthDOWN, report.Status)
	assert.Len(t, report.Services, 4)
}

func TestAggregateErrorDominatesDegraded(t *testing.T) {
	probes := []Probe{
		{Name: "a", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthDegraded }},
		{Name: "b", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthError }},
	}
	report := Aggregate(context.Background(), probes, time.Second)
	assert.Equal(t, svcclient.HealthError, report.Status)
}

func TestAggregateAllUp(t *testing.T) {
	probes := []Probe{
		{Name: "a", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthUP }},
		{Name: "b", Check: func(ctx context.Context) svcclient.Health { return svcclient.HealthUP }},
	}
	report := Aggregate(context.Background(), probes, time.Second)
	assert.Equal(t, svcclient.HealthUP, report.Status)
}

func TestAggregateTimeoutBecomesError(t *testing.T) {
	probes := []Probe{
		{Name: "slow", Check: func(ctx context.Context) svcclient.Health {
			<-ctx.Done()
			return svcclient.HealthUP
		}},
	}
	report := Aggregate(context.Background(), probes, 10*time.Millisecond)
	assert.Equal(t, svcclient.HealthError, report.Status)
}

func TestAggregatePanicBecomesError(t *testing.T) {
	probes := []Probe{
		{Name: "panics", Check: func(ctx context.Context) svcclient.Health { panic("boom") }},
	}
	report := Aggregate(context.Background(), probes, time.Second)
	assert.Equal(t, svcclient.HealthError, report.Status)
}
