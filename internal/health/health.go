// Package health implements the aggregate health endpoint (spec.md §4.10,
// GET /health): every enabled integration's probe runs concurrently under
// a bounded timeout, and the per-service results reduce to one overall
// status by DOWN > ERROR > DEGRADED > UP dominance. Grounded on the
// teacher's http/server.go concurrent-probe pattern, generalized from a
// fixed service list to the submission backend's integration set.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/CSCfi/metadata-submitter-sub002/internal/svcclient"
)

// Probe names and runs a single integration's health check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) svcclient.Health
}

// ServiceHealth is one named probe's reduced result.
type ServiceHealth struct {
	Name   string         `json:"name"`
	Status svcclient.Health `json:"status"`
}

// Report is the GET /health response body.
type Report struct {
	Status   svcclient.Health `json:"status"`
	Services []ServiceHealth  `json:"services"`
}

var rank = map[svcclient.Health]int{
	svcclient.HealthUP:       0,
	svcclient.HealthDegraded: 1,
	svcclient.HealthError:    2,
	svcclient.HealthDOWN:     3,
}

// Aggregate runs every probe concurrently, each bounded by timeout, and
// reduces the results per spec.md §4.10's dominance order.
func Aggregate(ctx context.Context, probes []Probe, timeout time.Duration) Report {
	results := make([]ServiceHealth, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func(i int, p Probe) {
			defer wg.Done()
			results[i] = ServiceHealth{Name: p.Name, Status: runProbe(ctx, p, timeout)}
		}(i, p)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })

	overall := svcclient.HealthUP
	for _, r := range results {
		if rank[r.Status] > rank[overall] {
			overall = r.Status
		}
	}
	return Report{Status: overall, Services: results}
}

func runProbe(ctx context.Context, p Probe, timeout time.Duration) svcclient.Health {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan svcclient.Health, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- svcclient.HealthError
			}
		}()
		done <- p.Check(probeCtx)
	}()
	select {
	case status := <-done:
		return status
	case <-probeCtx.Done():
		return svcclient.HealthError
	}
}
