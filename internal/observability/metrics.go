package observability

import (
	"sort"
	"sync"
	"time"
)

// RouteStats aggregates requests for one method and route pattern.
type RouteStats struct {
	Method        string
	Route         string
	Requests      int64
	Errors        int64
	ByStatus      map[int]int64
	ErrorsByCode  map[string]int64
	TotalDuration time.Duration
}

// AverageLatency returns the mean request duration.
func (s RouteStats) AverageLatency() time.Duration {
	if s.Requests == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(s.Requests)
}

type routeKey struct {
	method string
	route  string
}

// Metrics keeps in-process request counters per route. A nil *Metrics
// discards everything.
type Metrics struct {
	mu     sync.Mutex
	routes map[routeKey]*RouteStats
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{routes: make(map[routeKey]*RouteStats)}
}

// RecordRequest counts a completed request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats(route, method)
	stats.Requests++
	stats.ByStatus[status]++
	stats.TotalDuration += duration
}

// RecordError counts an error response by its error code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := m.stats(route, method)
	stats.Errors++
	stats.ErrorsByCode[code]++
}

// Snapshot returns a copy of all route stats ordered by route then method.
func (m *Metrics) Snapshot() []RouteStats {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RouteStats, 0, len(m.routes))
	for _, stats := range m.routes {
		cp := *stats
		cp.ByStatus = make(map[int]int64, len(stats.ByStatus))
		for k, v := range stats.ByStatus {
			cp.ByStatus[k] = v
		}
		cp.ErrorsByCode = make(map[string]int64, len(stats.ErrorsByCode))
		for k, v := range stats.ErrorsByCode {
			cp.ErrorsByCode[k] = v
		}
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Route != out[j].Route {
			return out[i].Route < out[j].Route
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// stats must be called with mu held.
func (m *Metrics) stats(route, method string) *RouteStats {
	key := routeKey{method: method, route: route}
	stats, ok := m.routes[key]
	if !ok {
		stats = &RouteStats{
			Method:       method,
			Route:        route,
			ByStatus:     make(map[int]int64),
			ErrorsByCode: make(map[string]int64),
		}
		m.routes[key] = stats
	}
	return stats
}
