package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the admin metrics endpoint.
type Summary struct {
	HTTP          httpSummary       `json:"http"`
	Participation participationInfo `json:"participation"`
	Access        accessInfo        `json:"access"`
	Auth          authInfo          `json:"auth"`
	RateLimit     rateLimitInfo     `json:"rateLimit"`
	DB            dbInfo            `json:"db"`
	Server        serverInfo        `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type participationInfo struct {
	DirectAssignments       float64 `json:"directAssignments"`
	OrganizationAssignments float64 `json:"organizationAssignments"`
	AssignmentErrors        float64 `json:"assignmentErrors"`
	RolePromotions          float64 `json:"rolePromotions"`
	RolePromotionFailures   float64 `json:"rolePromotionFailures"`
}

type accessInfo struct {
	PermissionDenials float64 `json:"permissionDenials"`
	PolicyDenials     float64 `json:"policyDenials"`
}

type authInfo struct {
	Failures  float64 `json:"failures"`
	Successes float64 `json:"successes"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// Handler serves a JSON summary of the live registry.
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := m.Summarize()
		if err != nil {
			http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store")
		_ = json.NewEncoder(w).Encode(summary)
	}
}

// Summarize gathers the registry into a Summary.
func (m *Metrics) Summarize() (*Summary, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return nil, err
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	requests := fam["portal_http_requests_total"]
	latency := fam["portal_http_request_duration_seconds"]
	started := gaugeValue(fam["portal_server_start_time_seconds"])

	return &Summary{
		HTTP: httpSummary{
			TotalRequests: sumCounter(requests, nil),
			ErrorRate:     errorRate(requests),
			P50Latency:    histogramPercentile(latency, 0.50),
			P95Latency:    histogramPercentile(latency, 0.95),
			P99Latency:    histogramPercentile(latency, 0.99),
		},
		Participation: participationInfo{
			DirectAssignments:       sumCounter(fam["portal_assignments_total"], labelMatch("source", "direct")),
			OrganizationAssignments: sumCounter(fam["portal_assignments_total"], labelMatch("source", "organization")),
			AssignmentErrors:        sumCounter(fam["portal_assignment_errors_total"], nil),
			RolePromotions:          sumCounter(fam["portal_role_promotions_total"], nil),
			RolePromotionFailures:   sumCounter(fam["portal_role_promotion_failures_total"], nil),
		},
		Access: accessInfo{
			PermissionDenials: sumCounter(fam["portal_permission_denials_total"], nil),
			PolicyDenials:     sumCounter(fam["portal_policy_denials_total"], nil),
		},
		Auth: authInfo{
			Failures:  sumCounter(fam["portal_auth_failures_total"], nil),
			Successes: sumCounter(fam["portal_auth_successes_total"], nil),
		},
		RateLimit: rateLimitInfo{
			Rejections: sumCounter(fam["portal_ratelimit_rejections_total"], nil),
		},
		DB: dbInfo{
			TotalConns:    gaugeValue(fam["portal_db_pool_total_conns"]),
			IdleConns:     gaugeValue(fam["portal_db_pool_idle_conns"]),
			AcquiredConns: gaugeValue(fam["portal_db_pool_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     started,
			UptimeSeconds: float64(time.Now().Unix()) - started,
		},
	}, nil
}

// --- Prometheus metric helpers ---

func labelMatch(name, value string) func(*dto.Metric) bool {
	return func(m *dto.Metric) bool {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == name && lp.GetValue() == value {
				return true
			}
		}
		return false
	}
}

func sumCounter(f *dto.MetricFamily, match func(*dto.Metric) bool) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil || (match != nil && !match(m)) {
			continue
		}
		total += m.GetCounter().GetValue()
	}
	return total
}

func gaugeValue(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	ms := f.GetMetric()
	if len(ms) == 0 || ms[0].GetGauge() == nil {
		return 0
	}
	return ms[0].GetGauge().GetValue()
}

// errorRate is the share of requests answered with a 4xx or 5xx status.
func errorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		if m.GetCounter() == nil {
			continue
		}
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" {
				code := lp.GetValue()
				if len(code) > 0 && code[0] >= '4' {
					errors += v
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}

// histogramPercentile computes a percentile from aggregated histogram buckets
// using linear interpolation.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	var totalCount uint64
	counts := make(map[float64]uint64)
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		if h == nil {
			continue
		}
		totalCount += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			counts[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if totalCount == 0 {
		return 0
	}

	bounds := make([]float64, 0, len(counts))
	for ub := range counts {
		if !math.IsInf(ub, 1) {
			bounds = append(bounds, ub)
		}
	}
	if len(bounds) == 0 {
		return 0
	}
	sort.Float64s(bounds)

	rank := q * float64(totalCount)
	var prevBound float64
	var prevCount uint64
	for _, ub := range bounds {
		cum := counts[ub]
		if float64(cum) >= rank {
			inBucket := cum - prevCount
			if inBucket == 0 {
				return ub
			}
			fraction := (rank - float64(prevCount)) / float64(inBucket)
			return prevBound + fraction*(ub-prevBound)
		}
		prevBound = ub
		prevCount = cum
	}
	return bounds[len(bounds)-1]
}
