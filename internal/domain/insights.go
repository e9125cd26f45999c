package domain

// The four metrics shown on the dashboard. The set is fixed; every stats
// fetch requests all of them in one call.
const (
	MetricFollows       = "page_follows"
	MetricEngagement    = "page_consumptions_unique"
	MetricImpressions   = "page_impressions"
	MetricLikeReactions = "page_actions_post_reactions_like_total"
)

// TrackedMetrics lists the requested metric names in request order.
var TrackedMetrics = []string{
	MetricFollows,
	MetricEngagement,
	MetricImpressions,
	MetricLikeReactions,
}

// InsightValue is a single reported data point for a metric.
type InsightValue struct {
	Value   int64  `json:"value"`
	EndTime string `json:"end_time,omitempty"`
}

// InsightMetric is one per-metric record from the insights endpoint.
type InsightMetric struct {
	Name   string         `json:"name"`
	Period string         `json:"period"`
	Values []InsightValue `json:"values"`
}

// PageStats maps each tracked metric name to its aggregate value.
type PageStats map[string]int64

// DateRange bounds an insights query. Both fields are optional and passed
// through to the platform uninterpreted.
type DateRange struct {
	Since string `json:"since"`
	Until string `json:"until"`
}

// ReduceInsights flattens per-metric records into PageStats, taking the first
// reported value per metric. Every tracked metric is present in the result;
// metrics missing from the response default to 0.
func ReduceInsights(records []InsightMetric) PageStats {
	stats := make(PageStats, len(TrackedMetrics))
	for _, name := range TrackedMetrics {
		stats[name] = 0
	}
	for _, rec := range records {
		if _, tracked := stats[rec.Name]; !tracked {
			continue
		}
		if len(rec.Values) > 0 {
			stats[rec.Name] = rec.Values[0].Value
		}
	}
	return stats
}
