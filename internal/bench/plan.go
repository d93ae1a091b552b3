package bench

import "strings"

// ClassifyPlan derives a best-effort index-usage label from raw plan
// text via substring heuristics. A plan containing any collection scan
// stage is labeled a collection scan even when index stages also appear,
// since the scan dominates cost.
func ClassifyPlan(plan string) IndexUsage {
	if plan == "" {
		return IndexUsageUnknown
	}
	upper := strings.ToUpper(plan)
	if strings.Contains(upper, "COLLSCAN") {
		return IndexUsageCollScan
	}
	for _, stage := range []string{"IXSCAN", "IDHACK", "DISTINCT_SCAN", "COUNT_SCAN", "EXPRESS_IXSCAN"} {
		if strings.Contains(upper, stage) {
			return IndexUsageIndexed
		}
	}
	return IndexUsageUnknown
}
