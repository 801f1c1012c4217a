package metrics

// RecordDedupCollapsed records that count candidate articles were
// folded into an existing duplicate cluster during one Dedupe call.
func RecordDedupCollapsed(count int) {
	if count <= 0 {
		return
	}
	dedupCollapsedTotal.Add(float64(count))
}

// RecordQuotaRejected records that count candidates in category were
// dropped by the quota distributor because their cap was already
// reached.
func RecordQuotaRejected(category string, count int) {
	if count <= 0 {
		return
	}
	quotaRejectedTotal.WithLabelValues(category).Add(float64(count))
}
