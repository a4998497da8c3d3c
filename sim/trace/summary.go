package trace

// LogSummary aggregates statistics from a Log's flushed fulfillment records.
type LogSummary struct {
	Attempts       int
	Successes      int
	Failures       map[FailureReason]int
	UnitsFulfilled int64
	SuccessRate    float64
	Snapshots      int
}

// Summarize computes aggregate statistics from a Log.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *Log) *LogSummary {
	summary := &LogSummary{
		Failures: make(map[FailureReason]int),
	}
	if l == nil {
		return summary
	}

	summary.Attempts = len(l.Fulfillments)
	for _, r := range l.Fulfillments {
		if r.Success {
			summary.Successes++
			summary.UnitsFulfilled += r.NewlyFulfilled
		} else {
			summary.Failures[r.FailureReason]++
		}
	}
	if summary.Attempts > 0 {
		summary.SuccessRate = float64(summary.Successes) / float64(summary.Attempts)
	}
	summary.Snapshots = len(l.Inventory)

	return summary
}
