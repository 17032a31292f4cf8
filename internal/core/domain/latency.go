package domain

// LatencySample is one point-to-point measurement of a simulation tick.
type LatencySample struct {
	From      NodeName `json:"from"`
	To        NodeName `json:"to"`
	LatencyMs int      `json:"latency"`
}

// HistoryPoint is one value of a node pair's latency time series.
type HistoryPoint struct {
	TimestampMs int64 `json:"timestamp"`
	LatencyMs   int   `json:"latency"`
}

// HistoryRange is a named time window of the history query.
type HistoryRange string

const (
	Range1h  HistoryRange = "1h"
	Range24h HistoryRange = "24h"
	Range7d  HistoryRange = "7d"
	Range30d HistoryRange = "30d"
)

type HistoryStats struct {
	Min int     `json:"min"`
	Max int     `json:"max"`
	Avg float64 `json:"avg"`
}

// History is the answer to a history query.
type History struct {
	From       NodeName       `json:"from"`
	To         NodeName       `json:"to"`
	Range      HistoryRange   `json:"range"`
	IntervalMs int64          `json:"intervalMs"`
	Points     []HistoryPoint `json:"points"`
	Stats      HistoryStats   `json:"stats"`
}

// Pair returns the history's pair in "A-B" form.
func (h *History) Pair() string {
	return string(h.From) + "-" + string(h.To)
}
