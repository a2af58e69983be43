package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Signal kinds counted by SignalMetrics.
const (
	SignalOpen   = "open"
	SignalClick  = "click"
	SignalReply  = "reply"
	SignalBounce = "bounce"
)

// SignalMetrics counts engagement signals in Redis, split into fresh
// transitions and ignored duplicates/unknowns. An ignored signal is never an
// error to the mail client that produced it, but operators need to see the
// ratio — a flood of ignored opens usually means a scanner, not a reader.
// Best-effort: a metrics failure is logged and swallowed.
type SignalMetrics struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewSignalMetrics(redisClient *redis.Client, logger *slog.Logger) *SignalMetrics {
	return &SignalMetrics{
		redisClient: redisClient,
		logger:      logger,
	}
}

func signalKey(signal, outcome string) string {
	return fmt.Sprintf("signals:%s:%s", signal, outcome)
}

// Record counts one signal. fresh is true when the signal caused a
// first-time state transition on its tracking record.
func (m *SignalMetrics) Record(ctx context.Context, signal string, fresh bool) {
	outcome := "ignored"
	if fresh {
		outcome = "fresh"
	}

	if err := m.redisClient.Incr(ctx, signalKey(signal, outcome)).Err(); err != nil {
		m.logger.Error("failed to record signal metric",
			"error", err,
			"signal", signal,
			"outcome", outcome,
		)
	}
}

// SignalCounts is the snapshot returned to the metrics endpoint.
type SignalCounts struct {
	Fresh   map[string]int64 `json:"fresh"`
	Ignored map[string]int64 `json:"ignored"`
}

// Snapshot reads all signal counters in one round trip.
func (m *SignalMetrics) Snapshot(ctx context.Context) (*SignalCounts, error) {
	signals := []string{SignalOpen, SignalClick, SignalReply, SignalBounce}

	keys := make([]string, 0, len(signals)*2)
	for _, s := range signals {
		keys = append(keys, signalKey(s, "fresh"), signalKey(s, "ignored"))
	}

	values, err := m.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("reading signal counters: %w", err)
	}

	counts := &SignalCounts{
		Fresh:   make(map[string]int64, len(signals)),
		Ignored: make(map[string]int64, len(signals)),
	}
	for i, s := range signals {
		counts.Fresh[s] = parseCounter(values[i*2])
		counts.Ignored[s] = parseCounter(values[i*2+1])
	}
	return counts, nil
}

func parseCounter(v interface{}) int64 {
	s, ok := v.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
