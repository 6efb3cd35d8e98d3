package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/albapepper/scoracle-live/internal/match"
)

// DefaultStreamMaxLen caps each match stream (approximate trimming).
const DefaultStreamMaxLen = 10000

// StreamKey returns the Redis stream a match's updates go to.
func StreamKey(matchID string) string {
	return "scoring.updates." + matchID
}

// StreamPublisher appends snapshot updates to a Redis stream per match.
type StreamPublisher struct {
	client *redis.Client
	maxLen int64
	logger *slog.Logger
}

// NewStreamPublisher creates a stream publisher.
func NewStreamPublisher(client *redis.Client, maxLen int64, logger *slog.Logger) *StreamPublisher {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamPublisher{client: client, maxLen: maxLen, logger: logger}
}

// PublishSnapshot appends one snapshot to the match stream.
func (p *StreamPublisher) PublishSnapshot(ctx context.Context, snap match.Snapshot) error {
	streamKey := StreamKey(snap.MatchID)

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":       string(data),
			"match_id":   snap.MatchID,
			"quarter":    snap.CurrentQuarter,
			"home_score": snap.HomeTotalScore,
			"away_score": snap.AwayTotalScore,
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publishing to stream %s: %w", streamKey, err)
	}
	return nil
}

// Publish implements Publisher. Failures are logged; the live match never
// waits on downstream consumers.
func (p *StreamPublisher) Publish(ctx context.Context, snap match.Snapshot) {
	if err := p.PublishSnapshot(ctx, snap); err != nil {
		p.logger.Warn("Stream publish failed", "match_id", snap.MatchID, "error", err)
	}
}
