package batch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Krimson/posture-emulator/pkg/utils"
)

// RedisStreamSink публикует батчи в Redis Stream (XADD)
type RedisStreamSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStreamSink maxLen > 0 включает приблизительное усечение потока
func NewRedisStreamSink(client redis.Cmdable, stream string, maxLen int64) *RedisStreamSink {
	return &RedisStreamSink{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

func (s *RedisStreamSink) Consume(ctx context.Context, b Batch) error {
	points, err := json.Marshal(b.Points)
	if err != nil {
		return fmt.Errorf("failed to marshal points: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"session_id": b.Key.SessionID,
			"t0":         utils.FormatISO(b.T0),
			"t1":         utils.FormatISO(b.T1),
			"count":      len(b.Points),
			"points":     string(points),
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}
