package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ai_server/pkg/logger"
)

const (
	StreamAnalyze  = "complaint:analyze"
	StreamAnalyzed = "complaint:analyzed"
)

// DeadLetterPrefix names the stream that receives entries which exhausted
// their deliveries: dlq:complaint:analyze.
const DeadLetterPrefix = "dlq:"

const (
	DefaultGroup     = "ai-service"
	DefaultReadCount = 10
	DefaultBlock     = 5 * time.Second
)

// Message is one stream entry carrying a JSON payload under "data".
type Message struct {
	ID     string
	Stream string
	Data   []byte
}

// PendingEntry is a delivered entry that has not been acked yet.
type PendingEntry struct {
	ID         string
	Consumer   string
	Idle       time.Duration
	Deliveries int64
}

type RedisStream struct {
	client redis.UniversalClient
	group  string
	block  time.Duration
}

func NewRedisStream(client redis.UniversalClient, group string) *RedisStream {
	if group == "" {
		group = DefaultGroup
	}
	return &RedisStream{
		client: client,
		group:  group,
		block:  DefaultBlock,
	}
}

// WithBlock sets how long Read waits for new entries.
func (s *RedisStream) WithBlock(d time.Duration) *RedisStream {
	s.block = d
	return s
}

func (s *RedisStream) Group() string {
	return s.group
}

func (s *RedisStream) CreateGroup(ctx context.Context, stream string) error {
	err := s.client.XGroupCreateMkStream(ctx, stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (s *RedisStream) Publish(ctx context.Context, stream string, data any) (string, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": jsonData},
	}).Result()
}

// Read fetches up to count new entries for the consumer. A timeout with no
// entries returns an empty slice and no error.
func (s *RedisStream) Read(ctx context.Context, stream, consumer string, count int64) ([]Message, error) {
	if count <= 0 {
		count = DefaultReadCount
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    s.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var out []Message
	for _, st := range streams {
		out = append(out, s.toMessages(ctx, st.Stream, st.Messages)...)
	}
	return out, nil
}

func (s *RedisStream) toMessages(ctx context.Context, stream string, msgs []redis.XMessage) []Message {
	out := make([]Message, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			// payload 없는 메시지는 다시 읽지 않도록 바로 ack
			logger.WithField("message_id", msg.ID).Warn("stream entry without data field, acking")
			_ = s.Ack(ctx, stream, msg.ID)
			continue
		}
		out = append(out, Message{ID: msg.ID, Stream: stream, Data: []byte(data)})
	}
	return out
}

// PendingEntries lists up to count unacked entries idle for at least minIdle.
func (s *RedisStream) PendingEntries(ctx context.Context, stream string, minIdle time.Duration, count int64) ([]PendingEntry, error) {
	if count <= 0 {
		count = DefaultReadCount
	}

	pending, err := s.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: stream,
		Group:  s.group,
		Idle:   minIdle,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]PendingEntry, 0, len(pending))
	for _, p := range pending {
		// Redis 6.2 미만은 IDLE 필터를 무시하므로 여기서 한 번 더 거른다
		if p.Idle < minIdle {
			continue
		}
		entries = append(entries, PendingEntry{
			ID:         p.ID,
			Consumer:   p.Consumer,
			Idle:       p.Idle,
			Deliveries: p.RetryCount,
		})
	}
	return entries, nil
}

// Claim moves the given pending entries to consumer and returns them. Entries
// that were acked or deleted in the meantime are skipped.
func (s *RedisStream) Claim(ctx context.Context, stream, consumer string, minIdle time.Duration, ids ...string) ([]Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	claimed, err := s.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   stream,
		Group:    s.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return s.toMessages(ctx, stream, claimed), nil
}

// DeadLetter copies the entry to dlq:<stream> and acks the original.
func (s *RedisStream) DeadLetter(ctx context.Context, stream, id, reason string) error {
	entries, err := s.client.XRangeN(ctx, stream, id, id, 1).Result()
	if err != nil {
		return fmt.Errorf("read entry for dead letter: %w", err)
	}

	// 이미 삭제된 엔트리는 ack만 한다
	if len(entries) > 0 {
		values := map[string]any{
			"original_stream": stream,
			"original_id":     id,
			"group":           s.group,
			"reason":          reason,
			"failed_at":       time.Now().UTC().Format(time.RFC3339),
		}
		for k, v := range entries[0].Values {
			values[k] = v
		}
		if err := s.client.XAdd(ctx, &redis.XAddArgs{
			Stream: DeadLetterPrefix + stream,
			Values: values,
		}).Err(); err != nil {
			return fmt.Errorf("write dead letter: %w", err)
		}
	}

	return s.Ack(ctx, stream, id)
}

func (s *RedisStream) Ack(ctx context.Context, stream, id string) error {
	return s.client.XAck(ctx, stream, s.group, id).Err()
}

func (s *RedisStream) Pending(ctx context.Context, stream string) (int64, error) {
	info, err := s.client.XPending(ctx, stream, s.group).Result()
	if err != nil {
		return 0, err
	}
	return info.Count, nil
}

// Len returns the number of entries in the stream.
func (s *RedisStream) Len(ctx context.Context, stream string) (int64, error) {
	return s.client.XLen(ctx, stream).Result()
}
