// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// SlogSink writes events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(ctx context.Context, e Event) error {
	attrs := []any{
		"kind", e.Kind,
		"actor", e.Actor,
		"ip", e.IP,
		"at", e.At,
	}
	if e.QuestionID != 0 {
		attrs = append(attrs, "question_id", e.QuestionID)
	}
	if e.ChoiceID != 0 {
		attrs = append(attrs, "choice_id", e.ChoiceID)
	}

	switch e.Kind {
	case KindLoginFailed:
		s.logger.WarnContext(ctx, "login failed", attrs...)
	case KindLogin:
		s.logger.InfoContext(ctx, "user logged in", attrs...)
	case KindLogout:
		s.logger.InfoContext(ctx, "user logged out", attrs...)
	case KindVote:
		s.logger.InfoContext(ctx, "vote recorded", attrs...)
	default:
		s.logger.InfoContext(ctx, "audit event", attrs...)
	}
	return nil
}

// DefaultRedisMaxLen bounds the audit list when no length is given.
const DefaultRedisMaxLen = 10000

// RedisSink pushes JSON events onto a capped Redis list, newest first.
type RedisSink struct {
	client redis.Cmdable
	key    string
	maxLen int64
}

func NewRedisSink(client redis.Cmdable, key string, maxLen int64) *RedisSink {
	if maxLen <= 0 {
		maxLen = DefaultRedisMaxLen
	}
	return &RedisSink{client: client, key: key, maxLen: maxLen}
}

func (s *RedisSink) Write(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, payload)
		pipe.LTrim(ctx, s.key, 0, s.maxLen-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("push audit event to %s: %w", s.key, err)
	}
	return nil
}
