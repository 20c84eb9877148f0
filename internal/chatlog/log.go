package chatlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/shopmate-ai/storefront-backend/internal/model"
)

const (
	// StreamName is the name of the conversation turns stream.
	StreamName = "CHAT_TURNS"

	// SubjectPrefix is the prefix for all turn subjects.
	SubjectPrefix = "chat"

	fetchBatchSize = 100
)

// TurnLog stores conversation turns in JetStream.
type TurnLog struct {
	client *Client
}

// NewTurnLog creates a turn log on top of an established client.
func NewTurnLog(client *Client) *TurnLog {
	return &TurnLog{client: client}
}

// EnsureStream ensures the turns stream exists with proper configuration.
// Purging must stay allowed: clearing a user's history purges their subject.
func (l *TurnLog) EnsureStream(ctx context.Context) error {
	js := l.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Per-user conversation turns",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TurnSubject returns the subject carrying a user's turns.
func TurnSubject(userID string) string {
	return fmt.Sprintf("%s.%s.turn", SubjectPrefix, userID)
}

// AppendTurn publishes a turn to the user's subject.
func (l *TurnLog) AppendTurn(ctx context.Context, turn *model.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	_, err = l.client.JetStream().Publish(ctx, TurnSubject(turn.UserID), data)
	if err != nil {
		return fmt.Errorf("failed to publish turn: %w", err)
	}

	return nil
}

// Turns returns up to limit of the user's most recent turns, oldest first.
func (l *TurnLog) Turns(ctx context.Context, userID string, limit int) ([]model.ConversationTurn, error) {
	js := l.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: TurnSubject(userID),
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	// Drain the subject, keeping a window of the newest turns.
	var turns []model.ConversationTurn
	for {
		batch, err := consumer.Fetch(fetchBatchSize, jetstream.FetchMaxWait(2*time.Second))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch turns: %w", err)
		}

		count := 0
		for msg := range batch.Messages() {
			count++
			var turn model.ConversationTurn
			if err := json.Unmarshal(msg.Data(), &turn); err != nil {
				continue
			}
			turns = append(turns, turn)
			if len(turns) > limit {
				turns = turns[1:]
			}
		}
		if batch.Error() != nil || count < fetchBatchSize {
			break
		}
	}

	return turns, nil
}

// PurgeTurns deletes the user's persisted turn log.
func (l *TurnLog) PurgeTurns(ctx context.Context, userID string) error {
	stream, err := l.client.JetStream().Stream(ctx, StreamName)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}

	if err := stream.Purge(ctx, jetstream.WithPurgeSubject(TurnSubject(userID))); err != nil {
		return fmt.Errorf("failed to purge turns: %w", err)
	}

	return nil
}
