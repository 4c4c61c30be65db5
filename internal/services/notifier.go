package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/beatclash/backend/internal/models"
	"github.com/go-redis/redis/v8"
)

const battleEventsKey = "battle_events"

// Notifier tells collaborators (chat, push) about committed battle transitions.
// Calls happen after commit and their errors are only logged.
type Notifier interface {
	BattleAccepted(ctx context.Context, battle *models.Battle) error
	BattleSettled(ctx context.Context, settlement *models.Settlement) error
	BattleCancelled(ctx context.Context, battle *models.Battle) error
}

type BattleEvent struct {
	Type       string    `json:"type"`
	BattleID   string    `json:"battleId"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// RedisNotifier queues events on a redis list and publishes them on a channel
// of the same name. With a nil client it only logs.
type RedisNotifier struct {
	redis *redis.Client
	clock Clock
}

func NewRedisNotifier(redisClient *redis.Client, clock Clock) *RedisNotifier {
	return &RedisNotifier{
		redis: redisClient,
		clock: clock,
	}
}

func (n *RedisNotifier) BattleAccepted(ctx context.Context, battle *models.Battle) error {
	return n.emit(ctx, "battle.accepted", battle.ID, battle)
}

func (n *RedisNotifier) BattleSettled(ctx context.Context, settlement *models.Settlement) error {
	return n.emit(ctx, "battle.settled", settlement.BattleID, settlement)
}

func (n *RedisNotifier) BattleCancelled(ctx context.Context, battle *models.Battle) error {
	return n.emit(ctx, "battle.cancelled", battle.ID, battle)
}

func (n *RedisNotifier) emit(ctx context.Context, eventType, battleID string, payload any) error {
	data, err := json.Marshal(BattleEvent{
		Type:       eventType,
		BattleID:   battleID,
		Payload:    payload,
		OccurredAt: n.clock.Now(),
	})
	if err != nil {
		return err
	}

	if n.redis == nil {
		log.Printf("[NOTIFY] %s", data)
		return nil
	}

	if err := n.redis.RPush(ctx, battleEventsKey, data).Err(); err != nil {
		return err
	}
	return n.redis.Publish(ctx, battleEventsKey, data).Err()
}

// notifyAfterCommit runs a notification and swallows its error.
func notifyAfterCommit(ctx context.Context, what, battleID string, fn func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Printf("[NOTIFY] Failed to publish %s for battle %s: %v", what, battleID, err)
	}
}
