package realtime

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/fitquest/utils"
)

// envelope is what travels over the redis channel.
type envelope struct {
	UserID uint            `json:"userId"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// RedisBackplane fans events out across instances. Every instance subscribes
// to the same channel and delivers what it receives to its local hub, the
// publishing instance included.
type RedisBackplane struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
}

// NewRedisBackplane wires hub to channel on rdb.
func NewRedisBackplane(rdb *redis.Client, channel string, hub *Hub) *RedisBackplane {
	return &RedisBackplane{rdb: rdb, channel: channel, hub: hub}
}

// Start subscribes and relays in the background until ctx ends.
// It returns once the subscription is confirmed.
func (b *RedisBackplane) Start(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.relay(msg.Payload)
			}
		}
	}()
	utils.Sugar.Infof("realtime backplane subscribed channel=%s", b.channel)
	return nil
}

func (b *RedisBackplane) relay(payload string) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil || env.UserID == 0 || env.Event == "" {
		utils.Sugar.Warnf("realtime backplane: bad envelope: %v", err)
		return
	}
	frame, err := json.Marshal(Frame{Event: env.Event, Data: env.Data})
	if err != nil {
		return
	}
	if _, err := b.hub.Publish(Topic(env.UserID), frame); err != nil && !errors.Is(err, ErrNoSubscribers) {
		utils.Sugar.Warnf("realtime backplane relay user=%d: %v", env.UserID, err)
	}
}

// Publish sends an event for userID to every instance.
func (b *RedisBackplane) Publish(ctx context.Context, userID uint, event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(envelope{UserID: userID, Event: event, Data: data})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, msg).Err()
}
