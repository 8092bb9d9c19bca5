package realtime

import (
	"context"
	"time"

	"github.com/cppla/fitquest/utils"
)

const publishTimeout = 2 * time.Second

// Notifier delivers events to a user's sessions, through the backplane when
// one is configured and straight to the local hub otherwise.
type Notifier struct {
	hub       *Hub
	backplane *RedisBackplane
}

// NewNotifier builds a Notifier. backplane may be nil.
func NewNotifier(hub *Hub, backplane *RedisBackplane) *Notifier {
	return &Notifier{hub: hub, backplane: backplane}
}

// PublishToUser is best effort. Errors only tell the caller the event went nowhere.
func (n *Notifier) PublishToUser(userID uint, event string, payload any) error {
	if n.backplane != nil {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		err := n.backplane.Publish(ctx, userID, event, payload)
		if err == nil {
			return nil
		}
		utils.Sugar.Warnf("realtime backplane publish failed, delivering locally: %v", err)
	}
	return n.hub.PublishToUser(userID, event, payload)
}
