package notify

import (
	"context"
	"log"

	"inkpress/api/internal/store"
)

type notificationStore interface {
	InsertNotification(ctx context.Context, n store.Notification) error
}

// Service persists fan-out results. Delivery is best-effort: the comment
// the notifications describe is already durable by the time Deliver runs,
// so a failed insert is logged and skipped rather than surfaced.
type Service struct {
	store notificationStore
}

func NewService(st notificationStore) *Service {
	return &Service{store: st}
}

// Deliver computes and stores the notifications for one new comment and
// returns the ones that were persisted.
func (s *Service) Deliver(ctx context.Context, comment store.Comment, post store.Post, actor store.User, parent *store.User) []store.Notification {
	delivered := make([]store.Notification, 0, 2)
	for _, n := range FanOut(comment, post, actor, parent) {
		if err := s.store.InsertNotification(ctx, n); err != nil {
			log.Printf("notify: insert notification for %s: %v", n.RecipientID, err)
			continue
		}
		delivered = append(delivered, n)
	}
	return delivered
}
