// Package orders lists a sales officer's recent orders and renders them for chat.
package orders

import (
	"context"
	"fmt"

	"github.com/soyeahso/salesbot/internal/domain"
	"github.com/soyeahso/salesbot/internal/logging"
)

// DefaultLimit caps how many orders a listing returns.
const DefaultLimit = 10

// Lister fetches orders owned by a user, newest first.
type Lister interface {
	RecentOrders(ctx context.Context, userID int64, limit int) ([]domain.Order, error)
}

// Service answers "my recent orders" queries.
type Service struct {
	orders Lister
	limit  int
	log    *logging.Logger
}

// NewService creates a Service returning at most limit orders per listing.
// Limits outside 1..DefaultLimit fall back to DefaultLimit.
func NewService(orders Lister, limit int, log *logging.Logger) *Service {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	return &Service{orders: orders, limit: limit, log: log.Sub("orders")}
}

// ListRecentOrders returns up to the configured number of orders owned by
// userID, most recent first. On error no partial result is returned.
func (s *Service) ListRecentOrders(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := s.orders.RecentOrders(ctx, userID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %d: %w", userID, err)
	}

	out := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		if o.SalesOfficerID != userID {
			s.log.Warn().
				Int64("userId", userID).
				Int64("orderId", o.ID).
				Int64("ownerId", o.SalesOfficerID).
				Msg("dropping order owned by another user")
			continue
		}
		out = append(out, o)
		if len(out) == s.limit {
			break
		}
	}
	return out, nil
}
