package market

import (
	"context"
	"log"
	"time"
)

// UserLister enumerates users whose prices should be refreshed.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]string, error)
}

// PriceRefresher refreshes stored lot prices for one user.
type PriceRefresher interface {
	RefreshPrices(ctx context.Context, userID string) error
}

// Refresher walks all users once per interval and refreshes their stored
// prices. Users are processed sequentially; a failing user is logged and
// skipped. In-flight fetches are not aborted mid-user, the loop stops at
// the next tick after ctx is cancelled.
type Refresher struct {
	users    UserLister
	tracker  PriceRefresher
	interval time.Duration
}

// NewRefresher creates a Refresher with the given cadence.
func NewRefresher(users UserLister, tracker PriceRefresher, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Refresher{users: users, tracker: tracker, interval: interval}
}

// Start blocks, refreshing until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context) {
	log.Printf("price refresher started (interval: %s)", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("price refresher shutting down...")
			return
		case <-ticker.C:
			r.refreshAll(ctx)
		}
	}
}

func (r *Refresher) refreshAll(ctx context.Context) {
	userIDs, err := r.users.ListUserIDs(ctx)
	if err != nil {
		log.Printf("failed to list users for price refresh: %v", err)
		return
	}
	for _, userID := range userIDs {
		if err := r.tracker.RefreshPrices(ctx, userID); err != nil {
			log.Printf("price refresh failed for user %s: %v", userID, err)
		}
	}
}
