package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
)

const pullTimeout = 7 * time.Second

// Poller performs the one-shot pull used when a live query cannot be
// established. It never retries on its own: a failed pull stays failed
// until a window change, a manual refresh, or a resubscription asks
// again. That bounds retry pressure against an unavailable backend.
type Poller struct {
	pull stream.PullQuerier
}

func NewPoller(pull stream.PullQuerier) *Poller {
	return &Poller{pull: pull}
}

// Fetch runs one pull equivalent to the failed live query: same user,
// window, ordering and limit.
func (p *Poller) Fetch(ctx context.Context, f stream.Filter) ([]core.TransactionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, pullTimeout)
	defer cancel()

	records, err := p.pull.PullQuery(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("fallback pull: %w", err)
	}
	return records, nil
}
