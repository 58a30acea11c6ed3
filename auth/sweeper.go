package auth

import (
	"context"
	"time"

	"github.com/andrebq/lostminer/internal/logutil"
)

// Sweep removes expired codes every interval until ctx is done
func Sweep(ctx context.Context, codes CodeStore, interval time.Duration) {
	log := logutil.GetOrDefault(ctx).With().Str("component", "code-sweeper").Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := codes.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("Unable to remove expired codes")
				continue
			}
			if n > 0 {
				log.Debug().Int("removed", n).Msg("Expired codes removed")
			}
		}
	}
}
