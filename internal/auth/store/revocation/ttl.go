package revocation

import (
	"fmt"
	"time"

	"spendwise/pkg/platform/sentinel"
)

// Clock lets tests control expiry.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
