package verification

import "time"

const (
	// DefaultBaseWait is the cooldown unit between verification resends.
	DefaultBaseWait = 10 * time.Second
	// DefaultMaxWait caps the resend cooldown.
	DefaultMaxWait = time.Hour
	// maxWaitThreshold is the resend count at which the cap applies.
	maxWaitThreshold = 5
)

// Cooldown maps the number of resends already issued to the wait imposed
// before another secret may be sent. The first send is never throttled and
// the wait grows linearly with the resend count until it hits the cap.
func Cooldown(resendCount int64, baseWait, maxWait time.Duration) time.Duration {
	if baseWait <= 0 {
		baseWait = DefaultBaseWait
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	if resendCount >= maxWaitThreshold {
		return maxWait
	}
	if resendCount <= 0 {
		return 0
	}

	wait := time.Duration(resendCount) * baseWait
	if wait > maxWait {
		return maxWait
	}
	return wait
}
