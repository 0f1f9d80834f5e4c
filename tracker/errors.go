package tracker

import "errors"

var (
	// ErrReelNotFound means the reel does not exist or belongs to another
	// tenant.
	ErrReelNotFound = errors.New("tracker: reel not found")

	// ErrReelQuotaExceeded means the tenant's tariff does not allow more
	// tracked reels.
	ErrReelQuotaExceeded = errors.New("tracker: reel quota exceeded")

	// ErrUserNotFound means the tenant ID resolves to no user.
	ErrUserNotFound = errors.New("tracker: user not found")

	// ErrEnqueueTooSoon means the tariff parse interval has not elapsed
	// since the tenant's last completed round.
	ErrEnqueueTooSoon = errors.New("tracker: parse interval not elapsed")
)
