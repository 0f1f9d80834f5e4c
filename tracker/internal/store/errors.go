package store

import "errors"

var (
	// ErrDuplicateReel means the tenant already tracks this URL.
	ErrDuplicateReel = errors.New("store: reel already tracked for this user")
)
