package domain

import "errors"

var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrSnapshotNotReady   = errors.New("snapshot not ready")
	ErrFeedEmpty          = errors.New("latency feed has no batch")
	ErrFeedUnavailable    = errors.New("latency feed unavailable")
	ErrSubscriptionClosed = errors.New("subscription closed")
	ErrInvalidProvider    = errors.New("invalid provider")
)
