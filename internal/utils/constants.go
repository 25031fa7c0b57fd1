package utils

import "time"

// Application Constants
const (
	AppName    = "GoDispatch"
	AppVersion = "1.0.0"

	// Response statuses
	StatusSuccess = "success"
	StatusError   = "error"

	// Common error messages
	ErrValidationFailed = "Validation failed"
	ErrInternalServer   = "Internal server error"
	ErrUnauthorized     = "Unauthorized"
	ErrForbidden        = "Forbidden"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Job constants
	OTPLength          = 4
	TrackingCodeLength = 10

	// Matching constants
	DefaultSearchRadiusKM = 5.0
	MinSearchRadiusKM     = 0.5
	MaxSearchRadiusKM     = 50.0
	MatchCeilingKM        = 50.0
	MaxCandidates         = 50

	// Location pings older than this are ignored by the matcher
	LocationStaleness = 10 * time.Minute

	// Surge pricing
	MinSurgeMultiplier = 1.0
	MaxSurgeMultiplier = 5.0

	// Rating
	MinRating = 1.0
	MaxRating = 5.0

	// Effect dispatch
	EffectTimeout = 10 * time.Second

	// Subscription
	SubscriptionSweepInterval = 5 * time.Minute
	TrialGrantLockTTL         = 30 * time.Second
)
