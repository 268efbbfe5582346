package globals

import (
	"context"
)

var (
	JwtSecret = []byte("your_secret_key") // Replace with a secure secret key
)

// Context keys
type ContextKey string

const RoleKey ContextKey = "role"
const UserIDKey ContextKey = "userId"

// Scheduling policy defaults. Minutes unless noted.
const (
	DefaultDayStart      = 540 // 09:00
	DefaultDuration      = 60
	DurationStep         = 15
	TravelBuffer         = 15
	ClosureMargin        = 15
	HoursLookupLimit     = 3
	HoursLookupAttempts  = 3
	HoursLookupBaseDelay = 500 // milliseconds
)

var Ctx = context.Background()
