package authz

import (
	"time"
)

// Session identifies the acting user for one request. The legacy dashboard
// read the current email out of browser localStorage from anywhere in the
// code; here the session is an explicit value threaded into every service
// call, and nothing else carries identity.
type Session struct {
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}
