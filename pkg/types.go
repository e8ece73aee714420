package shared

import "time"

// User is a contributor record resolved from a submitted nickname.
type User struct {
	ID       string
	Nickname string
	Created  time.Time
}

// APIKey describes a known submission key. LogSubmit opts the key into
// request-level metric tagging.
type APIKey struct {
	Key       string
	LogSubmit bool
}
