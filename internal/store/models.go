package store

import "time"

// User is an account in the key-value backend mode. In the Sheets mode the
// identity comes from Google and no row exists here.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	Timezone     string
	CreatedAt    time.Time
}
