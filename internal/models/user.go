package models

// Principal represents an authenticated human.
// Only one principal exists at a time per running client.
type Principal struct {
	// ID is the stable, opaque identifier assigned by the identity provider.
	// It is never shown to the user.
	ID string `json:"id"`

	// Email is the login email.
	Email string `json:"email"`

	// DisplayName is the full name taken from the user's profile.
	DisplayName string `json:"displayName,omitempty"`
}

// UserProfile is the users/{uid} document.
// A profile exists if and only if the account was registered through the
// registration flow; sign-in refuses principals lacking one.
type UserProfile struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`

	// CreatedAt is an RFC 3339 timestamp written by the client.
	CreatedAt string `json:"createdAt"`
}

// Account is the identity provider's credential record for a principal.
type Account struct {
	// ID is the unique identifier for the account (UUID format).
	ID string

	// Email is the login email (unique).
	Email string

	// PasswordHash is the bcrypt hash of the password.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64
}

// Principal returns the client-visible identity of the account.
func (a *Account) Principal() *Principal {
	return &Principal{ID: a.ID, Email: a.Email}
}
