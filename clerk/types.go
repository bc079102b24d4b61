package clerk

import "encoding/json"

// Status is the state of a sign-in or sign-up attempt
type Status string

// Attempt statuses
const (
	StatusComplete            Status = "complete"
	StatusNeedsIdentifier     Status = "needs_identifier"
	StatusNeedsFirstFactor    Status = "needs_first_factor"
	StatusNeedsSecondFactor   Status = "needs_second_factor"
	StatusNeedsNewPassword    Status = "needs_new_password"
	StatusMissingRequirements Status = "missing_requirements"
	StatusAbandoned           Status = "abandoned"
)

// Attempt is a sign-in or sign-up in progress
type Attempt struct {
	ID               string   `json:"id"`
	Object           string   `json:"object"`
	Status           Status   `json:"status"`
	CreatedSessionID string   `json:"created_session_id"`
	Identifier       string   `json:"identifier,omitempty"`
	EmailAddress     string   `json:"email_address,omitempty"`
	UnverifiedFields []string `json:"unverified_fields,omitempty"`
}

// Complete reports whether the attempt produced a session
func (a *Attempt) Complete() bool {
	return a.Status == StatusComplete
}

// EmailAddress is one address of a user
type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// User is a Clerk user
type User struct {
	ID                    string         `json:"id"`
	FirstName             string         `json:"first_name"`
	LastName              string         `json:"last_name"`
	Username              string         `json:"username"`
	PrimaryEmailAddressID string         `json:"primary_email_address_id"`
	EmailAddresses        []EmailAddress `json:"email_addresses"`
}

// DisplayName returns the first name, or "User" when none is set
func (u *User) DisplayName() string {
	if u == nil || u.FirstName == "" {
		return "User"
	}
	return u.FirstName
}

// PrimaryEmail returns the primary email address, if any
func (u *User) PrimaryEmail() string {
	for _, e := range u.EmailAddresses {
		if e.ID == u.PrimaryEmailAddressID {
			return e.EmailAddress
		}
	}
	return ""
}

// Token is a short-lived session JWT
type Token struct {
	JWT string `json:"jwt"`
}

// Session is a signed-in session of the client
type Session struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	User            *User  `json:"user"`
	LastActiveToken *Token `json:"last_active_token"`
}

// ClientState is the Clerk client with its sessions
type ClientState struct {
	ID                  string    `json:"id"`
	Sessions            []Session `json:"sessions"`
	LastActiveSessionID string    `json:"last_active_session_id"`
}

// ActiveSession returns the last active session, if any
func (c *ClientState) ActiveSession() *Session {
	if c == nil || c.LastActiveSessionID == "" {
		return nil
	}
	for i := range c.Sessions {
		if c.Sessions[i].ID == c.LastActiveSessionID {
			return &c.Sessions[i]
		}
	}
	return nil
}

// envelope wraps most Frontend API responses
type envelope struct {
	Response json.RawMessage `json:"response"`
	Client   *ClientState    `json:"client"`
}
