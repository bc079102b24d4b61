package clerk

import "context"

// API defines the identity operations used by the session layer and screens
type API interface {
	SignIn(ctx context.Context, identifier, password string) (*Attempt, error)
	SignUp(ctx context.Context, email, password string) (*Attempt, error)
	PrepareEmailVerification(ctx context.Context, signUpID string) error
	AttemptEmailVerification(ctx context.Context, signUpID, code string) (*Attempt, error)
	SetActive(ctx context.Context, sessionID string) (*Session, error)
	SessionToken(ctx context.Context, sessionID string) (string, error)
	CurrentUser(ctx context.Context) (*User, error)
	SignOut(ctx context.Context) error
	ClientToken() string
}

var _ API = (*Client)(nil)
