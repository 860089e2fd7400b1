package auth

import "context"

// TokenVerifier turns an opaque bearer token into a user id or fails. The
// realtime handshake and the HTTP middleware both depend on this interface so
// tests can substitute a fixed-map verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}
