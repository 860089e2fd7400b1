package auth

import (
	"context"

	fbauth "firebase.google.com/go/v4/auth"

	"wayfarer/pkg/errors"
)

type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{
		client: client,
	}
}

func (f *FirebaseVerifier) Verify(ctx context.Context, token string) (string, error) {
	result, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return "", errors.Unauthorized("Invalid or expired token", err)
	}

	return result.UID, nil
}
