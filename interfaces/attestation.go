package interfaces

import "context"

// ProfileFetcher retrieves the free-text profile of an external identity.
// found is false when the identity does not exist.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, handle string) (profile string, found bool, err error)
}

// IdentityVerifier decides whether an external identity has published proof
// of controlling a key.
type IdentityVerifier interface {
	Verify(ctx context.Context, handle string, key PublicKey) (bool, error)
}
