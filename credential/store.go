package credential

import (
	"context"
	"errors"
)

// ErrInvalidPair is returned when saving a pair without an access token.
var ErrInvalidPair = errors.New("credential pair requires an access token")

// Store persists the credential pair under two well-known keys.
// Implementations must write and clear both tokens as one unit.
type Store interface {
	// Load returns the persisted pair; missing keys yield empty tokens, not an error.
	Load(ctx context.Context) (*Pair, error)
	// Save replaces both tokens.
	Save(ctx context.Context, pair *Pair) error
	// Clear removes both tokens.
	Clear(ctx context.Context) error
}

func validate(pair *Pair) error {
	if !pair.HasAccess() {
		return ErrInvalidPair
	}
	return nil
}
