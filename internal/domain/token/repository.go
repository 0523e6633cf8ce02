package token

import "context"

// TokenRepository defines the persistence contract for tokens.
type TokenRepository interface {
	// Save persists a newly minted token.
	Save(ctx context.Context, t *Token) error

	// FindByValue retrieves a token by its opaque value.
	FindByValue(ctx context.Context, value string) (*Token, error)

	// Consume atomically marks the token consumed. It must succeed for
	// exactly one of any number of concurrent calls on the same token;
	// losers receive domain.ErrTokenAlreadyUsed.
	Consume(ctx context.Context, value string) error
}
