package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/draftkeeper/internal/cryptox"
)

// Sealed encrypts values before handing them to an inner Storage. Reads of
// values that fail to decrypt return an error.
type Sealed struct {
	inner Storage
	key   []byte
}

// NewSealed derives the encryption key from passphrase and sessionID.
func NewSealed(inner Storage, passphrase, sessionID string) *Sealed {
	return &Sealed{
		inner: inner,
		key:   cryptox.DeriveKey([]byte(passphrase), cryptox.SaltFor(sessionID)),
	}
}

func (s *Sealed) GetItem(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.inner.GetItem(ctx, key)
	if err != nil || sealed == nil {
		return nil, err
	}
	plain, err := cryptox.Open(s.key, sealed)
	if err != nil {
		return nil, fmt.Errorf("failed to open session item[%s]: %w", key, err)
	}
	return plain, nil
}

func (s *Sealed) SetItem(ctx context.Context, key string, value []byte) error {
	sealed, err := cryptox.Seal(s.key, value)
	if err != nil {
		return fmt.Errorf("failed to seal session item[%s]: %w", key, err)
	}
	return s.inner.SetItem(ctx, key, sealed)
}

func (s *Sealed) RemoveItem(ctx context.Context, key string) error {
	return s.inner.RemoveItem(ctx, key)
}

func (s *Sealed) Clear(ctx context.Context) error {
	return s.inner.Clear(ctx)
}
