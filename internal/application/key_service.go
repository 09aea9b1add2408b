package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// KeyService issues, lists and revokes integration API keys.
type KeyService struct {
	state  *State
	clock  *IDClock
	now    func() time.Time
	secret SecretGenerator
	logger *slog.Logger
}

// NewKeyService constructs a key service with the provided dependencies.
func NewKeyService(state *State, clock *IDClock, now func() time.Time, secret SecretGenerator) *KeyService {
	return NewKeyServiceWithLogger(state, clock, now, secret, nil)
}

// NewKeyServiceWithLogger constructs a key service with a specified logger.
func NewKeyServiceWithLogger(state *State, clock *IDClock, now func() time.Time, secret SecretGenerator, logger *slog.Logger) *KeyService {
	if now == nil {
		now = time.Now
	}
	if clock == nil {
		clock = NewIDClock(now)
	}
	if secret == nil {
		secret = NewSecretGenerator(SecretSourceCrypto)
	}
	return &KeyService{state: state, clock: clock, now: now, secret: secret, logger: defaultLogger(logger)}
}

func (s *KeyService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "KeyService", operation, attrs...)
}

// GenerateKey issues a new key labelled label. The returned record carries the
// full secret; later reads only expose the masked form.
func (s *KeyService) GenerateKey(ctx context.Context, label string) (generated GeneratedKey, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("KeyService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "GenerateKey")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to generate api key", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("key_id", generated.Key.ID).InfoContext(ctx, "api key generated",
			"masked", generated.Key.MaskedKey(),
		)
	}()

	trimmed := strings.TrimSpace(label)
	if trimmed == "" {
		vErr := &ValidationError{}
		vErr.add("label", "is required")
		err = vErr
		return
	}

	random, secretErr := s.secret()
	if secretErr != nil {
		err = fmt.Errorf("generate secret: %w", secretErr)
		return
	}

	key := APIKey{
		ID:        KeyID(s.clock.Stamp()),
		Key:       KeyPrefix + random,
		Label:     trimmed,
		CreatedAt: s.now().UTC().Truncate(time.Millisecond),
	}
	err = s.state.commit(ctx, func(next *Snapshot) change {
		next.Keys = append([]APIKey{key}, next.Keys...)
		return changeKeys
	})
	if err != nil {
		return
	}
	generated.Key = key
	return
}

// RevokeKey removes a key immediately once the caller confirmed. Unknown ids
// are a silent no-op.
func (s *KeyService) RevokeKey(ctx context.Context, params RevokeKeyParams) (revoked bool, err error) {
	if s == nil || s.state == nil {
		err = fmt.Errorf("KeyService is not configured")
		return
	}

	logger := s.loggerWith(ctx, "RevokeKey", "key_id", params.KeyID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to revoke api key", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "api key revoke processed", "revoked", revoked)
	}()

	if !params.Confirmed {
		err = ErrConfirmationRequired
		return
	}

	err = s.state.commit(ctx, func(next *Snapshot) change {
		for i, key := range next.Keys {
			if key.ID == params.KeyID {
				next.Keys = append(next.Keys[:i], next.Keys[i+1:]...)
				revoked = true
				return changeKeys
			}
		}
		return 0
	})
	if err != nil {
		revoked = false
	}
	return
}

// ListKeys returns every key in its masked form, newest first.
func (s *KeyService) ListKeys(ctx context.Context) ([]KeyView, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("KeyService is not configured")
	}
	keys := s.state.Keys()
	views := make([]KeyView, 0, len(keys))
	for _, key := range keys {
		views = append(views, KeyView{
			ID:        key.ID,
			Label:     key.Label,
			Masked:    key.MaskedKey(),
			CreatedAt: key.CreatedAt,
			LastUsed:  key.LastUsed,
		})
	}
	return views, nil
}
