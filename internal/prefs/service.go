package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

// VisitedFlag marks that the user has completed the first-run language
// picker. It maps the old per-device flag onto a per-account preference so
// the choice follows the user across devices.
const VisitedFlag = "virtualmandi_visited"

// Service reads and writes user preference flags.
type Service interface {
	HasVisited(ctx context.Context, userID uuid.UUID) (bool, error)
	MarkVisited(ctx context.Context, userID uuid.UUID) error
	SetLanguage(ctx context.Context, userID uuid.UUID, language string) error
	GetLanguage(ctx context.Context, userID uuid.UUID) (string, error)
}

type prefsClient interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	PrefsKey(userID, name string) string
}

type service struct {
	client prefsClient
}

// NewService constructs a preference service backed by the cache client.
func NewService(client prefsClient) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("cache client is required")
	}
	return &service{client: client}, nil
}

func (s *service) HasVisited(ctx context.Context, userID uuid.UUID) (bool, error) {
	value, err := s.client.Get(ctx, s.client.PrefsKey(userID.String(), VisitedFlag))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read visited flag")
	}
	return value == "true", nil
}

func (s *service) MarkVisited(ctx context.Context, userID uuid.UUID) error {
	key := s.client.PrefsKey(userID.String(), VisitedFlag)
	if err := s.client.Set(ctx, key, "true", 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write visited flag")
	}
	return nil
}

func (s *service) SetLanguage(ctx context.Context, userID uuid.UUID, language string) error {
	if !isSupportedLanguage(language) {
		return pkgerrors.New(pkgerrors.CodeValidation, "unsupported language: "+language)
	}
	key := s.client.PrefsKey(userID.String(), "language")
	if err := s.client.Set(ctx, key, language, 0); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write language preference")
	}
	return nil
}

func (s *service) GetLanguage(ctx context.Context, userID uuid.UUID) (string, error) {
	value, err := s.client.Get(ctx, s.client.PrefsKey(userID.String(), "language"))
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return DefaultLanguage, nil
		}
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read language preference")
	}
	return value, nil
}

// DefaultLanguage is served until the user picks one.
const DefaultLanguage = "en"

var supportedLanguages = []string{"en", "hi", "ta", "te", "kn", "mr"}

func isSupportedLanguage(language string) bool {
	for _, candidate := range supportedLanguages {
		if candidate == language {
			return true
		}
	}
	return false
}
