package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	pkgerrors "github.com/virtualmandi/mandi-backend/pkg/errors"
)

type fakePrefsClient struct {
	values map[string]string
}

func newFakePrefsClient() *fakePrefsClient {
	return &fakePrefsClient{values: map[string]string{}}
}

func (f *fakePrefsClient) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakePrefsClient) Get(_ context.Context, key string) (string, error) {
	value, ok := f.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return value, nil
}

func (f *fakePrefsClient) PrefsKey(userID, name string) string {
	return "mandi:prefs:" + userID + ":" + name
}

func TestVisitedFlagLifecycle(t *testing.T) {
	client := newFakePrefsClient()
	svc, err := NewService(client)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	userID := uuid.New()

	visited, err := svc.HasVisited(context.Background(), userID)
	if err != nil {
		t.Fatalf("has visited: %v", err)
	}
	if visited {
		t.Fatal("fresh user must not be marked visited")
	}

	if err := svc.MarkVisited(context.Background(), userID); err != nil {
		t.Fatalf("mark visited: %v", err)
	}
	visited, err = svc.HasVisited(context.Background(), userID)
	if err != nil {
		t.Fatalf("has visited: %v", err)
	}
	if !visited {
		t.Fatal("expected visited after marking")
	}
}

func TestLanguagePreference(t *testing.T) {
	client := newFakePrefsClient()
	svc, _ := NewService(client)
	userID := uuid.New()

	language, err := svc.GetLanguage(context.Background(), userID)
	if err != nil {
		t.Fatalf("get language: %v", err)
	}
	if language != DefaultLanguage {
		t.Fatalf("expected default %q, got %q", DefaultLanguage, language)
	}

	if err := svc.SetLanguage(context.Background(), userID, "hi"); err != nil {
		t.Fatalf("set language: %v", err)
	}
	language, _ = svc.GetLanguage(context.Background(), userID)
	if language != "hi" {
		t.Fatalf("expected hi, got %q", language)
	}

	err = svc.SetLanguage(context.Background(), userID, "xx")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unsupported language, got %v", err)
	}
}
