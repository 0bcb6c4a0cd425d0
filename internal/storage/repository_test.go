package storage

import (
	"context"
	"strings"
	"testing"
)

type nopRepo struct{}

func (nopRepo) Close()                             {}
func (nopRepo) EnsureSchema(context.Context) error { return nil }
func (nopRepo) InsertRecords(context.Context, string, []RecordRow) (int64, error) {
	return 0, nil
}

func TestNew_MissingKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	if err == nil || !strings.Contains(err.Error(), "missing Kind") {
		t.Fatalf("expected missing Kind error, got %v", err)
	}
}

func TestNew_UnsupportedKind(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{Kind: "oracle"})
	if err == nil || !strings.Contains(err.Error(), "unsupported kind") {
		t.Fatalf("expected unsupported kind error, got %v", err)
	}
}

func TestRegister_RoundTrip(t *testing.T) {
	t.Parallel()

	Register("fake", func(ctx context.Context, cfg Config) (Repository, error) {
		return nopRepo{}, nil
	})

	repo, err := New(context.Background(), Config{Kind: "fake", DSN: "ignored"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := repo.(nopRepo); !ok {
		t.Fatalf("expected the registered factory's repository, got %T", repo)
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	t.Parallel()

	Register("dup", func(ctx context.Context, cfg Config) (Repository, error) {
		return nopRepo{}, nil
	})

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on duplicate registration")
		}
	}()
	Register("dup", func(ctx context.Context, cfg Config) (Repository, error) {
		return nopRepo{}, nil
	})
}

func TestRegister_EmptyKindPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on empty kind")
		}
	}()
	Register("", func(ctx context.Context, cfg Config) (Repository, error) {
		return nopRepo{}, nil
	})
}

func TestRegister_NilFactoryPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic on nil factory")
		}
	}()
	Register("nilfactory", nil)
}
