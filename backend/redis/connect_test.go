package redis

import (
	"context"
	"errors"
	"testing"
)

func TestOpenRejectsBadURL(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, ""); !errors.Is(err, ErrEmptyConnectionURL) {
		t.Fatalf("empty url: got %v", err)
	}
	if _, err := Open(ctx, "http://localhost:6379"); !errors.Is(err, ErrFailedToParseURL) {
		t.Fatalf("wrong scheme: got %v", err)
	}
	if _, err := Open(ctx, "redis://localhost:notaport"); !errors.Is(err, ErrFailedToParseURL) {
		t.Fatalf("unparsable url: got %v", err)
	}
}

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, ErrNilClient) {
		t.Fatalf("expected ErrNilClient, got %v", err)
	}
}

func TestKeyPrefix(t *testing.T) {
	p := &Redis{prefix: "app"}
	if got := p.key("user:1"); got != "app:user:1" {
		t.Fatalf("prefixed key = %q", got)
	}
	p.prefix = ""
	if got := p.key("user:1"); got != "user:1" {
		t.Fatalf("unprefixed key = %q", got)
	}
}
