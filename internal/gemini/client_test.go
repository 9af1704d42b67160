package gemini

import (
	"context"
	"errors"
	"testing"
)

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(context.Background(), "", "", "")
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Fatalf("New with empty key = %v, want ErrAPIKeyMissing", err)
	}
}
