package ai

import (
	"context"
	"testing"
)

func TestAdvisor_MissingKeyDegradesToFixedMessage(t *testing.T) {
	advisor := NewAdvisor("")

	got := advisor.Advise(context.Background(), "Quel prix pour mes oignons ?", "aucun contexte")
	if got != MsgMissingConfig {
		t.Errorf("expected the missing-configuration message, got %q", got)
	}
}

func TestAdvisor_CallFailureDegradesToFixedMessage(t *testing.T) {
	// A syntactically valid but unusable key: the call fails fast and the
	// advisor must swallow the error.
	advisor := NewAdvisor("sk-invalid-key-for-tests")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := advisor.Advise(ctx, "Quel prix pour mes oignons ?", "aucun contexte")
	if got != MsgUnavailable {
		t.Errorf("expected the unavailable message, got %q", got)
	}
}
