package domain_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/latticeqcd/ensdb/pkg/domain"
)

func TestOpStatus_Terminal(t *testing.T) {
	for status, want := range map[domain.OpStatus]bool{
		domain.Running:   false,
		domain.Completed: true,
		domain.Failed:    true,
		domain.Canceled:  true,
	} {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestAsOpStatus(t *testing.T) {
	if _, err := domain.AsOpStatus("EXPLODED"); err == nil {
		t.Error("unknown status should not parse")
	}
	got, err := domain.AsOpStatus("COMPLETED")
	if err != nil {
		t.Fatal(err)
	}
	if got != domain.Completed {
		t.Errorf("got %s, want %s", got, domain.Completed)
	}
}

func TestNewErrInvalidOpStateChanging(t *testing.T) {
	err := domain.NewErrInvalidOpStateChanging(domain.Completed, domain.Running)
	if !errors.Is(err, domain.ErrInvalidOpStateChanging) {
		t.Error("constructor should wrap the sentinel")
	}
}

func TestPromotionError_message(t *testing.T) {
	plain := &domain.PromotionError{EnsembleId: 3, Err: errors.New("move failed")}
	if errors.Unwrap(plain) == nil || !strings.Contains(plain.Error(), "move failed") {
		t.Errorf("unexpected shape: %q", plain.Error())
	}

	double := &domain.PromotionError{
		EnsembleId:  3,
		Err:         errors.New("db update failed"),
		RollbackErr: errors.New("move-back failed"),
	}
	msg := double.Error()
	for _, want := range []string{"db update failed", "move-back failed"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q should mention %q", msg, want)
		}
	}
}
