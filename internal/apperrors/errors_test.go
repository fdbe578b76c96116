package apperrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeRuleNotFound, "rule x not found"))
	if !errors.Is(err, ErrRuleNotFound) {
		t.Fatalf("expected rule not found match")
	}
	if errors.Is(err, ErrRuleExists) {
		t.Fatalf("did not expect rule exists match")
	}
	if CodeOf(err) != CodeRuleNotFound {
		t.Fatalf("unexpected code %s", CodeOf(err))
	}
}

func TestIsHonoursKind(t *testing.T) {
	disallowed := WithKind(CodeRoleResolution, KindDisallowed, "managed role", nil)
	if !errors.Is(disallowed, ErrRoleResolution) {
		t.Fatalf("expected generic role resolution match")
	}
	if !errors.Is(disallowed, ErrRoleDisallowed) {
		t.Fatalf("expected disallowed match")
	}
	plain := New(CodeRoleResolution, "role lookup failed")
	if errors.Is(plain, ErrRoleDisallowed) {
		t.Fatalf("kindless error must not match disallowed")
	}
}

func TestNameFormatIsValidation(t *testing.T) {
	err := New(CodeNameFormat, "bad name")
	if !errors.Is(err, ErrValidation) || !errors.Is(err, ErrNameFormat) {
		t.Fatalf("expected name format to match both sentinels")
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Fatalf("expected unknown code for plain error")
	}
}
