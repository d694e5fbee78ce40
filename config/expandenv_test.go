package config

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${MISSING_B} c=${MISSING_A}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("ExpandEnvStrict() error = %v, want ErrMissingEnv", err)
	}
	if !strings.Contains(err.Error(), "MISSING_A, MISSING_B") {
		t.Fatalf("expected sorted missing var names in error, got: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	t.Setenv("X", "y")

	out, err := ExpandEnvStrict("$$${X}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "$y" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "$y")
	}
}

func TestExpandEnvStrict_BareVarIsLenient(t *testing.T) {
	out, err := ExpandEnvStrict("a=$EMBEDCACHE_SURELY_UNSET_VAR")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "a=" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "a=")
	}
}
