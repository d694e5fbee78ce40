package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jonwraymond/embedcache/resilience"
)

type fakeNetError struct {
	timeout bool
}

func (e fakeNetError) Error() string   { return "network failure" }
func (e fakeNetError) Timeout() bool   { return e.timeout }
func (e fakeNetError) Temporary() bool { return false }

func TestClassify(t *testing.T) {
	plain := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want resilience.FailureKind
	}{
		{"network timeout", fakeNetError{timeout: true}, resilience.KindTimeout},
		{"connection failure", fakeNetError{}, resilience.KindUnavailable},
		{"wrapped network timeout", fmt.Errorf("post: %w", fakeNetError{timeout: true}), resilience.KindTimeout},
		{"unknown error", plain, resilience.KindNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if kind := resilience.KindOf(got); kind != tt.want {
				t.Errorf("KindOf(Classify()) = %v, want %v", kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("Classify() should wrap the original error")
			}
		})
	}
}

func TestClassify_PassesThrough(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) should be nil")
	}
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		if got := Classify(err); got != err {
			t.Errorf("Classify(%v) = %v, want it unchanged", err, got)
		}
	}
}
