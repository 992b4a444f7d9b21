package deps

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsKindSentinel(t *testing.T) {
	tests := []struct {
		kind     Kind
		sentinel error
	}{
		{KindUnsupportedPlatform, ErrUnsupportedPlatform},
		{KindDownload, ErrDownload},
		{KindExtraction, ErrExtraction},
		{KindValidation, ErrValidation},
		{KindFileSystem, ErrFileSystem},
		{KindInstallation, ErrInstallation},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", newError(tt.kind, "op", errors.New("cause")))
			if !errors.Is(err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", err, tt.sentinel)
			}
			if errors.Is(err, ErrInstallInProgress) {
				t.Error("unexpected match with unrelated sentinel")
			}
			if KindOf(err) != tt.kind {
				t.Errorf("KindOf() = %v, want %v", KindOf(err), tt.kind)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("unexpected HTTP status 404 (Not Found)")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with_dependency",
			err:  &Error{Kind: KindInstallation, Dependency: NameYtDlp, Op: "install", Err: cause},
			want: "install ytdlp: unexpected HTTP status 404 (Not Found)",
		},
		{
			name: "without_dependency",
			err:  &Error{Kind: KindDownload, Op: "download", Err: cause},
			want: "download: unexpected HTTP status 404 (Not Found)",
		},
		{
			name: "no_cause",
			err:  &Error{Kind: KindValidation, Op: "validate"},
			want: "validate",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorUnwrapPreservesCause(t *testing.T) {
	inner := newError(KindDownload, "download", errors.New("boom"))
	outer := &Error{Kind: KindInstallation, Dependency: NameFFmpeg, Op: "install", Err: inner}

	if !errors.Is(outer, ErrInstallation) || !errors.Is(outer, ErrDownload) {
		t.Error("both the outer and the inner kind should match")
	}
	if KindOf(outer) != KindInstallation {
		t.Errorf("KindOf() = %v, want outermost kind", KindOf(outer))
	}
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("KindOf(plain error) should be KindUnknown")
	}
}
