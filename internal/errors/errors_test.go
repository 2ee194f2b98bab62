package errors

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func TestBuildError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *BuildError
		expected string
	}{
		{
			name:     "error without cause",
			err:      New(CategoryConfig, SeverityFatal, "configuration invalid"),
			expected: "config (fatal): configuration invalid",
		},
		{
			name:     "error with cause",
			err:      Wrap(fmt.Errorf("file not found"), CategoryConfig, SeverityFatal, "failed to load config"),
			expected: "config (fatal): failed to load config: file not found",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := test.err.Error()
			if result != test.expected {
				t.Errorf("Error() = %q, want %q", result, test.expected)
			}
		})
	}
}

func TestBuildError_WithContext(t *testing.T) {
	err := New(CategoryFetch, SeverityWarning, "download failed").
		WithContext("package", "rand").
		WithContext("version", "0.3.14")

	if err.Context == nil {
		t.Fatal("Context should not be nil")
	}
	if err.Context["package"] != "rand" {
		t.Errorf("Context[package] = %v, want rand", err.Context["package"])
	}
	if err.Context["version"] != "0.3.14" {
		t.Errorf("Context[version] = %v, want 0.3.14", err.Context["version"])
	}
}

func TestIsCategory(t *testing.T) {
	manifestErr := ManifestError("rand", fmt.Errorf("bad toml"))
	storageErr := StorageError("add_build", fmt.Errorf("disk full"))
	standardErr := fmt.Errorf("standard error")

	tests := []struct {
		name     string
		err      error
		category ErrorCategory
		expected bool
	}{
		{"manifest error matches manifest category", manifestErr, CategoryManifest, true},
		{"manifest error doesn't match storage category", manifestErr, CategoryStorage, false},
		{"storage error matches storage category", storageErr, CategoryStorage, true},
		{"wrapped storage error still matches", fmt.Errorf("outer: %w", storageErr), CategoryStorage, true},
		{"standard error doesn't match any category", standardErr, CategoryConfig, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := IsCategory(test.err, test.category); got != test.expected {
				t.Errorf("IsCategory() = %v, want %v", got, test.expected)
			}
		})
	}
}

func TestRetryableAndCategoryHelpers(t *testing.T) {
	if !IsRetryable(FetchError("rand", fmt.Errorf("timeout"))) {
		t.Error("fetch errors should be retryable")
	}
	if IsRetryable(CleanupError("/tmp/x", fmt.Errorf("busy"))) {
		t.Error("cleanup errors should not be retryable")
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors should not be retryable")
	}
	if got := GetCategory(fmt.Errorf("plain")); got != CategoryInternal {
		t.Errorf("GetCategory(plain) = %s, want internal", got)
	}
	if got := GetCategory(ToolchainError("rustc ???", nil)); got != CategoryToolchain {
		t.Errorf("GetCategory(toolchain) = %s, want toolchain", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stdErrors.New("root cause")
	err := Wrap(cause, CategoryBuild, SeverityError, "outer")
	if !stdErrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
}

func TestCLIErrorAdapterExitCodes(t *testing.T) {
	a := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{fmt.Errorf("plain"), 1},
		{ValidationFailed("sandbox.user", "required"), 2},
		{ConfigNotFound("pkgdocs.yaml"), 7},
		{ManifestError("rand", nil), 6},
		{QueueError("lock", nil), 8},
		{ToolchainError("x", nil), 11},
		{InternalError("boom", nil), 10},
	}
	for _, c := range cases {
		if got := a.ExitCodeFor(c.err); got != c.want {
			t.Errorf("ExitCodeFor(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestCLIErrorAdapterFormat(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	if got := quiet.FormatError(ConfigNotFound("x.yaml")); got != "configuration file not found: x.yaml" {
		t.Errorf("unexpected quiet config message: %q", got)
	}
	if got := quiet.FormatError(QueueError("lock", fmt.Errorf("io"))); got != "queue: queue operation failed: lock" {
		t.Errorf("unexpected quiet queue message: %q", got)
	}
	verbose := NewCLIErrorAdapter(true, nil)
	if got := verbose.FormatError(QueueError("lock", fmt.Errorf("io"))); got != "queue (error): queue operation failed: io" {
		t.Errorf("unexpected verbose message: %q", got)
	}
}

func TestCLIErrorAdapterFormatSubject(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, nil)
	cases := []struct {
		err  error
		want string
	}{
		{ValidationFailed("sandbox.user", "required"), "validation failed: sandbox.user (required)"},
		{ManifestError("rand-0.3.14", fmt.Errorf("bad toml")), "manifest: failed to read build metadata: rand-0.3.14"},
		{CleanupError("/tmp/x", nil), "filesystem: cleanup failed: /tmp/x"},
		{New(CategoryBuild, SeverityError, "no subject"), "build: no subject"},
		{fmt.Errorf("wrapped: %w", StorageError("read file", nil)), "storage: storage operation failed: read file"},
	}
	for _, c := range cases {
		if got := quiet.FormatError(c.err); got != c.want {
			t.Errorf("FormatError(%v) = %q, want %q", c.err, got, c.want)
		}
	}
}

func TestCLIErrorAdapterHandleError(t *testing.T) {
	var stderr bytes.Buffer
	code := -1
	a := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.stderr = &stderr
	a.exit = func(c int) { code = c }

	a.HandleError(QueueError("lock", fmt.Errorf("io")))
	if code != 8 {
		t.Errorf("exit code = %d, want 8", code)
	}
	if got := stderr.String(); got != "queue: queue operation failed: lock\n" {
		t.Errorf("stderr = %q", got)
	}

	code = -1
	a.HandleError(nil)
	if code != -1 {
		t.Errorf("nil error must not exit, got %d", code)
	}
}
