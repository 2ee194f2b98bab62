package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyPackage     = "package"
	KeyVersion     = "version"
	KeyTarget      = "target"
	KeyBuildID     = "build_id"
	KeyReleaseID   = "release_id"
	KeyPrefix      = "prefix"
	KeyPath        = "path"
	KeyState       = "state"
	KeyQueueLength = "queue_length"
	KeyAttempt     = "attempt"
	KeyOutcome     = "outcome"
	KeyStage       = "stage"
	KeyDurationMS  = "duration_ms"
	KeyBackend     = "backend"
	KeyContainer   = "container"
	KeyScript      = "script"
	KeyURL         = "url"
	KeySubject     = "subject"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Package(name string) slog.Attr    { return slog.String(KeyPackage, name) }
func Version(v string) slog.Attr       { return slog.String(KeyVersion, v) }
func Target(triple string) slog.Attr   { return slog.String(KeyTarget, triple) }
func BuildID(id string) slog.Attr      { return slog.String(KeyBuildID, id) }
func ReleaseID(id int64) slog.Attr     { return slog.Int64(KeyReleaseID, id) }
func Prefix(p string) slog.Attr        { return slog.String(KeyPrefix, p) }
func Path(p string) slog.Attr          { return slog.String(KeyPath, p) }
func State(s string) slog.Attr         { return slog.String(KeyState, s) }
func QueueLength(n int) slog.Attr      { return slog.Int(KeyQueueLength, n) }
func Attempt(n int) slog.Attr          { return slog.Int(KeyAttempt, n) }
func Outcome(o string) slog.Attr       { return slog.String(KeyOutcome, o) }
func Stage(name string) slog.Attr      { return slog.String(KeyStage, name) }
func DurationMS(ms float64) slog.Attr  { return slog.Float64(KeyDurationMS, ms) }
func Backend(name string) slog.Attr    { return slog.String(KeyBackend, name) }
func Container(name string) slog.Attr  { return slog.String(KeyContainer, name) }
func Script(s string) slog.Attr        { return slog.String(KeyScript, s) }
func URL(u string) slog.Attr           { return slog.String(KeyURL, u) }
func Subject(s string) slog.Attr       { return slog.String(KeySubject, s) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
