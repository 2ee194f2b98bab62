package storage

import "path"

// PackageID identifies one buildable package release.
type PackageID struct {
	Name    string
	Version string
}

// String returns "<name>-<version>", the key used by the skip caches and the
// sandbox build directory.
func (id PackageID) String() string {
	return id.Name + "-" + id.Version
}

// Path returns "<name>/<version>", the suffix of every persisted prefix.
func (id PackageID) Path() string {
	return path.Join(id.Name, id.Version)
}

// TargetResult is the outcome of documenting a package for one target triple.
type TargetResult struct {
	Target    string `json:"target"`
	Succeeded bool   `json:"succeeded"`
	Output    string `json:"output,omitempty"`
}

// BuildResult is everything recorded about a single build attempt.
type BuildResult struct {
	// BuildID uniquely identifies the attempt.
	BuildID string
	// Output is the default target's combined build output.
	Output string
	// Succeeded reflects the default target invocation only.
	Succeeded   bool
	HasDocs     bool
	HasExamples bool

	RustcVersion        string
	DocsBuilderVersion  string
	OrchestratorVersion string

	Targets []TargetResult
}

// FailedTargets returns the targets whose invocation did not succeed.
func (r BuildResult) FailedTargets() []string {
	var out []string
	for _, t := range r.Targets {
		if !t.Succeeded {
			out = append(out, t.Target)
		}
	}
	return out
}
