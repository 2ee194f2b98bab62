package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var (
	// ErrParse is returned when the manifest is not valid TOML.
	ErrParse = errors.New("failed to parse manifest")
	// ErrNoManifest is returned by FromCrateRoot when no manifest file exists.
	ErrNoManifest = errors.New("no Cargo.toml")
)

// manifestNames are tried in order; the original manifest wins over the one
// normalised by cargo publish.
var manifestNames = []string{"Cargo.toml.orig", "Cargo.toml"}

// Metadata is the build configuration a crate declares for its documentation.
//
// Slice fields distinguish unset (nil) from explicitly empty.
type Metadata struct {
	// Features to pass on to cargo. By default only default features are built.
	Features []string

	// AllFeatures passes --all-features to cargo.
	AllFeatures bool

	// NoDefaultFeatures passes --no-default-features to cargo.
	NoDefaultFeatures bool

	// See Targets.
	DefaultTarget string
	TargetList    []string

	// RustcArgs are extra command line arguments for rustc.
	RustcArgs []string

	// RustdocArgs are extra command line arguments for rustdoc.
	RustdocArgs []string
}

// FromCrateRoot reads the manifest from a crate source directory.
//
// If both Cargo.toml and Cargo.toml.orig exist, Cargo.toml.orig takes precedence.
func FromCrateRoot(sourceDir string) (*Metadata, error) {
	for _, name := range manifestNames {
		p := filepath.Join(sourceDir, name)
		if _, err := os.Stat(p); err == nil {
			return FromManifest(p)
		}
	}
	return nil, fmt.Errorf("%s: %w", sourceDir, ErrNoManifest)
}

// FromManifest reads the given TOML file and parses the build metadata.
func FromManifest(path string) (*Metadata, error) {
	// #nosec G304 - path is the manifest inside an extracted crate
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNoManifest)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(string(buf))
}

// Parse parses manifest text. A manifest without a [package.metadata.docs.rs]
// table yields the default Metadata.
func Parse(text string) (*Metadata, error) {
	var doc map[string]any
	if err := toml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	md := &Metadata{}
	table := lookupTable(doc, "package", "metadata", "docs", "rs")
	if table == nil {
		return md, nil
	}

	md.Features = stringList(table["features"])
	if v, ok := table["all-features"].(bool); ok {
		md.AllFeatures = v
	}
	if v, ok := table["no-default-features"].(bool); ok {
		md.NoDefaultFeatures = v
	}
	if v, ok := table["default-target"].(string); ok {
		md.DefaultTarget = v
	}
	md.TargetList = stringList(table["targets"])
	md.RustcArgs = stringList(table["rustc-args"])
	md.RustdocArgs = stringList(table["rustdoc-args"])
	return md, nil
}

func lookupTable(doc map[string]any, path ...string) map[string]any {
	cur := doc
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

// stringList converts a TOML array of strings. Anything else, including an
// array holding a non-string, is treated as unset.
func stringList(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out = append(out, s)
	}
	return out
}

// CargoArgs returns the arguments that should be passed to cargo.
//
// This always includes "doc --lib --no-deps" and never includes --target.
func (m *Metadata) CargoArgs() []string {
	args := []string{"doc", "--lib", "--no-deps"}

	if m.Features != nil {
		args = append(args, "--features", strings.Join(m.Features, " "))
	}
	if m.AllFeatures {
		args = append(args, "--all-features")
	}
	if m.NoDefaultFeatures {
		args = append(args, "--no-default-features")
	}
	return args
}

// Environment variable names exported to every build.
const (
	EnvRustFlags    = "RUSTFLAGS"
	EnvRustdocFlags = "RUSTDOCFLAGS"
	// EnvDetect lets build scripts detect that they run under this service.
	EnvDetect = "DOCS_RS"
)

// EnvironmentVariables returns the variables to set when building this crate.
// All keys are always present.
func (m *Metadata) EnvironmentVariables() map[string]string {
	return map[string]string{
		EnvRustFlags:    strings.Join(m.RustcArgs, " "),
		EnvRustdocFlags: strings.Join(m.RustdocArgs, " "),
		EnvDetect:       "1",
	}
}
