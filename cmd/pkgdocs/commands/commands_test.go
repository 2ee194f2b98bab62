package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pkgdocs/internal/docbuilder"
	derrors "git.home.luguber.info/inful/pkgdocs/internal/errors"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

func init() {
	color.NoColor = true
}

func writeConfig(t *testing.T) *CLI {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`paths:
  sources: %[1]s/sources
  destination: %[1]s/docs
  temp_root: %[1]s/tmp
storage:
  database: %[1]s/pkgdocs.db
  objects: %[1]s/objects
queue:
  backend: sqlite
  max_attempts: 3
`, dir)
	path := filepath.Join(dir, "pkgdocs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))
	return &CLI{Config: path}
}

func TestQueueCommands(t *testing.T) {
	root := writeConfig(t)
	var out bytes.Buffer
	g := &Global{Out: &out}

	require.NoError(t, (&QueueAddCmd{Name: "rand", Version: "0.3.14", Priority: 2}).Run(g, root))
	require.NoError(t, (&QueueAddCmd{Name: "serde", Version: "1.0.0"}).Run(g, root))
	assert.Contains(t, out.String(), "queued rand-0.3.14 (priority 2)")

	out.Reset()
	require.NoError(t, (&QueueCountCmd{}).Run(g, root))
	assert.Equal(t, "2 pending\n", out.String())

	out.Reset()
	require.NoError(t, (&QueuePendingCmd{}).Run(g, root))
	assert.Equal(t, "serde 1.0.0 priority=0 attempts=0\nrand 0.3.14 priority=2 attempts=0\n", out.String())

	out.Reset()
	require.NoError(t, (&QueueLockCmd{}).Run(g, root))
	require.NoError(t, (&QueueCountCmd{}).Run(g, root))
	assert.Equal(t, "queue locked\n2 pending (locked)\n", out.String())

	out.Reset()
	require.NoError(t, (&QueueUnlockCmd{}).Run(g, root))
	require.NoError(t, (&QueueCountCmd{}).Run(g, root))
	assert.Equal(t, "queue unlocked\n2 pending\n", out.String())
}

func TestQueueCommandMissingConfig(t *testing.T) {
	root := &CLI{Config: filepath.Join(t.TempDir(), "missing.yaml")}
	err := (&QueueCountCmd{}).Run(&Global{Out: &bytes.Buffer{}}, root)
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryConfig))
}

func TestMetadataCommand(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(`[package]
name = "demo"

[package.metadata.docs.rs]
features = ["serde"]
default-target = "x86_64-apple-darwin"
targets = ["x86_64-apple-darwin", "i686-pc-windows-msvc"]
rustdoc-args = ["--cfg", "docsrs"]
`), 0o600))

	var out bytes.Buffer
	require.NoError(t, (&MetadataCmd{Path: dir}).Run(&Global{Out: &out}, nil))
	assert.Equal(t, `default target: x86_64-apple-darwin
other targets:  i686-pc-windows-msvc
cargo args:     doc --lib --no-deps --features serde
environment:
  DOCS_RS="1"
  RUSTDOCFLAGS="--cfg docsrs"
  RUSTFLAGS=""
`, out.String())
}

func TestMetadataCommandMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte("[package"), 0o600))

	err := (&MetadataCmd{Path: path}).Run(&Global{Out: &bytes.Buffer{}}, nil)
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryManifest))
}

func TestBuildCmdValidate(t *testing.T) {
	assert.NoError(t, (&BuildCmd{Name: "rand", Version: "0.3.14"}).Validate())
	assert.NoError(t, (&BuildCmd{List: "crates.txt"}).Validate())
	assert.Error(t, (&BuildCmd{Name: "rand"}).Validate())
	assert.Error(t, (&BuildCmd{}).Validate())
	assert.Error(t, (&BuildCmd{Name: "rand", Version: "1", List: "crates.txt"}).Validate())
}

type unavailableStore struct{}

func (unavailableStore) Connect(context.Context) (storage.Conn, error) {
	return nil, errors.New("database unavailable")
}

func TestBuildCmdListCountsErrors(t *testing.T) {
	list := filepath.Join(t.TempDir(), "crates.txt")
	require.NoError(t, os.WriteFile(list, []byte("# world\nrand 0.3.14\nserde@1.0.0\n"), 0o600))
	builder := docbuilder.New(docbuilder.Options{}, unavailableStore{}, nil, nil)

	var out bytes.Buffer
	require.NoError(t, (&BuildCmd{List: list}).run(t.Context(), &Global{Out: &out}, builder))
	assert.Equal(t, "built 0, skipped 0, failed 0, errors 2\n", out.String())
}

func TestBuildCmdInvalidList(t *testing.T) {
	list := filepath.Join(t.TempDir(), "crates.txt")
	require.NoError(t, os.WriteFile(list, []byte("rand\n"), 0o600))
	builder := docbuilder.New(docbuilder.Options{}, unavailableStore{}, nil, nil)

	err := (&BuildCmd{List: list}).run(t.Context(), &Global{Out: &bytes.Buffer{}}, builder)
	require.Error(t, err)
	assert.True(t, derrors.IsCategory(err, derrors.CategoryValidation))
}

func TestCLIParsing(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("pkgdocs"), kong.Vars{"version": "test"})
	require.NoError(t, err)

	kctx, err := parser.Parse([]string{"-c", "custom.yaml", "queue", "add", "rand", "0.3.14", "-p", "5"})
	require.NoError(t, err)
	assert.Equal(t, "queue add <name> <version>", kctx.Command())
	assert.Equal(t, "custom.yaml", cli.Config)
	assert.Equal(t, "rand", cli.Queue.Add.Name)
	assert.Equal(t, 5, cli.Queue.Add.Priority)
}

func TestCLIParsingBuildRequiresPackage(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("pkgdocs"), kong.Vars{"version": "test"})
	require.NoError(t, err)

	_, err = parser.Parse([]string{"build", "rand"})
	assert.Error(t, err)
}

func TestPrintOutcome(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printOutcome(&out, "rand", "0.3.14", docbuilder.OutcomeSkipped))
	assert.Equal(t, "rand-0.3.14: skipped\n", out.String())
	assert.Equal(t, green, outcomeColor(docbuilder.OutcomeBuilt))
	assert.Equal(t, red, outcomeColor(docbuilder.OutcomeFailed))
}
