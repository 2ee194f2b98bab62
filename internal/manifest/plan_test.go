package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWithoutMetadataSection(t *testing.T) {
	plan, err := Resolve(`
[package]
name = "rand"
version = "0.3.14"
`)
	require.NoError(t, err)

	assert.Equal(t, HostTarget, plan.DefaultTarget)
	var want []string
	for _, target := range DefaultTargets {
		if target != HostTarget {
			want = append(want, target)
		}
	}
	assert.Equal(t, want, plan.OtherTargets)
	assert.Equal(t, []string{"doc", "--lib", "--no-deps"}, plan.CargoArgs)
	assert.Equal(t, map[string]string{"RUSTFLAGS": "", "RUSTDOCFLAGS": "", "DOCS_RS": "1"}, plan.Env)
}

func TestResolveIsPure(t *testing.T) {
	text := `
[package.metadata.docs.rs]
features = ["x", "y"]
targets = ["b-target", "a-target", "c-target", "a-target"]
rustdoc-args = ["--cfg", "docsrs"]
`
	first, err := Resolve(text)
	require.NoError(t, err)
	for range 10 {
		again, err := Resolve(text)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
	assert.Equal(t, "b-target", first.DefaultTarget)
	assert.Equal(t, []string{"a-target", "c-target"}, first.OtherTargets)
	assert.Equal(t, []string{"b-target", "a-target", "c-target"}, first.AllTargets())
	assert.Equal(t, "--cfg docsrs", first.Env["RUSTDOCFLAGS"])
}

func TestPlanNeverContainsDefaultInOthers(t *testing.T) {
	inputs := []*Metadata{
		{},
		{TargetList: []string{}},
		{TargetList: []string{HostTarget, HostTarget}},
		{DefaultTarget: "x86_64-apple-darwin"},
		{DefaultTarget: "x86_64-apple-darwin", TargetList: []string{"x86_64-apple-darwin"}},
	}
	for _, md := range inputs {
		plan := md.Plan()
		assert.NotContains(t, plan.OtherTargets, plan.DefaultTarget)
	}
}
