// Package manifest collects the information needed to build a crate's
// documentation the same way the hosted service does.
//
// The build metadata lives in the optional [package.metadata.docs.rs] table of
// Cargo.toml:
//
//	[package.metadata.docs.rs]
//	features = [ "feature1", "feature2" ]
//	all-features = true
//	no-default-features = true
//	default-target = "x86_64-unknown-linux-gnu"
//	targets = [ "x86_64-apple-darwin", "x86_64-pc-windows-msvc" ]
//	rustc-args = [ "--example-rustc-arg" ]
//	rustdoc-args = [ "--example-rustdoc-arg" ]
//
// Every field is optional. Typical use:
//
//	md, err := manifest.FromCrateRoot(sourceDir)
//	if err != nil {
//		return err
//	}
//	plan := md.Plan()
//	for _, target := range plan.AllTargets() {
//		args := append(plan.CargoArgs, "--target", target)
//		// run cargo with args and plan.Env
//	}
package manifest
