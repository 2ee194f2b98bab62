// Package docbuilder builds the documentation of one package version inside
// the sandbox and records the result.
//
// A build attempt fetches the exact version, runs the documentation tool once
// per resolved target, stores the sources and any generated documentation,
// writes the release and build rows and finally removes every local and
// sandbox copy. Build failures are data, not errors: they are recorded with
// Succeeded=false and BuildPackage returns OutcomeFailed with a nil error.
package docbuilder
