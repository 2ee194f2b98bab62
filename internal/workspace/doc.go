// Package workspace manages scratch directories used while fetching packages.
//
// Directories are named like pkgdocs-docs-20251214-122336-123456 under a
// temporary root. A hard crash can leave them behind, so RemoveStale deletes
// every directory carrying TempDirPrefix.
package workspace
