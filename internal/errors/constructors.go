package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *BuildError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *BuildError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func ManifestError(pkg string, cause error) *BuildError {
	return Wrap(cause, CategoryManifest, SeverityError, "failed to read build metadata").
		WithContext("package", pkg)
}

func FetchError(pkg string, cause error) *BuildError {
	return WrapRetryable(cause, CategoryFetch, SeverityError, "failed to fetch package").
		WithContext("package", pkg)
}

func SandboxError(command string, cause error) *BuildError {
	return Wrap(cause, CategorySandbox, SeverityError, "sandbox command could not be run").
		WithContext("command", command)
}

func StorageError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryStorage, SeverityError, "storage operation failed").
		WithContext("operation", operation)
}

func CleanupError(path string, cause error) *BuildError {
	return Wrap(cause, CategoryFileSystem, SeverityError, "cleanup failed").
		WithContext("path", path)
}

func ToolchainError(banner string, cause error) *BuildError {
	return Wrap(cause, CategoryToolchain, SeverityError, "unrecognised toolchain version").
		WithContext("banner", banner)
}

func QueueError(operation string, cause error) *BuildError {
	return Wrap(cause, CategoryQueue, SeverityError, "queue operation failed").
		WithContext("operation", operation)
}

// Internal errors

func InternalError(message string, cause error) *BuildError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
