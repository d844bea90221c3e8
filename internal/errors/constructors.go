package errors

// Convenience functions for common error patterns

// Config errors

func ConfigInvalid(path string, cause error) *NoiseError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "configuration invalid").
		WithContext("path", path)
}

func ValidationFailed(field, reason string) *NoiseError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// Build pipeline errors

func TemplateMissing(name string, cause error) *NoiseError {
	return Wrap(cause, CategoryTemplate, SeverityFatal, "template not found").
		WithContext("template", name)
}

func FilesystemError(operation string, cause error) *NoiseError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "filesystem operation failed").
		WithContext("operation", operation)
}

func ArchiveError(file string, cause error) *NoiseError {
	return Wrap(cause, CategoryArchive, SeverityFatal, "archive failed").
		WithContext("file", file)
}

func HookFailed(hook, phase string, cause error) *NoiseError {
	return Wrap(cause, CategoryHook, SeverityFatal, "hook failed").
		WithContext("hook", hook).
		WithContext("phase", phase)
}

func BuildFailed(stage string, cause error) *NoiseError {
	return Wrap(cause, CategoryBuild, SeverityFatal, "build failed").
		WithContext("stage", stage)
}

// Internal errors

func InternalError(message string, cause error) *NoiseError {
	return Wrap(cause, CategoryInternal, SeverityFatal, message)
}
