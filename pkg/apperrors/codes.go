package apperrors

// ErrorCode identifies a class of application error.
type ErrorCode string

const (
	// System and database failures
	CodeInternalError ErrorCode = "INTERNAL_ERROR"
	CodeDatabaseError ErrorCode = "DATABASE_ERROR"

	// Object storage failures
	CodeUploadFailed        ErrorCode = "UPLOAD_FAILED"
	CodeStorageDeleteFailed ErrorCode = "STORAGE_DELETE_FAILED"

	// Request-level errors
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
)
