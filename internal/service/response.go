package service

// ErrorCode classifies a failed operation so callers do not have to parse
// the human-readable messages.
type ErrorCode string

const (
	CodeUserNotFound      ErrorCode = "user_not_found"
	CodeItemNotFound      ErrorCode = "item_not_found"
	CodeInvalidArgument   ErrorCode = "invalid_argument"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodePersistenceFailed ErrorCode = "persistence_failed"
	CodeCancelled         ErrorCode = "cancelled"
	CodeUnexpected        ErrorCode = "unexpected"
)

// Response is the uniform envelope returned by every service operation.
// Data is meaningful only on success; Code and Errors only on failure.
// Errors preserves the order in which the violations were detected.
type Response[T any] struct {
	IsSuccessful bool
	Data         T
	Code         ErrorCode
	Errors       []string
}

func Success[T any](data T) Response[T] {
	return Response[T]{IsSuccessful: true, Data: data}
}

func Failure[T any](code ErrorCode, errs ...string) Response[T] {
	return Response[T]{IsSuccessful: false, Code: code, Errors: errs}
}
