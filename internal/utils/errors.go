package utils

type AppError struct {
	Code    string
	Message string
	Origin  error // Original error that caused this error, if any
}

func (appErr *AppError) Error() string {
	if appErr.Origin != nil {
		return appErr.Message + ": " + appErr.Origin.Error()
	}
	return appErr.Message
}

// Standard error codes for the application
const (
	// Resource errors
	ErrNotFound     = "NOT_FOUND"
	ErrDuplicate    = "DUPLICATE"
	ErrInvalidInput = "INVALID_INPUT"

	// Authentication errors
	ErrUnauthorized = "UNAUTHORIZED"
	ErrInvalidToken = "INVALID_TOKEN"
	ErrNoSession    = "NO_SESSION"

	// Conversation/message errors
	ErrConversationNotFound = "CONVERSATION_NOT_FOUND"
	ErrEmptyContent         = "EMPTY_CONTENT"
	ErrNotTracking          = "NOT_TRACKING"

	// Transport errors
	ErrTransportNotReady = "TRANSPORT_NOT_READY"
	ErrTransportClosed   = "TRANSPORT_CLOSED"
	ErrFetchFailed       = "FETCH_FAILED"

	// Actor communication errors
	ErrActorTimeout = "ACTOR_TIMEOUT"

	// Rate limiting
	ErrTooManyRequests = "TOO_MANY_REQUESTS"

	ErrDatabase = "database_error"
)

// Error creation helper functions
func NewAppError(code string, message string, originalErr error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Origin:  originalErr,
	}
}

// Specific error creators for common cases
func NewConversationNotFoundError(conversationID string) *AppError {
	return &AppError{
		Code:    ErrConversationNotFound,
		Message: "Conversation not found: " + conversationID,
	}
}

func NewInvalidTokenError(reason string) *AppError {
	return &AppError{
		Code:    ErrInvalidToken,
		Message: "Invalid session token: " + reason,
	}
}

func NewTransportNotReadyError() *AppError {
	return &AppError{
		Code:    ErrTransportNotReady,
		Message: "Transport connection is not established",
	}
}

func NewEmptyContentError() *AppError {
	return &AppError{
		Code:    ErrEmptyContent,
		Message: "Message content must not be empty",
	}
}

func NewFetchFailedError(what string, originalErr error) *AppError {
	return &AppError{
		Code:    ErrFetchFailed,
		Message: "Failed to fetch " + what,
		Origin:  originalErr,
	}
}

func NewActorTimeoutError(actorName string) *AppError {
	return &AppError{
		Code:    ErrActorTimeout,
		Message: "Actor communication timeout: " + actorName,
	}
}

// Helper method to check if an error is of a specific type
func IsErrorCode(err error, code string) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}

// AppErrorToHTTPStatus converts an AppError code to an HTTP status code.
func AppErrorToHTTPStatus(errorCode string) int {
	switch errorCode {
	case ErrNotFound, ErrConversationNotFound:
		return 404 // http.StatusNotFound
	case ErrInvalidInput, ErrEmptyContent:
		return 400 // http.StatusBadRequest
	case ErrUnauthorized, ErrInvalidToken, ErrNoSession:
		return 401 // http.StatusUnauthorized
	case ErrDuplicate:
		return 409 // http.StatusConflict
	case ErrTooManyRequests:
		return 429 // http.StatusTooManyRequests
	case ErrDatabase, ErrActorTimeout, ErrTransportNotReady, ErrTransportClosed, ErrFetchFailed:
		return 500 // http.StatusInternalServerError
	default:
		return 500 // http.StatusInternalServerError for unknown errors
	}
}
