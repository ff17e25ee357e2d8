package handlers

const (
	maxBodyBytes = 1 << 20

	ErrKindInternal     = "internal"
	ErrKindUnauthorized = "unauthorized"
	ErrKindForbidden    = "forbidden"
	ErrKindRateLimited  = "rate_limited"

	ErrInvalidJSON         = "Invalid JSON body"
	ErrUnauthorized        = "Unauthorized"
	ErrForbidden           = "Forbidden"
	ErrTooManyRequests     = "Too many requests"
	ErrInternalServerError = "Internal server error"
)
