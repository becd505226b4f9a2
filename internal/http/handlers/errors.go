// Package handlers translates HTTP requests into service calls and service
// results into JSON. Every failure uses the ErrorResponse envelope with one
// of the codes below; clients branch on the code, never on the message.
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "fully_claimed",
//	  "message": "code is fully claimed"
//	}
package handlers

const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeConflict           = "conflict"
	ErrCodeInternal           = "internal_error"
	ErrCodeUnavailable        = "service_unavailable"
	ErrCodeMethodNotAllowed   = "method_not_allowed"
	ErrCodeFullyClaimed       = "fully_claimed"
	ErrCodeInsufficientPoints = "insufficient_points"
)
