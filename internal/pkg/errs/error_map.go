/*
Package errs provides custom error types and application-level error code constants.

This file defines the map from error codes to the CustomError struct, used to standardize
HTTP responses and internal error handling.
*/
package errs

import "net/http"

// errorMap stores the detailed CustomError struct corresponding to every application error code.
// The key is the error code (int), and the value contains the user message and HTTP status code.
var errorMap = map[int]CustomError{
	// 1xxx: General Request Handling Errors
	ErrInvalidParams:        {Code: ErrInvalidParams, Message: "Invalid request parameters.", Status: http.StatusBadRequest},
	ErrUnsupportedMediaType: {Code: ErrUnsupportedMediaType, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:    {Code: ErrInvalidJSONFormat, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:   {Code: ErrExtraContentInBody, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrRateLimitExceeded:    {Code: ErrRateLimitExceeded, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},

	// 2xxx: Conversation and Group Business Logic Errors
	ErrChatNotFound:   {Code: ErrChatNotFound, Message: "Chat not found.", Status: http.StatusNotFound},
	ErrGroupNotFound:  {Code: ErrGroupNotFound, Message: "Chat group not found.", Status: http.StatusNotFound},
	ErrEmptyMemberSet: {Code: ErrEmptyMemberSet, Message: "A chat group needs at least one member.", Status: http.StatusBadRequest},
	ErrMessageTooLong: {Code: ErrMessageTooLong, Message: "Message is too long.", Status: http.StatusBadRequest},

	// 3xxx: User Identity Errors
	ErrUserNotFound:       {Code: ErrUserNotFound, Message: "Account not found.", Status: http.StatusNotFound},
	ErrEmailTaken:         {Code: ErrEmailTaken, Message: "Email is already registered.", Status: http.StatusConflict},
	ErrInvalidCredentials: {Code: ErrInvalidCredentials, Message: "Incorrect email or password.", Status: http.StatusUnauthorized},

	// 5xxx: Internal System Errors
	ErrUnknown:          {Code: ErrUnknown, Message: "Something went wrong. Please try again.", Status: http.StatusInternalServerError},
	ErrStoreUnavailable: {Code: ErrStoreUnavailable, Message: "Service temporarily unavailable. Please try again later.", Status: http.StatusServiceUnavailable},
}
