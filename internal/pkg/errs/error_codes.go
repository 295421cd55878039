/*
Package errs provides custom error types and application-level error code constants.

These error codes identify specific business or system errors both internally
within the server and in responses to clients.
*/
package errs

// 1xxx: General Request Handling Errors
const (
	// ErrInvalidParams indicates that request parameter validation failed.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that the request header Content-Type is not supported.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that the request body JSON format is incorrect (e.g., syntax error).
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates that the request body contained extra content after valid JSON data.
	ErrExtraContentInBody = 1004

	// ErrRateLimitExceeded indicates that the request rate has exceeded the set limit.
	ErrRateLimitExceeded = 1005
)

// 2xxx: Conversation and Group Business Logic Errors
const (
	// ErrChatNotFound indicates that no conversation matches the given id or user pair.
	ErrChatNotFound = 2101

	// ErrGroupNotFound indicates that no group matches the given id.
	ErrGroupNotFound = 2102

	// ErrEmptyMemberSet indicates a group operation was attempted with no members.
	ErrEmptyMemberSet = 2103

	// ErrMessageTooLong indicates that the message content exceeded the maximum length limit.
	ErrMessageTooLong = 2201
)

// 3xxx: User Identity Errors
const (
	// ErrUserNotFound indicates that no user matches the given id or email.
	ErrUserNotFound = 3101

	// ErrEmailTaken indicates that a user with the same email is already registered.
	ErrEmailTaken = 3102

	// ErrInvalidCredentials indicates that the email/credential pair did not match a user.
	ErrInvalidCredentials = 3103
)

// 5xxx: Internal System Errors
const (
	// ErrUnknown represents an unclassified, general server internal error.
	ErrUnknown = 5000

	// ErrStoreUnavailable indicates the document store could not be reached.
	// It is fatal to the current request and never silently swallowed.
	ErrStoreUnavailable = 5001
)
