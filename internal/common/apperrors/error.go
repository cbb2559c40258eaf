// Package apperrors provides chainable application errors. Each error can carry an
// HTTP status code and a short machine-readable code, and can wrap any number of
// other errors while keeping errors.Is working across the whole chain.
package apperrors

// Error is an application error. All mutating methods return a copy so package
// level sentinels can be shared safely.
type Error interface {
	error
	Unwrap() error

	New(msg string) Error                  // child error with a new message
	Msg(msg string) Error                  // new message, wraps the current error
	MsgErr(msg string, err ...error) Error // new message, wraps the current error and err
	Err(err ...error) Error                // same message, wraps err
	SetExpandError(bool) Error             // ErrorAll includes wrapped errors when set
	SetStatusCode(int) Error
	StatusCode() int
	SetCode(string) Error
	Code() string
	Prefix(string) Error
	Suffix(string) Error
	ErrorAll() string
	UnwrapAll() []error
}

// CodeOf returns the machine-readable code of err if it is an Error, or the
// fallback otherwise.
func CodeOf(err error, fallback string) string {
	if ae, ok := err.(Error); ok && ae.Code() != "" {
		return ae.Code()
	}
	return fallback
}

// StatusOf returns the HTTP status code attached to err, or fallback.
func StatusOf(err error, fallback int) int {
	if ae, ok := err.(Error); ok && ae.StatusCode() != 0 {
		return ae.StatusCode()
	}
	return fallback
}
