package types

// ErrorWithCode is a typed failure carrying a stable code next to the
// human-readable message. All boundary operations fail with one of these.
type ErrorWithCode struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorWithCode) Error() string {
	return e.Message
}

func NewErrorWithCode(code, message string) *ErrorWithCode {
	return &ErrorWithCode{Code: code, Message: message}
}
