package dashboard

import (
	"errors"

	"ts-dashboard/internal/gateway"
)

// Validation error kinds, matched with errors.Is.
var (
	ErrNoTargetSelected = errors.New("no target selected")
	ErrNoDataToExport   = errors.New("no data to export")
	ErrAdminOnly        = errors.New("comparison is admin only")
	ErrUnknownTarget    = errors.New("target not in navigation")
	ErrInvalidFilters   = errors.New("invalid filters")
)

var validationMessages = map[error]string{
	ErrNoTargetSelected: "請先選擇轉運站",
	ErrNoDataToExport:   "沒有數據可導出",
	ErrAdminOnly:        "只有管理員可以查看比較數據",
	ErrUnknownTarget:    "無效的轉運站代碼",
	ErrInvalidFilters:   "篩選條件無效",
}

// ValidationError is a user action rejected before any network call.
type ValidationError struct {
	Kind    error
	Message string
	Err     error
}

func newValidationError(kind, cause error) *ValidationError {
	msg := validationMessages[kind]
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return &ValidationError{Kind: kind, Message: msg, Err: cause}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Message returns the banner text for an error returned by the controller.
// Backend application errors are shown verbatim.
func Message(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	if errors.Is(err, gateway.ErrApplication) {
		return gateway.Message(err)
	}
	return "加載數據失敗: " + err.Error()
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
