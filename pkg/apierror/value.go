package apierror

import "fmt"

// ValueError is returned when a parameter is passed a value outside what the
// operation accepts, before any request is made.
type ValueError struct {
	Param string
	Value any
	Msg   string
}

// UnexpectedValue returns a ValueError for param.
func UnexpectedValue(param string, value any, msg string) error {
	return &ValueError{Param: param, Value: value, Msg: msg}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrUnexpectedValue, e.Param, e.Value, e.Msg)
}

func (e *ValueError) Unwrap() error {
	return ErrUnexpectedValue
}
