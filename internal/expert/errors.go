package expert

import (
	"errors"
	"fmt"
)

// ErrNoToken means the edit page carried no anti-forgery token, or a submit
// was attempted without one. Tokens are short-lived in the legacy system;
// the fix is reloading, not retrying.
var ErrNoToken = errors.New("no anti-forgery token on edit page")

// StatusError is a non-success HTTP response from the legacy endpoint.
type StatusError struct {
	Code int
	URL  string
}

func (e StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}
