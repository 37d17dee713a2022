package browser

import "errors"

// ErrSessionLost is returned when the target site's login form appears
// mid-run and re-authentication itself fails.
var ErrSessionLost = errors.New("browser: session lost and reauthentication failed")

// ErrPopupTimeout is returned when no popup target appears within the
// configured timeout after clicking the create-PDF control.
var ErrPopupTimeout = errors.New("browser: popup did not appear before timeout")
