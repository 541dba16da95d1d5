package reconcile

import "errors"

var ErrEndBeforeStart = errors.New("return time must be after pickup time")
