package catalog

import "errors"

var ErrIncompleteRange = errors.New("both start and end are required")
