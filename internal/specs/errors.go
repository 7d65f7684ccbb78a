package specs

import "errors"

// ErrInvalidTable is returned when a spec table is malformed.
var ErrInvalidTable = errors.New("invalid spec table")
