package repository

import "errors"

// ErrDuplicateKey signals a unique-constraint violation. Services translate
// it into the appropriate domain error.
var ErrDuplicateKey = errors.New("duplicate key")
