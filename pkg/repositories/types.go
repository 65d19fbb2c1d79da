package repositories

import "errors"

type ErrNotFound struct {
	Key string
}

func (e *ErrNotFound) Error() string {
	if e.Key == "" {
		return "not found"
	}
	return "not found: " + e.Key
}

func IsNotFound(err error) bool {
	var notFound *ErrNotFound
	return errors.As(err, &notFound)
}
