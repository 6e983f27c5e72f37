package matching

import "errors"

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrScholarshipNotFound = errors.New("scholarship not found")
)
