package cli

import "errors"

var (
	errNotLoggedIn = errors.New("not logged in")
	errUsage       = errors.New("usage")
	errEmptySecret = errors.New("empty password")
)
