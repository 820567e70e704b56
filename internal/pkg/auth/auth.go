package auth

import (
	"errors"
	"regexp"
)

// ErrNotAuthenticated is returned when the request carries no usable
// identity claim.
var ErrNotAuthenticated = errors.New("user not authenticated")

// Subject claims are Cognito-style UUIDs.
var subjectPattern = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateSubject checks the identity claim an upstream authorizer supplied
// and returns it unchanged. Missing, empty, or malformed claims fail with
// ErrNotAuthenticated. No side effects.
func ValidateSubject(subject string) (string, error) {
	if subject == "" || !subjectPattern.MatchString(subject) {
		return "", ErrNotAuthenticated
	}
	return subject, nil
}
