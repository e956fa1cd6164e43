package models

import (
	"net/url"
	"regexp"
)

type IdentifierKind int

const (
	KindGrant IdentifierKind = iota
	KindResearcher
)

var grantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
var researcherIDPattern = regexp.MustCompile(`^[A-Za-z0-9 ,'-]+$`)

// ValidateIdentifier decodes any percent-encoding in raw and checks the
// result against the character class of the given kind. Every identifier
// taken from a path segment or request body goes through here before it
// reaches the ledger.
func ValidateIdentifier(raw string, kind IdentifierKind) (string, error) {
	decoded, err := url.PathUnescape(raw)
	if err != nil || decoded == "" {
		return "", ErrInvalidIdentifier
	}
	pattern := grantIDPattern
	if kind == KindResearcher {
		pattern = researcherIDPattern
	}
	if !pattern.MatchString(decoded) {
		return "", ErrInvalidIdentifier
	}
	return decoded, nil
}
