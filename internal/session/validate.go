package session

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	msgInvalidFormat = "Please enter a valid email address"
	msgWrongDomain   = "You are not part of our organization"
)

// ValidateEmail checks the address shape and, when domain is non-empty, that
// the host is domain or one of its subdomains.
func ValidateEmail(email, domain string) error {
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return &ValidationError{Reason: ReasonFormat, Message: msgInvalidFormat}
	}
	if domain == "" {
		return nil
	}
	host := strings.ToLower(email[strings.LastIndex(email, "@")+1:])
	domain = strings.ToLower(strings.TrimPrefix(domain, "@"))
	if host != domain && !strings.HasSuffix(host, "."+domain) {
		return &ValidationError{Reason: ReasonDomain, Message: msgWrongDomain}
	}
	return nil
}
