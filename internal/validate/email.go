package validate

import (
	"regexp"
	"strings"
)

// EmailResult is the tri-state outcome of email validation. Empty input is
// neutral so the form shows no message while the user has typed nothing.
type EmailResult int

const (
	EmailEmpty EmailResult = iota
	EmailInvalid
	EmailValid
)

var emailRe = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// Email checks an address syntactically plus two semantic rules the regex
// alone would admit: no ".." anywhere, and no leading or trailing dot in
// the domain component.
func Email(s string) EmailResult {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmailEmpty
	}
	if !emailRe.MatchString(s) {
		return EmailInvalid
	}
	if strings.Contains(s, "..") {
		return EmailInvalid
	}
	at := strings.LastIndex(s, "@")
	dom := s[at+1:]
	if strings.HasPrefix(dom, ".") || strings.HasSuffix(dom, ".") {
		return EmailInvalid
	}
	return EmailValid
}
