package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	minNameLength        = 2
	minPasswordLength    = 6
	minTitleLength       = 2
	minDescriptionLength = 5
)

// validEmail accepts a bare addr-spec ("ann@x.com"), not "Ann <ann@x.com>".
func validEmail(s string) bool {
	if s == "" || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

func minLen(s string, n int) bool {
	return utf8.RuneCountInString(s) >= n
}

func checkEmail(v *ValidationError, email string) {
	if !validEmail(email) {
		v.add("email", "invalid email format")
	}
}

func checkNewPassword(v *ValidationError, field, password string) {
	if !minLen(password, minPasswordLength) {
		v.add(field, "password must be at least 6 characters")
	}
}

func checkName(v *ValidationError, name string) {
	if !minLen(strings.TrimSpace(name), minNameLength) {
		v.add("name", "name must be at least 2 characters")
	}
}
