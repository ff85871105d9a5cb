package auth

import (
	"strings"
	"unicode"

	"github.com/starosta-app/starosta-back/internal/models"
)

const minPasswordLength = 8

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {},
	"123456789": {}, "1234567890": {}, "qwerty123": {}, "qwertyuiop": {},
	"11111111": {}, "iloveyou": {}, "abc12345": {}, "football": {},
	"baseball": {}, "welcome1": {}, "sunshine": {}, "princess": {},
	"admin123": {}, "letmein1": {}, "trustno1": {}, "passw0rd": {},
}

// ValidatePassword applies the registration password policy and returns
// every rule the password breaks, in a stable order.
func ValidatePassword(password string, u *models.User) []string {
	var errs []string

	if similarToUser(password, u) {
		errs = append(errs, "The password is too similar to the personal information.")
	}
	if len([]rune(password)) < minPasswordLength {
		errs = append(errs, "This password is too short. It must contain at least 8 characters.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		errs = append(errs, "This password is too common.")
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
		errs = append(errs, "This password is entirely numeric.")
	}
	return errs
}

func similarToUser(password string, u *models.User) bool {
	if u == nil || password == "" {
		return false
	}
	p := strings.ToLower(password)
	local, _, _ := strings.Cut(u.Email, "@")
	for _, attr := range []string{local, u.FirstName, u.LastName, u.Username} {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if len(attr) < 3 {
			continue
		}
		if p == attr || (strings.Contains(p, attr) && len(attr)*2 >= len(p)) {
			return true
		}
	}
	return false
}
