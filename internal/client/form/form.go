// Package form checks login and signup input before it is sent.
package form

import (
	"regexp"
	"strings"

	"github.com/atinyakov/sessiongate/internal/models"
)

// Field names used as keys in Errors.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldRole     = "role"
)

// MinPasswordLen is the shortest accepted password.
const MinPasswordLen = 6

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// Errors maps a field name to its message. Empty means valid.
type Errors map[string]string

// OK reports whether no field failed.
func (e Errors) OK() bool { return len(e) == 0 }

// Login holds the login form.
type Login struct {
	Email    string
	Password string
}

// Validate checks the email format and password length.
func (f Login) Validate() Errors {
	errs := Errors{}
	checkEmail(errs, f.Email)
	checkPassword(errs, f.Password)
	return errs
}

// Signup holds the signup form.
type Signup struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
}

// Validate checks every signup field. An empty role is accepted and means
// USER.
func (f Signup) Validate() Errors {
	errs := Errors{}
	if strings.TrimSpace(f.Name) == "" {
		errs[FieldName] = "Name is required."
	}
	checkEmail(errs, f.Email)
	checkPassword(errs, f.Password)
	if f.Role != "" && !f.Role.Valid() {
		errs[FieldRole] = "Role must be USER or ADMIN."
	}
	return errs
}

func checkEmail(errs Errors, email string) {
	switch {
	case strings.TrimSpace(email) == "":
		errs[FieldEmail] = "Email is required."
	case !emailPattern.MatchString(email):
		errs[FieldEmail] = "Enter a valid email address."
	}
}

func checkPassword(errs Errors, password string) {
	switch {
	case strings.TrimSpace(password) == "":
		errs[FieldPassword] = "Password is required."
	case len(password) < MinPasswordLen:
		errs[FieldPassword] = "Password must be at least 6 characters."
	}
}
