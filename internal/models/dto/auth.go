package dto

import (
	"net/http"
	"strings"
)

// RegisterForm mirrors the registration form fields.
type RegisterForm struct {
	Email           string
	Username        string
	Password        string
	ConfirmPassword string
}

// LoginForm mirrors the login form fields.
type LoginForm struct {
	Username string
	Password string
}

// AccountForm carries the admin-side account edit fields. Blank fields are
// left unchanged.
type AccountForm struct {
	Email    string
	Username string
	Password string
}

// ParseRegisterForm reads a RegisterForm from a parsed request.
func ParseRegisterForm(r *http.Request) RegisterForm {
	return RegisterForm{
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Username:        strings.TrimSpace(r.PostFormValue("username")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirm_password"),
	}
}

// ParseLoginForm reads a LoginForm from a parsed request.
func ParseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}

// ParseAccountForm reads an AccountForm from a parsed request.
func ParseAccountForm(r *http.Request) AccountForm {
	return AccountForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Username: strings.TrimSpace(r.PostFormValue("username")),
		Password: r.PostFormValue("password"),
	}
}
