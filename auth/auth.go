package auth

import (
	"errors"
	"strings"
)

var (
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// AuthToken is a login session. Clients send it back as the access token
// "username:token", in the X-Access-Token header or the session cookie.
type AuthToken struct {
	Username string `json:"username,omitempty"`
	Token    string `json:"token,omitempty"`
}

func (t *AuthToken) AccessToken() string {
	return t.Username + ":" + t.Token
}

func ParseAccessToken(value string) (*AuthToken, error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, ErrInvalidAccessToken
	}

	return &AuthToken{Username: parts[0], Token: parts[1]}, nil
}

// Account is a dashboard login. Username is the user id that user tokens
// are filed under, so it may not contain a colon.
type Account struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Password  string `json:"password,omitempty"`
}

func (a *Account) Valid() bool {
	return a.Username != "" && a.Password != "" && !strings.Contains(a.Username, ":")
}
