package token

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	ErrMalformedResponse = errors.New("malformed response")
)

// UserToken is one MCC linkage of a user as returned by /mymccs.
type UserToken struct {
	TopAccountID string `json:"topAccountId"`
	Email        string `json:"email"`
	UserID       string `json:"userId"`
}

// Line is the text shown for the token on the page.
func (t UserToken) Line() string {
	return fmt.Sprintf("MCC: %s email: %s User: %s", t.TopAccountID, t.Email, t.UserID)
}

var requiredFields = []string{"topAccountId", "email", "userId"}

// Parse builds a UserToken from a raw JSON object.
func Parse(raw gjson.Result) (UserToken, error) {
	if !raw.IsObject() {
		return UserToken{}, fmt.Errorf("%w: token is not an object", ErrMalformedResponse)
	}

	values := make([]string, len(requiredFields))
	for i, field := range requiredFields {
		v := raw.Get(field)
		switch v.Type {
		case gjson.String, gjson.Number:
			values[i] = v.String()
		default:
			return UserToken{}, fmt.Errorf("%w: missing %s", ErrMalformedResponse, field)
		}
	}

	return UserToken{
		TopAccountID: values[0],
		Email:        values[1],
		UserID:       values[2],
	}, nil
}

// ParseList parses a /mymccs payload. present is false for an empty or falsy
// payload, in which case there is nothing to render.
func ParseList(data []byte) (tokens []UserToken, present bool, err error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, false, fmt.Errorf("%w: invalid json", ErrMalformedResponse)
	}

	res := gjson.ParseBytes(data)
	if isFalsy(res) {
		return nil, false, nil
	}
	if !res.IsArray() {
		return nil, false, fmt.Errorf("%w: expected a list of tokens", ErrMalformedResponse)
	}

	items := res.Array()
	tokens = make([]UserToken, 0, len(items))
	for i, item := range items {
		t, err := Parse(item)
		if err != nil {
			return nil, false, fmt.Errorf("token %d: %w", i, err)
		}
		tokens = append(tokens, t)
	}

	return tokens, true, nil
}

func isFalsy(res gjson.Result) bool {
	switch res.Type {
	case gjson.Null, gjson.False:
		return true
	case gjson.Number:
		return res.Num == 0
	case gjson.String:
		return res.Str == ""
	}
	return false
}
