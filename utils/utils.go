package utils

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

func Authenticate(hash, password string) bool {
	p := []byte(password)
	h := []byte(hash)
	if err := bcrypt.CompareHashAndPassword(h, p); err != nil {
		return false
	}

	return true
}

func GenerateToken() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return strings.ReplaceAll(u.String(), "-", ""), nil
}

// NormalizeAccountID strips the dashes of a customer id written as 123-456-7890.
func NormalizeAccountID(id string) string {
	return strings.ReplaceAll(strings.TrimSpace(id), "-", "")
}
