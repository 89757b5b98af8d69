package service

import (
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > 255 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
