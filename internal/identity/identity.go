// Package identity is the in-process stand-in for the external
// identity provider: it issues cookie sessions and resolves the admin
// role claim. Password and transport auth are the provider's problem,
// not this service's.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// User is an authenticated principal. Admin is a role claim resolved
// once at sign-in; business logic must check the claim, never compare
// email strings.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Admin bool   `json:"admin"`
}

// userNamespace makes user ids a stable function of the email, so the
// same person maps to the same unlock records across sessions.
var userNamespace = uuid.MustParse("6e45b0c1-5a0f-4d3b-9a62-48c19f1e7a10")

func userID(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(strings.ToLower(email))).String()
}
