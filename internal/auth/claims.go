package auth

import "github.com/golang-jwt/jwt/v5"

// Claims is the Supabase Auth access token payload.
// See: https://supabase.com/docs/guides/auth/jwts
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email"`
	Role        string `json:"role"` // "authenticated" or "anon"
	SessionID   string `json:"session_id"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// GetUserID returns the user ID from the subject claim
func (c *Claims) GetUserID() string {
	return c.Subject
}
