package entity

// OAuthProvider names a third-party identity provider used for popup sign-in.
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google.com"
)

// Identity is an authenticated principal as reported by the identity provider.
// A nil *Identity means nobody is signed in.
type Identity struct {
	UID           string
	Email         *string
	EmailVerified bool
	DisplayName   *string
}

// StringPtr returns nil for an empty string, a pointer to s otherwise.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed string or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
