package helpers

import (
	"crypto/rand"
	"encoding/base64"
)

// GenToken returns n random bytes, base64url encoded without padding.
func GenToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// KeyVerifyToken is the redis key mapping an email-verification token to an account id.
func KeyVerifyToken(t string) string { return "email:verify:token:" + t }

// KeyResetToken is the redis key mapping a password-reset token to an account id.
func KeyResetToken(t string) string { return "pwd:reset:token:" + t }

// KeyUserSession is the redis hash recording a local account's live session.
func KeyUserSession(uid string) string { return "user:session:" + uid }
