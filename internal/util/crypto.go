package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// SignBody returns the hex HMAC-SHA256 Kakao sends in X-Kakao-Signature.
func SignBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBodySignature compares in constant time.
func VerifyBodySignature(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(SignBody(secret, body)), []byte(signature))
}

func PasswordMatches(password, bcryptHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(password)) == nil
}

func digest(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// MaskUserID keeps a short prefix of a Kakao user key plus a hash suffix,
// so log lines for one user stay correlatable without exposing the key.
func MaskUserID(userID string) string {
	if userID == "" {
		return "****"
	}
	suffix := digest(userID)[:8]
	if len(userID) <= 6 {
		return "****-" + suffix
	}
	return userID[:6] + "-" + suffix
}
