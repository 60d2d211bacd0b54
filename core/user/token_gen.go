package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	salt = []byte("libreta.backend.core.user.token_gen")

	tsEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// ResetTokens issues password reset tokens. A token is signed over the user's id, password
// hash and last login, so it stops working once the password changes or the user logs in.
type ResetTokens struct {
	key     [sha256.Size]byte
	maxDays int
	now     func() time.Time // mockable
}

func NewResetTokens(secretKey string, timeout time.Duration) *ResetTokens {
	return &ResetTokens{
		key:     sha256.Sum256(append(append([]byte{}, salt...), secretKey...)),
		maxDays: int(timeout / (24 * time.Hour)),
		now:     time.Now,
	}
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func DecodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(idBytes), nil
}

// Make returns a token for usr, valid from today for the configured number of days.
func (rt *ResetTokens) Make(usr User) string {
	return rt.makeWithTimestamp(usr, daysSince2001(rt.now()))
}

func (rt *ResetTokens) Verify(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return ErrInvalidToken
	}
	data, err := tsEncoding.DecodeString(parts[0])
	if err != nil {
		return ErrInvalidToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return ErrInvalidToken
	}

	// tampered?
	if subtle.ConstantTimeCompare([]byte(rt.makeWithTimestamp(usr, ts)), []byte(token)) == 0 {
		return ErrInvalidToken
	}
	if daysSince2001(rt.now())-ts > rt.maxDays {
		return ErrTokenExpired
	}
	return nil
}

func (rt *ResetTokens) makeWithTimestamp(usr User, ts int) string {
	h := hmac.New(sha256.New, rt.key[:])
	h.Write(hashValue(usr, ts))
	sig := base64.RawURLEncoding.EncodeToString(h.Sum(nil))
	return fmt.Sprintf("%s-%s", tsEncoding.EncodeToString([]byte(strconv.Itoa(ts))), sig)
}

func daysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(usr.LastLogin.UTC().Format(time.RFC3339Nano))
	}
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}
