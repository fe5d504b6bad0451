package services

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// ErrAdminNotConfigured means no admin password hash was provided.
var ErrAdminNotConfigured = errors.New("admin password is not configured")

const generatedPasswordLen = 12

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789!@#$%&*"

// HashAdminPassword returns the bcrypt hash stored in ADMIN_PASSWORD_HASH.
func HashAdminPassword(plain string) (string, error) {
	if len(plain) < 8 {
		return "", fmt.Errorf("admin password must have at least 8 characters")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}
	return string(b), nil
}

// GenerateAdminPassword returns a random password for first setup. Do not log it.
func GenerateAdminPassword() (string, error) {
	out := make([]byte, generatedPasswordLen)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}

// AdminAuth checks the admin console password with a per-client cooldown
// after failures.
type AdminAuth struct {
	hash     []byte
	throttle *LoginThrottle
}

func NewAdminAuth(passwordHash string, throttle *LoginThrottle) *AdminAuth {
	return &AdminAuth{hash: []byte(passwordHash), throttle: throttle}
}

// Login verifies password for client. wait is the number of seconds the
// client must wait before trying again; it is non-zero only when ok is false.
func (a *AdminAuth) Login(client, password string) (ok bool, wait int, err error) {
	if len(a.hash) == 0 {
		return false, 0, ErrAdminNotConfigured
	}
	if w := a.throttle.WaitSeconds(client); w > 0 {
		return false, w, nil
	}
	if bcrypt.CompareHashAndPassword(a.hash, []byte(password)) != nil {
		a.throttle.RecordFailed(client)
		return false, a.throttle.WaitSeconds(client), nil
	}
	a.throttle.RecordSuccess(client)
	return true, 0, nil
}

// Wait is the cooldown, in seconds, the client has left before it may try again.
func (a *AdminAuth) Wait(client string) int {
	return a.throttle.WaitSeconds(client)
}
