// Package telegram validates Telegram Mini-App initData. The algorithm is
// fixed by Telegram: the secret key is HMAC-SHA256("WebAppData", botToken) and
// the received hash must match HMAC-SHA256(secret, dataCheckString) where the
// data-check string is the sorted key=value pairs joined with newlines.
package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrMissingHash = errors.New("telegram: init data has no hash")
	ErrBadHash     = errors.New("telegram: init data hash mismatch")
	ErrNoUser      = errors.New("telegram: init data has no user")
)

// WebAppUser is the user payload embedded in initData.
type WebAppUser struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Verify checks the initData signature against botToken and returns the
// embedded user.
func Verify(initData, botToken string) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	received := values.Get("hash")
	if received == "" {
		return nil, ErrMissingHash
	}
	values.Del("hash")

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(received)) {
		return nil, ErrBadHash
	}

	rawUser := values.Get("user")
	if rawUser == "" {
		return nil, ErrNoUser
	}
	var u WebAppUser
	if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
		return nil, err
	}
	if u.ID == 0 {
		return nil, ErrNoUser
	}
	return &u, nil
}

// Sign produces the hash for the given key=value pairs. It exists for tests
// and local tooling that need to mint valid initData.
func Sign(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	secret := hmac.New(sha256.New, []byte("WebAppData"))
	secret.Write([]byte(botToken))
	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))
	return hex.EncodeToString(mac.Sum(nil))
}
