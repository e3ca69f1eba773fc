package server

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/desertthunder/tunebox/internal/models"
	"github.com/desertthunder/tunebox/internal/shared"
)

// webAppKey is the fixed HMAC key Telegram uses to derive the init data secret from a bot token.
const webAppKey = "WebAppData"

// ParseInitData extracts the user id from raw web app init data such as
// "query_id=AA&user=%7B%22id%22%3A42%7D&auth_date=1&hash=ff".
func ParseInitData(data string) (models.UserID, error) {
	var raw string
	found := false
	for _, item := range strings.Split(data, "&") {
		key, value, ok := strings.Cut(item, "=")
		if ok && key == "user" {
			raw, found = value, true
			break
		}
	}
	if !found {
		return "", fmt.Errorf("%w: init data has no user", shared.ErrUnauthorized)
	}

	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: malformed user field: %v", shared.ErrUnauthorized, err)
	}

	var user struct {
		ID models.UserID `json:"id"`
	}
	if err := json.Unmarshal([]byte(decoded), &user); err != nil {
		return "", fmt.Errorf("%w: malformed user JSON: %v", shared.ErrUnauthorized, err)
	}
	if !user.ID.Valid() {
		return "", fmt.Errorf("%w: user has no valid id", shared.ErrUnauthorized)
	}
	return user.ID, nil
}

// VerifyInitData checks the hash field of init data against the bot token.
func VerifyInitData(data, botToken string) error {
	values, err := url.ParseQuery(data)
	if err != nil {
		return fmt.Errorf("%w: malformed init data: %v", shared.ErrUnauthorized, err)
	}

	hash := values.Get("hash")
	if hash == "" {
		return fmt.Errorf("%w: init data is not signed", shared.ErrUnauthorized)
	}
	want, err := hex.DecodeString(hash)
	if err != nil {
		return fmt.Errorf("%w: malformed hash", shared.ErrUnauthorized)
	}

	if !hmac.Equal(signInitData(values, botToken), want) {
		return fmt.Errorf("%w: init data signature mismatch", shared.ErrUnauthorized)
	}
	return nil
}

// SignInitData returns the hex signature Telegram would attach to values. Used by tests and tooling.
func SignInitData(values url.Values, botToken string) string {
	return hex.EncodeToString(signInitData(values, botToken))
}

func signInitData(values url.Values, botToken string) []byte {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k != "hash" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = k + "=" + values.Get(k)
	}

	secret := hmac.New(sha256.New, []byte(webAppKey))
	secret.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secret.Sum(nil))
	mac.Write([]byte(strings.Join(lines, "\n")))
	return mac.Sum(nil)
}
