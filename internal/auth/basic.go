package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
)

// PATConfig authenticates with a personal access token. The server expects HTTP
// Basic auth with an empty user name and the token as password.
type PATConfig struct {
	Token string `mapstructure:"token"`
}

// Acquire returns "Basic base64(':' + token)".
func (c PATConfig) Acquire(_ context.Context) (string, error) {
	if strings.TrimSpace(c.Token) == "" {
		return "", errors.New("pat: personal access token is required")
	}
	return BasicValue("", c.Token), nil
}

// BasicConfig holds configuration for Basic authentication with a real user,
// accepted by servers that have basic auth enabled in IIS.
type BasicConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// Acquire returns a Basic auth header value constructed from Username and Password.
func (c BasicConfig) Acquire(_ context.Context) (string, error) {
	u := strings.TrimSpace(c.Username)
	if u == "" || c.Password == "" {
		return "", errors.New("basic: username and password are required")
	}
	return BasicValue(u, c.Password), nil
}

// BasicValue encodes user:password for the Authorization header.
func BasicValue(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}
