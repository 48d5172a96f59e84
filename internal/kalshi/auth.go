package kalshi

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenLifetime = 300 * time.Second // exchange rejects anything longer
	tokenBuffer   = 60 * time.Second  // renew this long before expiry
)

// Credentials is the on-disk credential material. Immutable after load.
type Credentials struct {
	APIKeyID   string `json:"api_key_id"`
	PrivateKey string `json:"private_key"`
}

// LoadCredentials reads and validates the credentials file.
func LoadCredentials(path string) (*Credentials, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Msg: "credentials file not readable: " + path, Err: err}
	}

	var creds Credentials
	if err := json.Unmarshal(raw, &creds); err != nil {
		return nil, &ConfigError{Msg: "credentials file is not valid JSON", Err: err}
	}

	if creds.APIKeyID == "" {
		return nil, &ConfigError{Msg: "api_key_id is required"}
	}
	if strings.TrimSpace(creds.PrivateKey) == "" {
		return nil, &ConfigError{Msg: "private_key is required"}
	}

	return &creds, nil
}

// parsePrivateKey accepts PKCS#1 and PKCS#8 encoded RSA keys.
func parsePrivateKey(pemData string) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(strings.TrimSpace(pemData)))
	if block == nil {
		return nil, &ConfigError{Msg: "private_key is not PEM encoded"}
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &ConfigError{Msg: "failed to parse private key", Err: err}
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &ConfigError{Msg: "private key is not RSA"}
	}
	return key, nil
}

// tokenSource mints RS256 bearer tokens signed over {sub, iat, exp} and
// reuses the live token until it is within tokenBuffer of expiry. One
// live token per client; never shared.
type tokenSource struct {
	mu      sync.Mutex
	keyID   string
	key     *rsa.PrivateKey
	token   string
	expires time.Time
	now     func() time.Time
}

func newTokenSource(keyID string, key *rsa.PrivateKey) *tokenSource {
	return &tokenSource{keyID: keyID, key: key, now: time.Now}
}

// Token returns the cached token, minting a fresh one when the current
// token is inside the renewal buffer.
func (ts *tokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	now := ts.now()
	if ts.token != "" && now.Before(ts.expires.Add(-tokenBuffer)) {
		return ts.token, nil
	}

	expires := now.Add(tokenLifetime)
	claims := jwt.MapClaims{
		"sub": ts.keyID,
		"iat": now.Unix(),
		"exp": expires.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ts.key)
	if err != nil {
		return "", &ConfigError{Msg: "token signing failed", Err: err}
	}

	ts.token = signed
	ts.expires = expires
	return signed, nil
}
