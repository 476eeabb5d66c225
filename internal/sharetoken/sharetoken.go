// Package sharetoken implements the codespace share-token codec: a scoped,
// expiring access grant encoded as a single opaque string. A token carries
// the codespace identifier, an absolute expiry and an access mode, signed
// with a symmetric secret. Tokens are self-contained; there is no server-side
// issuance record and no revocation before expiry.
package sharetoken

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Mode is the capability granted by a share token.
type Mode string

const (
	ModeView Mode = "view"
	ModeEdit Mode = "edit"
)

func (m Mode) Valid() bool {
	return m == ModeView || m == ModeEdit
}

var (
	// ErrInvalidToken covers malformed tokens, wrong-secret signatures,
	// tampered payloads and unknown access modes.
	ErrInvalidToken = errors.New("share token is not valid")
	// ErrTokenExpired marks a structurally valid token past its expiry.
	// Kept separate so callers can report it precisely.
	ErrTokenExpired = errors.New("share token has expired")
)

// Grant is the decoded token payload.
type Grant struct {
	CodespaceUUID string
	ExpiresAt     time.Time
	Mode          Mode
}

// Codec encodes and decodes share tokens with an HS256 signature.
type Codec struct {
	secret []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Encode mints a token for the codespace with the given mode, expiring at
// now + ttl.
func (c *Codec) Encode(codespaceUUID string, mode Mode, ttl time.Duration) (string, error) {
	if len(c.secret) == 0 {
		return "", fmt.Errorf("share token secret is not configured")
	}
	if codespaceUUID == "" {
		return "", fmt.Errorf("codespace uuid is required")
	}
	if !mode.Valid() {
		return "", fmt.Errorf("unknown access mode %q", mode)
	}
	if ttl <= 0 {
		return "", fmt.Errorf("ttl must be positive")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"csp":  codespaceUUID,
		"mode": string(mode),
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString(c.secret)
}

// Decode verifies and unpacks a token. Expiry is enforced here: an expired
// token fails with ErrTokenExpired, everything else that doesn't verify
// fails with ErrInvalidToken.
func (c *Codec) Decode(token string) (*Grant, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uuid, _ := claims["csp"].(string)
	modeStr, _ := claims["mode"].(string)
	mode := Mode(modeStr)
	if uuid == "" || !mode.Valid() {
		return nil, ErrInvalidToken
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, ErrInvalidToken
	}
	return &Grant{CodespaceUUID: uuid, ExpiresAt: exp.Time, Mode: mode}, nil
}
