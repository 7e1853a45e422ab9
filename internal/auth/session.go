// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that does not verify.
var ErrInvalidToken = errors.New("invalid token")

// ErrWrongSession is returned for a valid token presented to a session it was not issued for.
var ErrWrongSession = fmt.Errorf("%w: issued for another session", ErrInvalidToken)

// Signer issues and verifies seat tokens. A token's "sub" is the username it was issued to and
// its "sid" the session the seat belongs to.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// expire is the token lifetime; zero means tokens carry no exp claim.
	expire time.Duration
}

// NewSigner generates a fresh ed25519 key pair at runtime.
func NewSigner(expire time.Duration) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Signer{privateKey: priv, publicKey: pub, expire: expire}, nil
}

// NewSignerFromPath reads raw ed25519 private/public keys from file.
func NewSignerFromPath(privatePath, publicPath string, expire time.Duration) (*Signer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return nil, errors.New("ed25519 key files have the wrong size")
	}
	return &Signer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		expire:     expire,
	}, nil
}

// CreateToken creates a signed JWT with "sub" = username, "sid" = sessionID and, when
// configured, an exp claim.
func (s *Signer) CreateToken(sessionID uuid.UUID, username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"sid": sessionID.String(),
		"iat": time.Now().Unix(),
	}
	if s.expire > 0 {
		claims["exp"] = time.Now().Add(s.expire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(s.privateKey)
}

// Authenticate verifies a token for sessionID and returns its "sub". A seat is only valid in
// the session it was issued for.
func (s *Signer) Authenticate(tokenString string, sessionID uuid.UUID) (string, error) {
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !t.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("%w: invalid jwt claims", ErrInvalidToken)
	}
	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%w: missing sub in jwt", ErrInvalidToken)
	}
	sid, _ := claims["sid"].(string)
	tokenSession, err := uuid.Parse(sid)
	if err != nil {
		return "", fmt.Errorf("%w: missing sid in jwt", ErrInvalidToken)
	}
	if tokenSession != sessionID {
		return "", ErrWrongSession
	}
	return username, nil
}
