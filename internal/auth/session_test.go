package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSigner_RoundTrip(t *testing.T) {
	s, err := NewSigner(0)
	require.NoError(t, err)

	sid := uuid.New()
	tok, err := s.CreateToken(sid, "alice")
	require.NoError(t, err)

	user, err := s.Authenticate(tok, sid)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestSigner_ScopedToSession(t *testing.T) {
	s, err := NewSigner(0)
	require.NoError(t, err)
	a, b := uuid.New(), uuid.New()

	tok, err := s.CreateToken(b, "bob")
	require.NoError(t, err)

	_, err = s.Authenticate(tok, a)
	require.ErrorIs(t, err, ErrWrongSession)
	require.ErrorIs(t, err, ErrInvalidToken)

	user, err := s.Authenticate(tok, b)
	require.NoError(t, err)
	assert.Equal(t, "bob", user)

	// tokens without a session claim are not seats anywhere
	bare := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{"sub": "bob"})
	raw, err := bare.SignedString(s.privateKey)
	require.NoError(t, err)
	_, err = s.Authenticate(raw, b)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_RejectsForeignKey(t *testing.T) {
	a, err := NewSigner(0)
	require.NoError(t, err)
	b, err := NewSigner(0)
	require.NoError(t, err)

	sid := uuid.New()
	tok, err := a.CreateToken(sid, "alice")
	require.NoError(t, err)
	_, err = b.Authenticate(tok, sid)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Authenticate("not-a-token", sid)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestSigner_Expiry(t *testing.T) {
	s, err := NewSigner(time.Hour)
	require.NoError(t, err)

	sid := uuid.New()
	expired := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.MapClaims{
		"sub": "alice",
		"sid": sid.String(),
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	tok, err := expired.SignedString(s.privateKey)
	require.NoError(t, err)

	_, err = s.Authenticate(tok, sid)
	require.ErrorIs(t, err, ErrInvalidToken)

	fresh, err := s.CreateToken(sid, "alice")
	require.NoError(t, err)
	_, err = s.Authenticate(fresh, sid)
	require.NoError(t, err)
}

func TestSigner_RejectsOtherAlgorithms(t *testing.T) {
	s, err := NewSigner(0)
	require.NoError(t, err)
	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "alice"})
	tok, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = s.Authenticate(tok, uuid.New())
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerFromPath(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	dir := t.TempDir()
	privPath := filepath.Join(dir, "key")
	pubPath := filepath.Join(dir, "key.pub")
	require.NoError(t, os.WriteFile(privPath, priv, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pub, 0o600))

	s, err := NewSignerFromPath(privPath, pubPath, 0)
	require.NoError(t, err)
	sid := uuid.New()
	tok, err := s.CreateToken(sid, "bob")
	require.NoError(t, err)
	user, err := s.Authenticate(tok, sid)
	require.NoError(t, err)
	assert.Equal(t, "bob", user)

	_, err = NewSignerFromPath(filepath.Join(dir, "missing"), pubPath, 0)
	require.Error(t, err)
}
