// internal/utils/crypto_test.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomStringLengthAndCharset(t *testing.T) {
	s, err := GenerateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)

	for _, r := range s {
		assert.True(t,
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			"unexpected character %q", r)
	}
}

func TestGeneratePaymentReference(t *testing.T) {
	ref, err := GeneratePaymentReference()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "mm_"))
	assert.Len(t, ref, 19)

	other, err := GeneratePaymentReference()
	require.NoError(t, err)
	assert.NotEqual(t, ref, other)
}

func TestVerifyCallbackSignature(t *testing.T) {
	payload := []byte(`{"reference":"mm_abc","status":"completed"}`)
	secret := "callback-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyCallbackSignature(payload, signature, secret))
	assert.False(t, VerifyCallbackSignature(payload, signature, "wrong-secret"))
	assert.False(t, VerifyCallbackSignature([]byte("tampered"), signature, secret))
	assert.False(t, VerifyCallbackSignature(payload, "", secret))
}
