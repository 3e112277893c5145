package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "al***@example.com", Email("alice@example.com"))
	require.Equal(t, "***@example.com", Email("al@example.com"))
	require.Equal(t, "***", Email("not-an-email"))
	require.Equal(t, "***", Email("a@b@c"))
}

func TestTokenTail(t *testing.T) {
	t.Parallel()

	require.Equal(t, Token(), TokenTail("short"))
	require.Equal(t, "…wxyz", TokenTail("abcdefghijklmnopqrstuvwxyz"))
	require.NotContains(t, TokenTail("eyJhbGciOiJIUzI1NiJ9.payload.signature"), "payload")
}
