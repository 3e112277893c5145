package handlers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	got := originPatterns([]string{
		"http://localhost:3000",
		" https://App.Example.com ",
		"*.internal",
		"http://localhost:3000",
		"",
		"://broken",
	})

	require.Equal(t, []string{"*.internal", "app.example.com", "localhost:3000"}, got)
	require.Empty(t, originPatterns(nil))
}
