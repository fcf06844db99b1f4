package phone

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize_countryPrefixes(t *testing.T) {
	want := "0599123456"
	for _, in := range []string{"+972599123456", "972599123456", "00972599123456", "+970599123456", "00970599123456"} {
		require.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestNormalize_idempotent(t *testing.T) {
	require.Equal(t, "0599123456", Normalize("0599123456"))
	require.Equal(t, Normalize("0599123456"), Normalize(Normalize("0599123456")))
}

func TestNormalize_junkInput(t *testing.T) {
	require.Equal(t, "0591234567", Normalize(" 059-123 4567 "))
	require.Equal(t, "", Normalize("abc"))
	require.Equal(t, "", Normalize(""))
}

func TestIsValidMobile(t *testing.T) {
	require.True(t, IsValidMobile("0591234567"))
	require.True(t, IsValidMobile("091234567"))
	require.True(t, IsValidMobile("0412345678"))

	require.False(t, IsValidMobile("1234567"))
	require.False(t, IsValidMobile("0591234"))
	require.False(t, IsValidMobile("0791234567"))
	require.False(t, IsValidMobile(""))
}
