package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAuthToken_Golden(t *testing.T) {
	t.Parallel()

	cases := []struct {
		token string
		cert  string
		want  string
	}{
		{
			token: "1700000000",
			cert:  "conduit-certificate-secret",
			want:  "f9cdca34b7549f0ac068c47cde5431d7df7a71fd",
		},
		{
			token: "1234567890",
			cert:  "abcdef",
			want:  "ff998abc1ce6d8f01a675fa197368e44c8916e9c",
		},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, SignAuthToken(tc.token, tc.cert))
	}
}

func TestSignAuthToken_Deterministic(t *testing.T) {
	t.Parallel()

	token := AuthToken(1700000000)
	require.Equal(t, "1700000000", token)
	require.Equal(t, SignAuthToken(token, "cert"), SignAuthToken(token, "cert"))
	require.NotEqual(t, SignAuthToken(token, "cert"), SignAuthToken(AuthToken(1700000001), "cert"))
}
