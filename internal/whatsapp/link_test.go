package whatsapp

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+243 812 345 678", "243812345678"},
		{"243812345678", "243812345678"},
		{"(243) 812-345-678", "243812345678"},
		{"+243-812.345.678", "243812345678"},
		// leading 00 trunk prefix is kept as-is, not folded into E.164
		{"00243-812-345-678", "00243812345678"},
		{"", ""},
		{"abc", ""},
		// only one leading + is stripped; a doubled + keeps the second one
		{"++243812345678", "+243812345678"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, NormalizePhone(c.in), "input %q", c.in)
	}
}

func TestBuildURL(t *testing.T) {
	got := BuildURL("+243 812 345 678", "Bonjour, concernant le colis ABC123")
	require.Equal(t,
		"https://wa.me/243812345678?text=Bonjour%2C%20concernant%20le%20colis%20ABC123",
		got)
}

func TestBuildURL_plusAndBareFormsAgree(t *testing.T) {
	a := BuildURL("+243 812 345 678", "msg")
	b := BuildURL("243812345678", "msg")
	require.Equal(t, a, b)
}

func TestBuildURL_roundTrip(t *testing.T) {
	messages := []string{
		"Bonjour, concernant le colis ABC123",
		"Colis arrivé à l'entrepôt: détails & retrait?",
		"réception 100% confirmée + merci",
		"",
	}
	for _, msg := range messages {
		u, err := url.Parse(BuildURL("243812345678", msg))
		require.NoError(t, err)
		require.Equal(t, msg, u.Query().Get("text"), "message %q", msg)
	}
}

func TestBuildURL_emptyPhone(t *testing.T) {
	got := BuildURL("", "allo")
	require.Equal(t, "https://wa.me/?text=allo", got)
}

func TestBuildURL_noPlusOrPunctuationInDigits(t *testing.T) {
	got := BuildURL("+00 (243) 812-345-678", "x")
	rest := strings.TrimPrefix(got, "https://wa.me/")
	digits := rest[:strings.Index(rest, "?")]
	require.Equal(t, "00243812345678", digits)
	require.NotContains(t, digits, "+")
}
