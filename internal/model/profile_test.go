package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDisplayName(t *testing.T) {
	first, last, company := "Aïssata", "Diallo", "Diallo Import SARL"
	empty := ""

	cases := []struct {
		name string
		p    Profile
		want string
	}{
		{"first and last", Profile{FirstName: &first, LastName: &last, Email: "a@x.com"}, "Aïssata Diallo"},
		{"first only", Profile{FirstName: &first, Email: "a@x.com"}, "Aïssata"},
		{"company fallback", Profile{Company: &company, Email: "a@x.com"}, "Diallo Import SARL"},
		{"email fallback", Profile{Email: "a@x.com"}, "a@x.com"},
		{"empty strings ignored", Profile{FirstName: &empty, Company: &empty, Email: "a@x.com"}, "a@x.com"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.p.DisplayName())
		})
	}
}
