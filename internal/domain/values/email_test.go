package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmail(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
		wantErr bool
	}{
		{name: "valid simple email", address: "test@example.com", want: "test@example.com"},
		{name: "upper case is normalized", address: "A@X.COM", want: "a@x.com"},
		{name: "surrounding whitespace", address: "  user@mail.example.com ", want: "user@mail.example.com"},
		{name: "valid email with plus", address: "user+tag@example.com", want: "user+tag@example.com"},
		{name: "empty email", address: "", wantErr: true},
		{name: "missing @ symbol", address: "userexample.com", wantErr: true},
		{name: "missing domain", address: "user@", wantErr: true},
		{name: "invalid domain", address: "user@invalid", wantErr: true},
		{name: "display name form", address: "Jane <jane@example.com>", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := NewEmail(tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, email.String())
		})
	}
}

func TestEmail_Domain(t *testing.T) {
	assert.Equal(t, "x.com", MustNewEmail("a@x.com").Domain())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@x.com", NormalizeEmail(" A@X.com "))
	assert.Equal(t, "", NormalizeEmail("  "))
}
