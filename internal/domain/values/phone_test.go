package values

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "plain digits", input: "9876543210", want: "9876543210"},
		{name: "short internal number", input: "111", want: "111"},
		{name: "e164", input: "+14155552671", want: "+14155552671"},
		{name: "formatted kept as entered", input: " (415) 555-2671 ", want: "(415) 555-2671"},
		{name: "empty", input: "", wantErr: true},
		{name: "whitespace only", input: "   ", wantErr: true},
		{name: "letters", input: "555-CALL", wantErr: true},
		{name: "too many digits", input: "1234567890123456", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			phone, err := NewPhoneNumber(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, phone.IsEmpty())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, phone.String())
		})
	}
}

func TestPhoneNumber_Digits(t *testing.T) {
	phone := MustNewPhoneNumber("+1 (415) 555-2671")
	assert.Equal(t, "14155552671", phone.Digits())
}

func TestPhoneNumber_JSON(t *testing.T) {
	var phone PhoneNumber
	require.NoError(t, json.Unmarshal([]byte(`"9876543210"`), &phone))
	assert.True(t, phone.Equal(MustNewPhoneNumber("9876543210")))

	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &phone))
}

func TestNormalizePhone(t *testing.T) {
	assert.Equal(t, "9876543210", NormalizePhone(" 9876543210\t"))
	assert.Equal(t, "(555) 010-0100", NormalizePhone("(555) 010-0100 "))
	assert.Equal(t, "", NormalizePhone("  "))
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank(" \t"))
	assert.False(t, IsBlank("0"))
}
