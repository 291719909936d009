package values

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/davidleathers/outreach-compliance-backend/internal/domain/errors"
)

// Channel is the outreach medium a campaign uses.
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelVoice    Channel = "voice"
	ChannelWhatsApp Channel = "whatsapp"
)

// ParseChannel validates and normalizes a channel string
func ParseChannel(s string) (Channel, error) {
	switch c := Channel(strings.ToLower(strings.TrimSpace(s))); c {
	case ChannelSMS, ChannelEmail, ChannelVoice, ChannelWhatsApp:
		return c, nil
	default:
		return "", errors.NewValidationError("INVALID_CHANNEL",
			fmt.Sprintf("channel '%s' is not supported", s))
	}
}

func (c Channel) String() string {
	return string(c)
}

// UnmarshalJSON implements JSON unmarshaling with validation
func (c *Channel) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	parsed, err := ParseChannel(raw)
	if err != nil {
		return err
	}

	*c = parsed
	return nil
}
