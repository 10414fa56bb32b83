package pipeline

// useragent.go derives the bot flag, browser, device type, and OS fields
// from the raw user-agent string.

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	ua "github.com/mileusna/useragent"
)

// classifyUserAgent is the last validator in the chain. It never fails:
// an unparseable user agent simply classifies as unknown.
func classifyUserAgent(b *builder) error {
	raw := b.raw["userAgent"]
	if raw == "" || raw == noValue {
		// No user agent at all: fixed unknown record, field nulled.
		b.entry.UserAgent = absentText()
		b.entry.Bot = false
		b.entry.Browser = absentText()
		b.entry.DeviceType = DeviceUnknown
		b.entry.OS = absentText()
		return nil
	}

	parsed := ua.Parse(raw)

	b.entry.UserAgent = presentText(truncate(raw, MaxFieldLen))
	b.entry.Bot = parsed.Bot
	b.entry.Browser = optionalText(parsed.Name)
	b.entry.OS = optionalText(osWithVersion(parsed))
	b.entry.DeviceType = deviceType(parsed)
	return nil
}

// osWithVersion formats "<name> <version>" when the version is known,
// just "<name>" otherwise, and "" when the OS is unrecognized.
func osWithVersion(parsed ua.UserAgent) string {
	if parsed.OS == "" {
		return ""
	}
	if parsed.OSVersion == "" {
		return parsed.OS
	}
	return parsed.OS + " " + parsed.OSVersion
}

// deviceType maps the parse result onto the device_type enum. Bots always
// classify as unknown, even when the underlying device is detectable.
func deviceType(parsed ua.UserAgent) string {
	switch {
	case parsed.Bot:
		return DeviceUnknown
	case parsed.Mobile:
		return DeviceMobile
	case parsed.Tablet:
		return DeviceTablet
	default:
		return DeviceOther
	}
}

// optionalText nulls empty strings and trims oversized ones.
func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return absentText()
	}
	return presentText(truncate(s, MaxFieldLen))
}
