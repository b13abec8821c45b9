package daraja

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timestampLayout = "20060102150405"

// Timestamp formats t as YYYYMMDDHHmmss in the provider's local time.
func Timestamp(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(timestampLayout)
}

// Password is base64(shortcode + passkey + timestamp).
func Password(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}

// NormalizePhone converts a local or international number into the
// country-code-prefixed digit string the provider expects.
func NormalizePhone(raw, countryCode string) (string, error) {
	phone := strings.TrimSpace(raw)
	phone = strings.TrimPrefix(phone, "+")
	if strings.HasPrefix(phone, "0") {
		phone = countryCode + phone[1:]
	}

	if len(phone) < 10 || len(phone) > 15 {
		return "", fmt.Errorf("%w: %q must have 10 to 15 digits", ErrInvalidPhone, raw)
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("%w: %q contains non-digit characters", ErrInvalidPhone, raw)
		}
	}
	return phone, nil
}
