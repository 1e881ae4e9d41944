package notify

import "strings"

// NormalizePhoneNumber strips formatting and rewrites local Kenyan numbers
// (07XXXXXXXX, 01XXXXXXXX) to the 254 country prefix WhatsApp expects.
func NormalizePhoneNumber(phone string) string {
	phone = strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "").Replace(phone)

	if strings.HasPrefix(phone, "0") && len(phone) == 10 {
		phone = "254" + phone[1:]
	}
	if strings.HasPrefix(phone, "2540") {
		phone = "254" + phone[4:]
	}
	return phone
}
