package logger

import "strings"

// RedactEmail masks the local part of an address: "jane.doe@shop.com"
// becomes "ja***@shop.com". Values that are not a single address are
// masked entirely.
func RedactEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "***@***"
	}
	name, domain := email[:at], email[at+1:]
	if len(name) > 2 {
		return name[:2] + "***@" + domain
	}
	return "***@" + domain
}
