/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package santa

import (
	"fmt"
	"net/url"
	"strings"
)

// ShareMessage is the text sent to a giver telling them who they drew.
func ShareMessage(a Assignment) string {
	return fmt.Sprintf("Hi %s! Your secret santa is: %s. Shhh!", a.Giver.Name, a.Receiver.Name)
}

func WhatsAppURL(message string) string {
	return "https://wa.me/?text=" + escape(message)
}

// SMSURL builds an sms: link with a prefilled body. iOS expects the body after
// '&' rather than '?'.
func SMSURL(message string, ios bool) string {
	sep := "?"
	if ios {
		sep = "&"
	}

	return "sms:" + sep + "body=" + escape(message)
}

// escape encodes spaces as %20; some messaging apps show a literal '+'.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func IsIOS(userAgent string) bool {
	ua := strings.ToLower(userAgent)

	return strings.Contains(ua, "iphone") ||
		strings.Contains(ua, "ipad") ||
		strings.Contains(ua, "ipod")
}
