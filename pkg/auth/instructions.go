package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowCookieExtractionGuide explains how to copy a Yandex session cookie
// from a browser
func ShowCookieExtractionGuide(w io.Writer) {
	rule := strings.Repeat("=", 80)
	lines := []string{
		rule,
		"YANDEX SESSION COOKIE GUIDE",
		rule,
		"",
		"Yandex Images answers anonymous scripted traffic with a captcha quickly.",
		"A cookie from a browser session that has passed the captcha lasts much longer.",
		"",
		"STEP 1: Open https://yandex.ru/images in your browser and run a search.",
		"        Solve the captcha if one is shown.",
		"",
		"STEP 2: Open Developer Tools (F12, or Cmd+Option+I on Mac).",
		"",
		"STEP 3: In the Network tab, refresh the page and click the request to",
		"        /images/search. Under Request Headers, copy the whole value of",
		"        the 'Cookie:' line.",
		"",
		"        The value looks like: yandexuid=123...; i=abc...; yp=...",
		"",
		"STEP 4: Copy the 'User-Agent:' header as well so requests match the session.",
		"",
		"TIPS:",
		"   - Paste the value without the 'Cookie:' prefix (it is stripped if present)",
		"   - Cookies expire; run 'imgharvest auth login' again when captchas return",
		"   - Set IMGHARVEST_COOKIE to skip the credential store entirely",
		"",
		rule,
		"",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}

// ShowQuickExtractGuide shows a condensed version for experienced users
func ShowQuickExtractGuide(w io.Writer) {
	fmt.Fprintln(w, "\nQuick guide: F12 -> Network -> refresh yandex.ru/images/search -> Headers -> Cookie")
	fmt.Fprintln(w, "   Type 'help' for detailed instructions")
}
