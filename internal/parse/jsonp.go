package parse

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	// Some backends prefix the body with an empty comment to defeat content sniffing.
	commentPrefixRe = regexp.MustCompile(`^/\*\*/\s*`)

	// typeof cb === 'function' && cb(...)
	guardRe        = regexp.MustCompile(`^typeof\s+([A-Za-z_$][\w$]*)\s*===?\s*['"]function['"]\s*&&\s*`)
	invokeRe       = regexp.MustCompile(`^([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\(`)
	callbackNameRe = regexp.MustCompile(`^[A-Za-z_$][\w$]*$`)
)

// Callback holds the structured data parsed from a JSONP script body.
type Callback struct {
	Name    string
	Payload json.RawMessage
}

// ValidCallbackName reports whether name can be used as a JSONP callback.
func ValidCallbackName(name string) bool {
	return callbackNameRe.MatchString(name)
}

// JSONP extracts the invoked callback name and its JSON argument from a
// self-invoking script such as `cb_123({"ok":true});`.
func JSONP(raw []byte) (Callback, error) {
	s := strings.TrimPrefix(string(raw), "\ufeff")
	s = strings.TrimSpace(s)
	s = commentPrefixRe.ReplaceAllString(s, "")

	guarded := ""
	if loc := guardRe.FindStringSubmatchIndex(s); loc != nil {
		guarded = s[loc[2]:loc[3]]
		s = s[loc[1]:]
	}

	loc := invokeRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return Callback{}, fmt.Errorf("script does not invoke a callback: %q", preview(s))
	}
	name := s[loc[2]:loc[3]]
	if guarded != "" && guarded != name {
		return Callback{}, fmt.Errorf("guard checks %q but script invokes %q", guarded, name)
	}

	// Strip the trailing ")" and optional ";".
	body := strings.TrimSpace(s[loc[1]:])
	body = strings.TrimSuffix(body, ";")
	body = strings.TrimSpace(body)
	if !strings.HasSuffix(body, ")") {
		return Callback{}, fmt.Errorf("unterminated callback invocation for %q", name)
	}
	body = strings.TrimSpace(strings.TrimSuffix(body, ")"))

	if !json.Valid([]byte(body)) {
		return Callback{}, fmt.Errorf("callback %q argument is not valid JSON: %q", name, preview(body))
	}

	return Callback{Name: name, Payload: json.RawMessage(body)}, nil
}

func preview(s string) string {
	const max = 64
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
