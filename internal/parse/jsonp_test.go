package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJSONP(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		wantName    string
		wantPayload string
		expectErr   bool
	}{
		{
			name:        "Plain invocation",
			raw:         `jsonp_abc({"success":true});`,
			wantName:    "jsonp_abc",
			wantPayload: `{"success":true}`,
		},
		{
			name:        "No semicolon and whitespace",
			raw:         "  jsonp_abc ( {\"a\": [1, 2]} ) \n",
			wantName:    "jsonp_abc",
			wantPayload: `{"a": [1, 2]}`,
		},
		{
			name:        "Comment prefix",
			raw:         `/**/ cb_1({"x":"y"})`,
			wantName:    "cb_1",
			wantPayload: `{"x":"y"}`,
		},
		{
			name:        "Typeof guard",
			raw:         `typeof cb_2 === 'function' && cb_2({"error":"Backend timeout"});`,
			wantName:    "cb_2",
			wantPayload: `{"error":"Backend timeout"}`,
		},
		{
			name:        "Payload containing parentheses",
			raw:         `cb_3({"name":"西九龍轉運站 (管理員)"})`,
			wantName:    "cb_3",
			wantPayload: `{"name":"西九龍轉運站 (管理員)"}`,
		},
		{
			name:        "Dotted name",
			raw:         `window.cb_4({})`,
			wantName:    "window.cb_4",
			wantPayload: `{}`,
		},
		{
			name:        "Byte order mark before whitespace",
			raw:         "\ufeff  \n cb_5({\"ok\":1})",
			wantName:    "cb_5",
			wantPayload: `{"ok":1}`,
		},
		{
			name:      "Bare JSON",
			raw:       `{"success":true}`,
			expectErr: true,
		},
		{
			name:      "Guard mismatch",
			raw:       `typeof a === 'function' && b({})`,
			expectErr: true,
		},
		{
			name:      "Unterminated",
			raw:       `cb({"a":1}`,
			expectErr: true,
		},
		{
			name:      "Invalid JSON",
			raw:       `cb({a:1})`,
			expectErr: true,
		},
		{
			name:      "HTML error page",
			raw:       `<html><body>Error</body></html>`,
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := JSONP([]byte(tc.raw))
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.wantName, got.Name)
			assert.JSONEq(t, tc.wantPayload, string(got.Payload))
		})
	}
}

func TestValidCallbackName(t *testing.T) {
	assert.True(t, ValidCallbackName("jsonp_0f3a"))
	assert.True(t, ValidCallbackName("$cb"))
	assert.False(t, ValidCallbackName("1cb"))
	assert.False(t, ValidCallbackName("cb-1"))
	assert.False(t, ValidCallbackName(""))
}
