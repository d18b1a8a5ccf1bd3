package validation

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	tests := []struct {
		name      string
		sessionID string
		wantErr   bool
	}{
		{name: "uuid style", sessionID: "b7e3a1d2-4f5c-4e6a-9b8d-1c2e3f4a5b6c"},
		{name: "opaque printable", sessionID: "widget-42_x"},
		{name: "unicode printable", sessionID: "phiên-làm-việc"},
		{name: "empty", sessionID: "", wantErr: true},
		{name: "too long", sessionID: strings.Repeat("a", MaxSessionIDLength+1), wantErr: true},
		{name: "max length ok", sessionID: strings.Repeat("a", MaxSessionIDLength)},
		{name: "invalid utf8", sessionID: string([]byte{0xff, 0xfe}), wantErr: true},
		{name: "control character", sessionID: "abc\ndef", wantErr: true},
		{name: "null byte", sessionID: "abc\x00def", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSessionID(tt.sessionID)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSessionID(%q) error = %v, wantErr %v", tt.sessionID, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChatMessage(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{name: "plain text", message: "hello, I need a quote"},
		{name: "multiline", message: "line one\nline two"},
		{name: "unicode", message: "tôi cần hỗ trợ về hóa đơn"},
		{name: "empty", message: "", wantErr: true},
		{name: "too long", message: strings.Repeat("a", MaxMessageLength+1), wantErr: true},
		{name: "max length ok", message: strings.Repeat("a", MaxMessageLength)},
		{name: "invalid utf8", message: string([]byte{0xc3, 0x28}), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChatMessage(tt.message)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateChatMessage error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
