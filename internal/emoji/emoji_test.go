package emoji

import "testing"

func TestGetEmoji(t *testing.T) {
	defer SetEmojiDisabled(false)

	tests := []struct {
		name     string
		key      string
		disabled bool
		want     string
	}{
		{"emoji", "error", false, "❌"},
		{"fallback", "error", true, "[ERR]"},
		{"unknown", "nope", false, "[?]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetEmojiDisabled(tt.disabled)
			if got := GetEmoji(tt.key); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}
