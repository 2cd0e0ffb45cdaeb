package emoji

import "sync/atomic"

// emojiMap holds emoji and fallback mappings
var emojiMap = map[string][2]string{
	// [emoji, fallback]
	"error":      {"❌", "[ERR]"},
	"warning":    {"⚠️", "[WRN]"},
	"info":       {"ℹ️", "[INF]"},
	"debug":      {"🔧", "[DBG]"},
	"success":    {"✅", "[OK]"},
	"statistics": {"📊", "[STATS]"},
	"clock":      {"🕒", "[NTP]"},
	"sensor":     {"📡", "[SNS]"},
	"matches":    {"🏁", "[RUN]"},
	"logs":       {"📜", "[LOG]"},
	"help":       {"❓", "[?]"},
	"pause":      {"⏸️", "[||]"},
	"live":       {"🟢", "[>>]"},
	"offline":    {"🔴", "[XX]"},
	"power":      {"⏻", "[PWR]"},
	"door":       {"🚪", "[EXIT]"},
}

var emojiDisabled atomic.Bool

// SetEmojiDisabled sets the global emoji disabled state
func SetEmojiDisabled(disabled bool) {
	emojiDisabled.Store(disabled)
}

// IsEmojiDisabled returns the current emoji disabled state
func IsEmojiDisabled() bool {
	return emojiDisabled.Load()
}

// GetEmoji returns emoji or fallback based on no-emoji setting
func GetEmoji(key string) string {
	if mapping, exists := emojiMap[key]; exists {
		if IsEmojiDisabled() {
			return mapping[1]
		}
		return mapping[0]
	}
	return "[?]"
}
