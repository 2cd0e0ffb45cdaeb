package cli

import (
	"github.com/yildizm/trackctl/internal/emoji"
)

// GetEmoji is a wrapper for the shared emoji package
func GetEmoji(key string) string {
	return emoji.GetEmoji(key)
}

// statusSymbol marks an item as present or missing
func statusSymbol(ok bool) string {
	if isEmojiDisabled() {
		if ok {
			return "[x]"
		}
		return "[ ]"
	}
	if ok {
		return GetEmoji("success")
	}
	return GetEmoji("error")
}
