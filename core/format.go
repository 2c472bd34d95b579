package core

import (
	"fmt"
	"strings"
)

// FormatProgress renders the chat status line posted after each push.
func FormatProgress(s ProgressState, levelUp bool) string {
	var b strings.Builder
	b.WriteString("📚 **Progress updated**\n")
	fmt.Fprintf(&b, "🔥 Streak: `%d days`\n", s.Streak)
	fmt.Fprintf(&b, "⭐ Level: `%d`\n", s.Level)
	fmt.Fprintf(&b, "✨ EXP: `%d` / `%d`", s.Experience, s.Required())
	if levelUp {
		b.WriteString("\n\n🆙 **Level up!!**\nKeep it going 🔥")
	}
	return b.String()
}
