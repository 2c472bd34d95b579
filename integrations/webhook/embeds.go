package webhook

import "time"

func newEmbed(color int, title, description string, at time.Time, fields []EmbedField) Embed {
	if at.IsZero() {
		at = time.Now()
	}
	return Embed{
		Title:       title,
		Description: description,
		Color:       color,
		Fields:      fields,
		Timestamp:   at.UTC().Format(time.RFC3339),
	}
}

// SuccessEmbed builds a green embed stamped with at (now when zero).
func SuccessEmbed(title, description string, at time.Time, fields ...EmbedField) Embed {
	return newEmbed(ColorSuccess, title, description, at, fields)
}

// ErrorEmbed builds a red embed stamped with the current time.
func ErrorEmbed(title, description string, fields ...EmbedField) Embed {
	return newEmbed(ColorError, title, description, time.Time{}, fields)
}

// InfoEmbed builds a blue embed stamped with the current time.
func InfoEmbed(title, description string, fields ...EmbedField) Embed {
	return newEmbed(ColorInfo, title, description, time.Time{}, fields)
}
