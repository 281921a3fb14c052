package util

import "strings"

// Windows reserved device names, checked case-insensitively.
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true, "COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true, "LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeModelForFilename converts a model name like "qwen2.5-coder:14b"
// into a string safe to embed in filenames on every platform.
func SanitizeModelForFilename(modelName string) string {
	sanitized := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-':
			return r
		default:
			return '_'
		}
	}, modelName)

	for strings.Contains(sanitized, "__") {
		sanitized = strings.ReplaceAll(sanitized, "__", "_")
	}

	sanitized = strings.Trim(sanitized, "_")
	if sanitized == "" {
		return "model"
	}

	// Dots never survive the mapping above, so a whole-name check is enough.
	if reservedNames[strings.ToUpper(sanitized)] {
		sanitized = "safe_" + sanitized
	}

	const maxFilenameLength = 120
	if len(sanitized) > maxFilenameLength {
		sanitized = sanitized[:maxFilenameLength]
	}
	return sanitized
}
