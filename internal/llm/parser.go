package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// SectionResponse is the structured payload the model returns for a single
// review comment.
type SectionResponse struct {
	PositiveRephrasing   string `json:"positive_rephrasing"`
	TheWhy               string `json:"the_why"`
	SuggestedImprovement string `json:"suggested_improvement"`
	CodeExample          string `json:"code_example"`
}

func (s *SectionResponse) empty() bool {
	return strings.TrimSpace(s.PositiveRephrasing) == "" &&
		strings.TrimSpace(s.TheWhy) == "" &&
		strings.TrimSpace(s.SuggestedImprovement) == "" &&
		strings.TrimSpace(s.CodeExample) == ""
}

// ParseSectionResponse extracts a SectionResponse from raw model output.
// It tolerates the usual quirks: Markdown fences around the JSON, invalid
// escape sequences, truncated objects, and models that ignore the JSON
// instruction entirely and answer in prose.
func ParseSectionResponse(raw string) (*SectionResponse, error) {
	if resp := parseSectionJSON(raw); resp != nil {
		return resp, nil
	}

	resp := parsePlaintextSection(raw)
	if resp.empty() {
		return nil, fmt.Errorf("failed to parse section response: no recognized fields found")
	}
	return resp, nil
}

// parseSectionJSON tries progressively harder to recover a JSON object from
// the raw output. Returns nil when no usable object can be found.
func parseSectionJSON(raw string) *SectionResponse {
	candidates := make([]string, 0, 2)

	if jsonString, err := extractJSON(raw); err == nil {
		sanitized := sanitizeJSON(jsonString)
		candidates = append(candidates, sanitized)
		if repaired, repairErr := jsonrepair.JSONRepair(sanitized); repairErr == nil {
			candidates = append(candidates, repaired)
		}
	} else if repaired, repairErr := jsonrepair.JSONRepair(strings.TrimSpace(raw)); repairErr == nil {
		candidates = append(candidates, repaired)
	}

	for _, candidate := range candidates {
		var resp SectionResponse
		if err := json.Unmarshal([]byte(candidate), &resp); err == nil && !resp.empty() {
			return &resp
		}
	}
	return nil
}

func extractJSON(raw string) (string, error) {
	// Strip wrapping Markdown code fences (greedy but safe).
	if startFence := strings.Index(raw, "```"); startFence != -1 {
		if endFence := strings.LastIndex(raw, "```"); endFence > startFence {
			inner := raw[startFence+3 : endFence]
			inner = strings.TrimSpace(inner)
			if strings.HasPrefix(strings.ToLower(inner), "json") {
				inner = strings.TrimSpace(inner[4:])
			}
			raw = inner
		}
	}

	raw = strings.TrimSpace(raw)

	// Optimistic attempt: the whole thing might already be valid.
	if json.Valid([]byte(raw)) {
		return raw, nil
	}

	// The greedy strip can leave an inner fence pair behind when the model
	// nests fences. Retry with the first opening fence and the very next
	// closing one.
	startFence := strings.Index(raw, "```")
	if startFence != -1 {
		remaining := raw[startFence+3:]
		endFenceRelative := strings.Index(remaining, "```")
		if endFenceRelative != -1 {
			inner := remaining[:endFenceRelative]
			inner = strings.TrimSpace(inner)
			if strings.HasPrefix(strings.ToLower(inner), "json") {
				inner = strings.TrimSpace(inner[4:])
			}
			raw = inner
		}
	}

	// Now find the first '{' in whatever is left.
	startBrace := strings.Index(raw, "{")
	if startBrace == -1 {
		return "", fmt.Errorf("response did not contain valid JSON start")
	}
	raw = raw[startBrace:]

	decoder := json.NewDecoder(strings.NewReader(raw))
	var msg any
	if err := decoder.Decode(&msg); err != nil {
		return "", fmt.Errorf("failed to decode JSON from response: %w", err)
	}
	// Re-encode to get a clean, compacted JSON string.
	clean, _ := json.Marshal(msg)
	return string(clean), nil
}

// sanitizeJSON fixes common invalid escape sequences in model output using
// round-trip validation.
func sanitizeJSON(input string) string {
	if json.Valid([]byte(input)) {
		return input
	}

	var sb strings.Builder
	sb.Grow(len(input) + 20)

	runes := []rune(input)
	length := len(runes)

	for i := 0; i < length; i++ {
		char := runes[i]
		if char == '\\' {
			if i+1 >= length {
				// Trailing backslash, escape it.
				sb.WriteRune('\\')
				sb.WriteRune('\\')
				break
			}

			next := runes[i+1]
			switch next {
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				// Valid escape, write both and skip next.
				sb.WriteRune(char)
				sb.WriteRune(next)
				i++
			default:
				// Invalid escape (e.g. \s in a path), escape the backslash
				// and let the next rune be processed normally.
				sb.WriteRune('\\')
				sb.WriteRune('\\')
			}
		} else {
			sb.WriteRune(char)
		}
	}

	return sb.String()
}

// parsePlaintextSection recovers the four fields from prose output where the
// model ignored the JSON format instruction. Section switches follow the
// heading keywords the prompt asks for; fenced blocks become the code
// example.
func parsePlaintextSection(raw string) *SectionResponse {
	resp := &SectionResponse{}

	var (
		current *string
		inCode  bool
		code    strings.Builder
	)

	for _, rawLine := range strings.Split(stripMarkdownFence(raw), "\n") {
		line := strings.TrimSpace(rawLine)
		lower := strings.ToLower(line)

		if strings.HasPrefix(line, "```") {
			if inCode {
				current = nil
			}
			inCode = !inCode
			continue
		}
		if inCode {
			// Preserve original indentation inside code blocks.
			code.WriteString(rawLine + "\n")
			continue
		}

		switch {
		case strings.Contains(lower, "positive rephrasing"):
			current = &resp.PositiveRephrasing
			appendHeadingRemainder(current, line)
			continue
		case strings.Contains(lower, "why"):
			current = &resp.TheWhy
			appendHeadingRemainder(current, line)
			continue
		case strings.Contains(lower, "improvement"):
			current = &resp.SuggestedImprovement
			appendHeadingRemainder(current, line)
			continue
		}

		if current != nil && line != "" {
			if *current != "" {
				*current += " "
			}
			*current += line
		}
	}

	resp.PositiveRephrasing = strings.TrimSpace(resp.PositiveRephrasing)
	resp.TheWhy = strings.TrimSpace(resp.TheWhy)
	resp.SuggestedImprovement = strings.TrimSpace(resp.SuggestedImprovement)
	resp.CodeExample = strings.TrimRight(code.String(), "\n")
	return resp
}

// appendHeadingRemainder keeps the content a model puts on the heading line
// itself, e.g. "1. **Positive Rephrasing**: Great start on this function!".
func appendHeadingRemainder(dst *string, line string) {
	idx := strings.Index(line, ":")
	if idx == -1 || idx+1 >= len(line) {
		return
	}
	rest := strings.TrimSpace(strings.Trim(line[idx+1:], "* "))
	if rest == "" {
		return
	}
	if *dst != "" {
		*dst += " "
	}
	*dst += rest
}

// stripMarkdownFence removes ```markdown ... ``` wrapping that some models
// add around their whole answer.
func stripMarkdownFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "```markdown") || strings.HasPrefix(trimmed, "```md") {
		idx := strings.Index(trimmed, "\n")
		if idx < 0 {
			return s
		}
		inner := trimmed[idx+1:]
		if lastFence := strings.LastIndex(inner, "```"); lastFence >= 0 {
			inner = inner[:lastFence]
		}
		return strings.TrimSpace(inner)
	}
	return s
}
