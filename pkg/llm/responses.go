package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// ExtractJSONFromResponse extracts JSON from model output that may wrap it
// in markdown code blocks or surrounding prose. It returns the extracted
// JSON string, or the original text if no JSON can be isolated. Tool
// argument parsing (ParseToolInput) uses it as the salvage path for
// providers that emit sloppy argument documents.
//
// Example:
//
//	response := "Here is the data:\n```json\n{\"key\": \"value\"}\n```"
//	jsonStr := ExtractJSONFromResponse(response)
//	fmt.Println(jsonStr) // Output: {"key": "value"}
func ExtractJSONFromResponse(text string) string {
	text = strings.TrimSpace(text)

	// Fenced code blocks first, labeled or not, then single backticks.
	patterns := []string{
		"```json\\s*([\\s\\S]*?)```",
		"```JSON\\s*([\\s\\S]*?)```",
		"```\\w*\\s*([\\s\\S]*?)```",
		"`([^`]+)`",
	}

	for _, pattern := range patterns {
		re := regexp.MustCompile(pattern)
		matches := re.FindStringSubmatch(text)
		if len(matches) > 1 {
			if extracted, ok := salvageJSON(matches[1]); ok {
				return extracted
			}
		}
	}

	for _, candidate := range findJSONBlocks(text) {
		if extracted, ok := salvageJSON(candidate); ok {
			return extracted
		}
	}

	if extracted, ok := salvageJSON(text); ok {
		return extracted
	}

	return text
}

// salvageJSON validates a candidate, cleaning comments and trailing commas
// when a direct parse fails
func salvageJSON(candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") && !strings.HasPrefix(candidate, "[") {
		return "", false
	}
	if isValidJSON(candidate) {
		return candidate, true
	}
	if cleaned := cleanJSON(candidate); cleaned != "" {
		return cleaned, true
	}
	return "", false
}

func isValidJSON(text string) bool {
	var temp interface{}
	return json.Unmarshal([]byte(text), &temp) == nil
}

// findJSONBlocks locates balanced {...} and [...] spans, skipping brackets
// inside string literals
func findJSONBlocks(text string) []string {
	var results []string

	for i := 0; i < len(text); i++ {
		var open, close byte
		switch text[i] {
		case '{':
			open, close = '{', '}'
		case '[':
			open, close = '[', ']'
		default:
			continue
		}

		depth := 0
		inString := false
		escaped := false
		for j := i; j < len(text); j++ {
			char := text[j]
			if escaped {
				escaped = false
				continue
			}
			if char == '\\' {
				escaped = true
				continue
			}
			if char == '"' {
				inString = !inString
				continue
			}
			if inString {
				continue
			}
			switch char {
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					results = append(results, text[i:j+1])
					j = len(text)
				}
			}
		}
	}

	return results
}

// cleanJSON strips line comments and trailing commas, returning "" when the
// result still does not parse
func cleanJSON(jsonText string) string {
	lines := strings.Split(jsonText, "\n")
	var cleanedLines []string

	trailingComma := regexp.MustCompile(`,(\s*[}\]])`)
	for _, line := range lines {
		if idx := strings.Index(line, "//"); idx != -1 {
			line = line[:idx]
		}
		line = trailingComma.ReplaceAllString(line, "$1")
		line = strings.TrimSpace(line)
		if line != "" {
			cleanedLines = append(cleanedLines, line)
		}
	}

	result := strings.Join(cleanedLines, "\n")
	if isValidJSON(result) {
		return result
	}
	return ""
}

// RemoveBlocks removes all blocks of the specified tag from the input
// string, e.g. RemoveBlocks(text, "think") strips <think>...</think> spans
// from models that inline their reasoning.
func RemoveBlocks(text, tag string) string {
	pattern := fmt.Sprintf(`(?s)<%s>.*?</%s>`, regexp.QuoteMeta(tag), regexp.QuoteMeta(tag))
	return regexp.MustCompile(pattern).ReplaceAllString(text, "")
}

// ExtractJSONToStruct extracts JSON from model output and unmarshals it
// into out, which must be a pointer.
func ExtractJSONToStruct(response string, out interface{}) error {
	return json.Unmarshal([]byte(ExtractJSONFromResponse(response)), out)
}
