// Package document handles the markdown documents opened in the editor:
// front matter parsing and serialization, and rendering to HTML.
package document

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter       = "---"
	errorEncodeFrontmatterFmt  = "encode frontmatter: %w"
	errorParseFrontmatterFmt   = "parse frontmatter: %w"
	newlineCharacter           = "\n"
	frontmatterBlockTerminator = frontmatterDelimiter + newlineCharacter
)

// Document is a markdown file split into its front matter and body.
type Document struct {
	Frontmatter    map[string]any `json:"frontmatter"`
	RawFrontmatter string         `json:"rawFrontmatter"`
	Body           string         `json:"content"`
}

// HasFrontmatter reports whether content opens with a front matter delimiter.
func HasFrontmatter(content string) bool {
	return strings.HasPrefix(strings.TrimLeft(content, " \t\r\n"), frontmatterDelimiter)
}

// Parse splits content into front matter and body. Content without front matter,
// or with front matter that cannot be decoded, is returned whole as the body.
func Parse(content string) Document {
	parsed, parseError := ParseStrict(content)
	if parseError != nil {
		return Document{Frontmatter: map[string]any{}, Body: content}
	}
	return parsed
}

// ParseStrict is Parse without the fallback: decoding failures are returned.
func ParseStrict(content string) (Document, error) {
	metadata := map[string]any{}
	body, parseError := frontmatter.Parse(strings.NewReader(content), &metadata)
	if parseError != nil {
		return Document{}, fmt.Errorf(errorParseFrontmatterFmt, parseError)
	}
	normalized, _ := normalizeValue(metadata).(map[string]any)
	if normalized == nil {
		normalized = map[string]any{}
	}
	return Document{
		Frontmatter:    normalized,
		RawFrontmatter: extractRawFrontmatter(content),
		Body:           string(body),
	}, nil
}

// extractRawFrontmatter returns the YAML text between the opening and closing delimiters.
func extractRawFrontmatter(content string) string {
	trimmed := strings.TrimLeft(content, " \t\r\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter) {
		return ""
	}
	lines := strings.Split(trimmed, newlineCharacter)
	for lineIndex := 1; lineIndex < len(lines); lineIndex++ {
		if strings.TrimSpace(lines[lineIndex]) == frontmatterDelimiter {
			return strings.Join(lines[1:lineIndex], newlineCharacter)
		}
	}
	return ""
}

// normalizeValue converts the interface-keyed maps produced by the YAML decoder
// into string-keyed maps so documents encode as JSON.
func normalizeValue(value any) any {
	switch typed := value.(type) {
	case map[any]any:
		normalized := make(map[string]any, len(typed))
		for key, nested := range typed {
			normalized[fmt.Sprint(key)] = normalizeValue(nested)
		}
		return normalized
	case map[string]any:
		normalized := make(map[string]any, len(typed))
		for key, nested := range typed {
			normalized[key] = normalizeValue(nested)
		}
		return normalized
	case []any:
		normalized := make([]any, len(typed))
		for index, nested := range typed {
			normalized[index] = normalizeValue(nested)
		}
		return normalized
	default:
		return value
	}
}

// Serialize joins body and front matter. Empty front matter leaves body unchanged.
func Serialize(body string, metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return body, nil
	}
	var buffer bytes.Buffer
	encoder := yaml.NewEncoder(&buffer)
	encoder.SetIndent(2)
	if encodeError := encoder.Encode(metadata); encodeError != nil {
		return "", fmt.Errorf(errorEncodeFrontmatterFmt, encodeError)
	}
	if closeError := encoder.Close(); closeError != nil {
		return "", fmt.Errorf(errorEncodeFrontmatterFmt, closeError)
	}

	var builder strings.Builder
	builder.WriteString(frontmatterBlockTerminator)
	builder.Write(buffer.Bytes())
	builder.WriteString(frontmatterBlockTerminator)
	builder.WriteString(body)
	return builder.String(), nil
}
