package text

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/attune-io/attune/types"
)

// Message is one turn of a chat prompt.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Templates are plain text files of role-tagged sections:
//
//	user: Classify the following utterance.
//	{text}
//	assistant: The label is
//
// Each section runs until the next role tag or end of file.
var sectionPattern = regexp.MustCompile(`(?s)(user|assistant):\s(.*?)(?=user:|assistant:|$)`)

// placeholderPattern matches {name} substitution slots.
var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ParseTemplate splits a template into role-tagged messages. A template
// with no recognizable section is ErrInvalidConfiguration.
func ParseTemplate(text string) ([]Message, error) {
	matches := sectionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil, types.NewError(types.ErrInvalidConfiguration, "", "",
			fmt.Errorf("prompt template has no user: or assistant: section"))
	}
	messages := make([]Message, 0, len(matches))
	for _, m := range matches {
		messages = append(messages, Message{
			Role:    m[1],
			Content: strings.TrimSpace(m[2]),
		})
	}
	return messages, nil
}

// LoadTemplate reads and parses a template file.
func LoadTemplate(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidConfiguration, "", path,
			fmt.Errorf("read prompt template: %w", err))
	}
	messages, err := ParseTemplate(string(data))
	if err != nil {
		var pe *types.Error
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return messages, nil
}

// Render substitutes {name} placeholders in every message. Unknown
// placeholders are left intact so a missing variable is visible in the
// rendered prompt rather than silently blanked.
func Render(messages []Message, vars map[string]string) []Message {
	rendered := make([]Message, len(messages))
	for i, m := range messages {
		rendered[i] = Message{
			Role: m.Role,
			Content: placeholderPattern.ReplaceAllStringFunc(m.Content, func(s string) string {
				name := s[1 : len(s)-1]
				if v, ok := vars[name]; ok {
					return v
				}
				return s
			}),
		}
	}
	return rendered
}
