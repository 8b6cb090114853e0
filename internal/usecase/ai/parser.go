package ai

import (
	"encoding/json"
	"strings"

	"github.com/johnquangdev/meeting-digest/internal/domain/entities"
	usecaseErrors "github.com/johnquangdev/meeting-digest/internal/usecase/errors"
)

// candidateTextPath locates the generated text inside a Gemini response envelope
var candidateTextPath = []any{"candidates", 0, "content", "parts", 0, "text"}

// Parser turns Gemini output into summaries. It holds no state and is safe
// for concurrent use.
type Parser struct{}

// NewParser creates a new Parser instance
func NewParser() *Parser {
	return &Parser{}
}

// ParseSummaryResponse reads the candidate text from a full generateContent
// body and extracts the summary object embedded in it. Every failure is a
// *ParseError.
func (p *Parser) ParseSummaryResponse(raw string) (*entities.StructuredSummary, error) {
	text, err := p.ExtractResponseText(raw)
	if err != nil {
		return nil, err
	}
	return p.ParseSummaryText(text)
}

// ExtractResponseText returns candidates[0].content.parts[0].text from a
// response body
func (p *Parser) ExtractResponseText(raw string) (string, error) {
	var envelope any
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return "", usecaseErrors.NewParseError("response body is not valid JSON", err)
	}

	text, ok := lookupString(envelope, candidateTextPath...)
	if !ok {
		reason := "response has no candidate text"
		if blocked, ok := lookupString(envelope, "promptFeedback", "blockReason"); ok {
			reason += " (prompt blocked: " + blocked + ")"
		} else if finish, ok := lookupString(envelope, "candidates", 0, "finishReason"); ok {
			reason += " (finish reason: " + finish + ")"
		}
		return "", usecaseErrors.NewParseError(reason, nil)
	}
	return text, nil
}

// ParseSummaryText extracts the summary object from model text that may be
// wrapped in prose or markdown fences. The object is taken from the first
// '{' to the last '}'; when that region does not decode, the first complete
// object carrying an "overview" key is used instead.
func (p *Parser) ParseSummaryText(text string) (*entities.StructuredSummary, error) {
	content := extractJSON(text)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end < start {
		return nil, usecaseErrors.NewParseError("no JSON object found in model output", nil)
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(content[start:end+1]), &obj); err != nil {
		var ok bool
		obj, ok = scanForSummaryObject(content, start)
		if !ok {
			return nil, usecaseErrors.NewParseError("JSON object in model output is malformed", err)
		}
	}

	return toStructuredSummary(obj)
}

// ExtractFragmentText returns the text carried by one stream fragment, or ""
// when the fragment is blank or cannot be read. A fragment may be an SSE
// data line or a piece of a JSON array stream.
func (p *Parser) ExtractFragmentText(fragment string) string {
	s := strings.TrimSpace(fragment)
	s = strings.TrimSpace(strings.TrimPrefix(s, "data:"))
	if s == "" {
		return ""
	}

	var node any
	if err := json.Unmarshal([]byte(s), &node); err == nil {
		if items, ok := node.([]any); ok {
			var b strings.Builder
			for _, item := range items {
				if text, ok := lookupString(item, candidateTextPath...); ok {
					b.WriteString(text)
				}
			}
			return b.String()
		}
		text, _ := lookupString(node, candidateTextPath...)
		return text
	}

	// array framing: "[{...}", ",{...}", "]"
	s = strings.TrimLeft(s, "[,")
	s = strings.TrimRight(s, "],")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if err := json.Unmarshal([]byte(s), &node); err != nil {
		return ""
	}
	text, _ := lookupString(node, candidateTextPath...)
	return text
}

// extractJSON strips markdown code fences around the model's JSON
func extractJSON(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		if idx := strings.LastIndex(content, "```"); idx != -1 {
			content = content[:idx]
		}
	}

	return strings.TrimSpace(content)
}

// scanForSummaryObject decodes the first complete JSON object, starting at or
// after from, that has an "overview" key
func scanForSummaryObject(content string, from int) (map[string]any, bool) {
	for i := from; i != -1 && i < len(content); {
		var obj map[string]any
		dec := json.NewDecoder(strings.NewReader(content[i:]))
		if err := dec.Decode(&obj); err == nil {
			if _, ok := obj["overview"]; ok {
				return obj, true
			}
		}

		next := strings.Index(content[i+1:], "{")
		if next == -1 {
			break
		}
		i += next + 1
	}
	return nil, false
}

func toStructuredSummary(obj map[string]any) (*entities.StructuredSummary, error) {
	overview, _ := obj["overview"].(string)
	overview = strings.TrimSpace(overview)
	if overview == "" {
		return nil, usecaseErrors.NewParseError("overview is missing or empty", entities.ErrEmptyOverview)
	}

	summary := entities.NewStructuredSummary(overview)

	if decisions, ok := obj["keyDecisions"].([]any); ok {
		for _, d := range decisions {
			decision, ok := d.(string)
			if !ok {
				continue
			}
			if decision = strings.TrimSpace(decision); decision != "" {
				summary.KeyDecisions = append(summary.KeyDecisions, decision)
			}
		}
	}

	if items, ok := obj["actionItems"].([]any); ok {
		for _, it := range items {
			item, ok := it.(map[string]any)
			if !ok {
				continue
			}
			task, _ := item["task"].(string)
			task = strings.TrimSpace(task)
			if task == "" {
				continue
			}
			assignee, _ := item["assignee"].(string)
			summary.ActionItems = append(summary.ActionItems, entities.ActionItem{
				Task:     task,
				Assignee: strings.TrimSpace(assignee),
			})
		}
	}

	return summary, nil
}

// lookupPath walks a decoded JSON tree. String steps index objects, int
// steps index arrays. A missing step reports false instead of failing.
func lookupPath(node any, path ...any) (any, bool) {
	current := node
	for _, step := range path {
		switch key := step.(type) {
		case string:
			obj, ok := current.(map[string]any)
			if !ok {
				return nil, false
			}
			if current, ok = obj[key]; !ok {
				return nil, false
			}
		case int:
			arr, ok := current.([]any)
			if !ok || key < 0 || key >= len(arr) {
				return nil, false
			}
			current = arr[key]
		default:
			return nil, false
		}
	}
	return current, true
}

func lookupString(node any, path ...any) (string, bool) {
	v, ok := lookupPath(node, path...)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
