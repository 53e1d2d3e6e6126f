package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CleanReply strips markdown code fences and locates the first JSON
// object in a model reply. Models are not guaranteed to return raw
// JSON even when asked to.
func CleanReply(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	if start < 0 {
		return "", fmt.Errorf("%w: %q", ErrNoJSON, truncate(raw, 120))
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("%w: unbalanced object in %q", ErrNoJSON, truncate(raw, 120))
}

// DecodeExtraction parses a cleaned model reply into an Extraction and
// checks all three keys are present and non-empty. The valor key may
// arrive as a JSON number or a string.
func DecodeExtraction(raw string) (Extraction, error) {
	obj, err := CleanReply(raw)
	if err != nil {
		return Extraction{}, err
	}

	var loose struct {
		Descricao string          `json:"descricao"`
		Valor     json.RawMessage `json:"valor"`
		Categoria string          `json:"categoria"`
	}
	if err := json.Unmarshal([]byte(obj), &loose); err != nil {
		return Extraction{}, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}

	ext := Extraction{
		Descricao: strings.TrimSpace(loose.Descricao),
		Valor:     rawToString(loose.Valor),
		Categoria: strings.TrimSpace(loose.Categoria),
	}
	if ext.Descricao == "" || ext.Valor == "" || ext.Categoria == "" {
		return Extraction{}, fmt.Errorf("%w: descricao=%q valor=%q categoria=%q",
			ErrIncomplete, ext.Descricao, ext.Valor, ext.Categoria)
	}
	return ext, nil
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
