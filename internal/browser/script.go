package browser

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Script is a named JavaScript function declaration. Arguments reach the
// function as JSON values, so CSS or user input is never spliced into source.
type Script struct {
	Name   string
	Source string
}

// Expression builds the evaluable expression `(Source).apply(null, [args...])`.
func (s Script) Expression(args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("script %s: encode arguments: %w", s.Name, err)
	}
	return "(" + strings.TrimSpace(s.Source) + ").apply(null, " + string(encoded) + ")", nil
}
