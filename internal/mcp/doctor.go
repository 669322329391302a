package mcp

import (
	"errors"
	"regexp"
	"slices"

	"github.com/strogmv/assembler/assembler"
)

var codePattern = regexp.MustCompile(`\b[A-Z]+(?:_[A-Z]+)*(?:_ERROR|_BUG)\b`)

// diagnose finds stable error codes in free text and pairs them with hints.
func diagnose(text string) []map[string]string {
	var out []map[string]string
	seen := map[string]bool{}
	for _, code := range codePattern.FindAllString(text, -1) {
		if seen[code] || !slices.Contains(assembler.StableErrorCodes, code) {
			continue
		}
		seen[code] = true
		out = append(out, map[string]string{"code": code, "hint": assembler.Hint(code)})
	}
	return out
}

func errorPayload(err error) map[string]any {
	p := map[string]any{"message": err.Error()}
	var de *assembler.DeploymentError
	if errors.As(err, &de) {
		p["code"] = de.Code
		p["stage"] = string(de.Stage)
		if h := assembler.Hint(de.Code); h != "" {
			p["hint"] = h
		}
	}
	return p
}
