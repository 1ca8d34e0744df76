package providers

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// TokenInfo carries the token figures a provider reported when rejecting a
// prompt that exceeds the model's context window. A zero field means the
// provider did not disclose that figure.
type TokenInfo struct {
	ActualTokens int
	MaxTokens    int
}

type contextLimitError struct {
	info TokenInfo
	body string
}

func (e *contextLimitError) Error() string { return "context limit exceeded: " + e.body }

// ContextLimitInfo extracts the token figures from a context-window
// rejection. The second return is false when err is not one.
func ContextLimitInfo(err error) (TokenInfo, bool) {
	var cle *contextLimitError
	if errors.As(err, &cle) {
		return cle.info, true
	}
	return TokenInfo{}, false
}

// contextLimitMarkers gate detection. Matched case-insensitively against the
// error response body.
var contextLimitMarkers = []string{
	"prompt is too long",
	"context_length_exceeded",
	"maximum context length",
	"exceeds the maximum number of tokens",
	"exceeds the available context size",
}

type tokenPattern struct {
	re          *regexp.Regexp
	actualFirst bool
}

var tokenPatterns = []tokenPattern{
	// anthropic: "prompt is too long: 209924 tokens > 200000 maximum"
	{regexp.MustCompile(`prompt is too long: ([\d,]+) tokens > ([\d,]+) maximum`), true},
	// openai: "This model's maximum context length is 128000 tokens. However,
	// your messages resulted in 273619 tokens." OpenAI-compatible endpoints
	// phrase the second half as "you requested about N tokens".
	{regexp.MustCompile(`maximum context length is ([\d,]+) tokens.*?(?:resulted in|requested about) ([\d,]+) tokens`), false},
	// gemini: "The input token count (1189769) exceeds the maximum number of
	// tokens allowed (1048576)."
	{regexp.MustCompile(`input token count \(?([\d,]+)\)? exceeds the maximum number of tokens allowed \(?([\d,]+)\)?`), true},
}

// detectContextLimit classifies an error response body. It returns a
// contextLimitError when the body describes a context-window rejection, with
// whatever token figures the body discloses, and nil otherwise.
func detectContextLimit(body string) *contextLimitError {
	lower := strings.ToLower(body)
	matched := false
	for _, marker := range contextLimitMarkers {
		if strings.Contains(lower, marker) {
			matched = true
			break
		}
	}
	if !matched {
		return nil
	}

	var info TokenInfo
	for _, p := range tokenPatterns {
		m := p.re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		first := parseTokenCount(m[1])
		second := parseTokenCount(m[2])
		if p.actualFirst {
			info = TokenInfo{ActualTokens: first, MaxTokens: second}
		} else {
			info = TokenInfo{ActualTokens: second, MaxTokens: first}
		}
		break
	}
	return &contextLimitError{info: info, body: body}
}

// parseTokenCount parses a token figure, tolerating thousands separators.
func parseTokenCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return 0
	}
	return n
}
