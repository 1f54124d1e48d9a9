package tessera

import "strings"

// tokenKind classifies a raw template token.
type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOutput
	tokenTag
)

// token is a lexed piece of template source. For tokenOutput and tokenTag
// the value is the trimmed content between the delimiters.
type token struct {
	kind  tokenKind
	value string
	line  int
}

// tokenizeError carries a position; the parser wraps it with the
// template name.
type tokenizeError struct {
	line    int
	message string
}

func (e *tokenizeError) Error() string {
	return e.message
}

// tokenize splits template source into text, output ({{ }}), and tag
// ({% %}) tokens. Comments ({# #}) are dropped. Delimiters are not
// nestable; an unterminated delimiter is an error.
func tokenize(source string) ([]token, error) {
	var tokens []token
	line := 1
	rest := source

	for len(rest) > 0 {
		open, marker := findDelimiter(rest)
		if open == -1 {
			tokens = append(tokens, token{kind: tokenText, value: rest, line: line})
			break
		}

		if open > 0 {
			text := rest[:open]
			tokens = append(tokens, token{kind: tokenText, value: text, line: line})
			line += strings.Count(text, "\n")
		}
		rest = rest[open:]

		var closing string
		switch marker {
		case "{{":
			closing = "}}"
		case "{%":
			closing = "%}"
		case "{#":
			closing = "#}"
		}

		end := strings.Index(rest, closing)
		if end == -1 {
			return nil, &tokenizeError{line: line, message: "unterminated " + marker + " delimiter"}
		}
		content := rest[2:end]
		switch marker {
		case "{{":
			tokens = append(tokens, token{kind: tokenOutput, value: strings.TrimSpace(content), line: line})
		case "{%":
			tokens = append(tokens, token{kind: tokenTag, value: strings.TrimSpace(content), line: line})
		}
		line += strings.Count(content, "\n")
		rest = rest[end+2:]
	}

	return tokens, nil
}

// findDelimiter locates the first {{, {% or {# in s, returning its offset
// and which marker was found, or (-1, "").
func findDelimiter(s string) (int, string) {
	from := 0
	for {
		idx := strings.IndexByte(s[from:], '{')
		if idx == -1 {
			return -1, ""
		}
		pos := from + idx
		if pos+1 < len(s) {
			switch s[pos+1] {
			case '{':
				return pos, "{{"
			case '%':
				return pos, "{%"
			case '#':
				return pos, "{#"
			}
		}
		from = pos + 1
	}
}
