package script

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokConst
	tokInt
	tokString
	tokGlobal
	tokDot
	tokComma
	tokLParen
	tokRParen
	tokAssign
	tokScope
)

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of line",
	tokIdent:  "identifier",
	tokConst:  "constant",
	tokInt:    "integer",
	tokString: "string",
	tokGlobal: "global variable",
	tokDot:    "'.'",
	tokComma:  "','",
	tokLParen: "'('",
	tokRParen: "')'",
	tokAssign: "'='",
	tokScope:  "'::'",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

type token struct {
	kind tokenKind
	text string
	num  int
	pos  int
}

// lex splits one statement into tokens. A '#' outside a string starts a
// comment that runs to the end of the line.
func lex(line string) ([]token, error) {
	var toks []token

	i := 0
	for i < len(line) {
		c := line[i]

		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == '#':
			i = len(line)
		case c == '.':
			toks = append(toks, token{kind: tokDot, pos: i})
			i++
		case c == ',':
			toks = append(toks, token{kind: tokComma, pos: i})
			i++
		case c == '(':
			toks = append(toks, token{kind: tokLParen, pos: i})
			i++
		case c == ')':
			toks = append(toks, token{kind: tokRParen, pos: i})
			i++
		case c == '=':
			toks = append(toks, token{kind: tokAssign, pos: i})
			i++
		case c == ':' && i+1 < len(line) && line[i+1] == ':':
			toks = append(toks, token{kind: tokScope, pos: i})
			i += 2
		case c == '"' || c == '\'':
			tok, n, err := lexString(line[i:])
			if err != nil {
				return nil, fmt.Errorf("%w at column %d: %w", ErrSyntax, i+1, err)
			}

			tok.pos = i
			toks = append(toks, tok)
			i += n
		case c == '$':
			n := globalLen(line[i+1:])
			if n == 0 {
				return nil, fmt.Errorf("%w at column %d: bad global variable", ErrSyntax, i+1)
			}

			toks = append(toks, token{kind: tokGlobal, text: line[i : i+1+n], pos: i})
			i += 1 + n
		case isDigit(c) || (c == '-' && i+1 < len(line) && isDigit(line[i+1])):
			j := i + 1
			for j < len(line) && (isAlnum(line[j]) || line[j] == '_') {
				j++
			}

			n, err := strconv.ParseInt(line[i:j], 0, 64)
			if err != nil {
				return nil, fmt.Errorf("%w at column %d: bad integer %q", ErrSyntax, i+1, line[i:j])
			}

			toks = append(toks, token{kind: tokInt, num: int(n), text: line[i:j], pos: i})
			i = j
		case isAlpha(c) || c == '_':
			j := i + 1
			for j < len(line) && (isAlnum(line[j]) || line[j] == '_') {
				j++
			}

			if j < len(line) && (line[j] == '?' || line[j] == '!') {
				j++
			}

			kind := tokIdent
			if unicode.IsUpper(rune(c)) {
				kind = tokConst
			}

			toks = append(toks, token{kind: kind, text: line[i:j], pos: i})
			i = j
		default:
			return nil, fmt.Errorf("%w at column %d: unexpected %q", ErrSyntax, i+1, c)
		}
	}

	return append(toks, token{kind: tokEOF, pos: len(line)}), nil
}

// lexString reads a quoted literal at the start of s. Double quotes take Go
// escapes; single quotes only escape the quote and the backslash.
func lexString(s string) (token, int, error) {
	quote := s[0]

	for j := 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case quote:
			raw := s[:j+1]

			if quote == '\'' {
				body := strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(raw[1 : len(raw)-1])

				return token{kind: tokString, text: body}, j + 1, nil
			}

			body, err := strconv.Unquote(raw)
			if err != nil {
				return token{}, 0, fmt.Errorf("bad string %s", raw)
			}

			return token{kind: tokString, text: body}, j + 1, nil
		}
	}

	return token{}, 0, fmt.Errorf("unterminated string")
}

// globalLen returns the length of a global name after '$': an identifier
// or a single punctuation character such as in $/.
func globalLen(s string) int {
	if s == "" {
		return 0
	}

	if isAlpha(s[0]) || s[0] == '_' {
		n := 1
		for n < len(s) && (isAlnum(s[n]) || s[n] == '_') {
			n++
		}

		return n
	}

	if strings.IndexByte(`/\,;.<>!@&~0*$?:"'`, s[0]) >= 0 {
		return 1
	}

	return 0
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlpha(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }

func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }
