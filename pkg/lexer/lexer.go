// Package lexer provides tokenization for Pine Script source lines.
//
// Pine is line oriented, so the lexer works one statement at a time and
// produces a flat list of string tokens. Tokens carry no type tag; callers
// re-derive categories by value (see IsInteger, IsString, IsIdentifier).
//
// Rules:
//
//	STRING      - "..." through the next unescaped quote, quotes kept
//	COMMENT     - // or # outside a string ends the line
//	WHITESPACE  - separates tokens, never emitted (tabs are emitted)
//	OPERATORS   - == != >= <= && || ++ -- matched before single characters
//	SEPARATORS  - ( ) [ ] { } , . + - * / % = < > ! : ; ? and tab
package lexer

import (
	"strings"
)

// Lexer tokenizes a single Pine Script line.
type Lexer struct {
	input   string          // The line being tokenized
	pos     int             // Current position in input
	current strings.Builder // Pending identifier/number characters
	tokens  []string
}

// New creates a new Lexer for the given line.
func New(line string) *Lexer {
	return &Lexer{
		input:  line,
		tokens: make([]string, 0),
	}
}

// Tokenize is shorthand for New(line).Tokenize().
func Tokenize(line string) []string {
	return New(line).Tokenize()
}

// Tokenize processes the whole line and returns its tokens.
func (l *Lexer) Tokenize() []string {
	for !l.isAtEnd() {
		c := l.peek()
		switch {
		case c == '"':
			l.flush()
			l.scanString()
		case (c == '/' && l.peekNext() == '/') || c == '#':
			l.flush()
			l.pos = len(l.input)
		case c == '\t':
			l.flush()
			l.tokens = append(l.tokens, Tab)
			l.advance()
		case c == ' ' || c == '\r' || c == '\n' || c == '\v' || c == '\f':
			l.flush()
			l.advance()
		case separators[c]:
			l.flush()
			l.scanOperator()
		default:
			l.current.WriteByte(l.advance())
		}
	}
	l.flush()
	return l.tokens
}

func (l *Lexer) isAtEnd() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) advance() byte {
	ch := l.input[l.pos]
	l.pos++
	return ch
}

// flush emits any pending identifier/number characters as a token.
func (l *Lexer) flush() {
	if l.current.Len() > 0 {
		l.tokens = append(l.tokens, l.current.String())
		l.current.Reset()
	}
}

// scanString consumes a double-quoted literal. An unterminated literal runs
// to the end of the line.
func (l *Lexer) scanString() {
	start := l.pos
	l.advance() // opening quote
	for !l.isAtEnd() {
		c := l.advance()
		if c == '"' && l.input[l.pos-2] != '\\' {
			break
		}
	}
	l.tokens = append(l.tokens, l.input[start:l.pos])
}

func (l *Lexer) scanOperator() {
	if l.pos+1 < len(l.input) {
		two := l.input[l.pos : l.pos+2]
		if twoCharOps[two] {
			l.tokens = append(l.tokens, two)
			l.pos += 2
			return
		}
	}
	l.tokens = append(l.tokens, string(l.advance()))
}

// ExpandIndent replaces each leading group of four spaces (or a literal tab)
// with a single tab and returns the rewritten line with its indent depth.
func ExpandIndent(line string) (string, int) {
	rest := line
	depth := 0
	for {
		if strings.HasPrefix(rest, "    ") {
			rest = rest[4:]
		} else if strings.HasPrefix(rest, "\t") {
			rest = rest[1:]
		} else {
			break
		}
		depth++
	}
	return strings.Repeat(Tab, depth) + rest, depth
}

// SplitStatements splits a raw line on semicolons that sit outside any
// parenthesis, bracket or brace nesting. Semicolons inside string literals or
// after a // comment never split.
func SplitStatements(line string) []string {
	var result []string
	var current strings.Builder
	parenDepth, bracketDepth, braceDepth := 0, 0, 0
	inString := false

	for i := 0; i < len(line); i++ {
		c := line[i]
		if inString {
			if c == '"' && line[i-1] != '\\' {
				inString = false
			}
			current.WriteByte(c)
			continue
		}
		switch c {
		case '"':
			inString = true
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				current.WriteString(line[i:])
				i = len(line)
				continue
			}
		case '(':
			parenDepth++
		case ')':
			parenDepth--
		case '[':
			bracketDepth++
		case ']':
			bracketDepth--
		case '{':
			braceDepth++
		case '}':
			braceDepth--
		case ';':
			if parenDepth == 0 && bracketDepth == 0 && braceDepth == 0 {
				result = append(result, current.String())
				current.Reset()
				continue
			}
		}
		current.WriteByte(c)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}
	return result
}
