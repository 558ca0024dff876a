// Package lexer provides tokenization for Pine Script source lines.
package lexer

import "strings"

// LibraryToken is the fused form of the indicator-library namespace ("ta" ".").
// Downstream code treats it as "a library call follows".
const LibraryToken = "ta."

// Tab is the indentation marker token produced for each leading indent level.
const Tab = "\t"

// separators split tokens and are emitted as single-character tokens.
var separators = map[byte]bool{
	'(': true, ')': true,
	'[': true, ']': true,
	'{': true, '}': true,
	',': true, '.': true,
	'+': true, '-': true, '*': true, '/': true, '%': true,
	'=': true, '<': true, '>': true, '!': true,
	':': true, ';': true, '?': true,
	'\t': true,
}

// twoCharOps are recognized greedily before single-character separators.
var twoCharOps = map[string]bool{
	"==": true, "!=": true, ">=": true, "<=": true,
	"&&": true, "||": true, "++": true, "--": true,
}

// IsInteger reports whether tok is an unsigned decimal integer literal.
func IsInteger(tok string) bool {
	if tok == "" {
		return false
	}
	for i := 0; i < len(tok); i++ {
		if !isDigit(tok[i]) {
			return false
		}
	}
	return true
}

// IsNumber reports whether tok is an integer or a fused float literal ("12.5").
func IsNumber(tok string) bool {
	if IsInteger(tok) {
		return true
	}
	whole, frac, ok := strings.Cut(tok, ".")
	return ok && IsInteger(whole) && IsInteger(frac)
}

// IsString reports whether tok is a string literal.
func IsString(tok string) bool {
	return strings.HasPrefix(tok, `"`)
}

// IsIdentifier reports whether tok looks like a Pine identifier.
func IsIdentifier(tok string) bool {
	if tok == "" || !isAlpha(tok[0]) {
		return false
	}
	for i := 1; i < len(tok); i++ {
		if !isAlphaNumeric(tok[i]) {
			return false
		}
	}
	return true
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlphaNumeric(c byte) bool {
	return isAlpha(c) || isDigit(c)
}
