package lexer

// FuseFloats glues split numeric literals back together: "12" "." "5" becomes
// "12.5", a trailing "12" "." becomes "12.0" and a leading "." "5" becomes
// "0.5". Already fused literals pass through unchanged.
func FuseFloats(tokens []string) []string {
	combined := make([]string, 0, len(tokens))
	for n := 0; n < len(tokens); n++ {
		tok := tokens[n]
		next := at(tokens, n+1)
		switch {
		case IsInteger(tok) && next == "." && IsInteger(at(tokens, n+2)):
			combined = append(combined, tok+"."+tokens[n+2])
			n += 2
		case IsInteger(tok) && next == ".":
			combined = append(combined, tok+".0")
			n++
		case tok == "." && IsInteger(next) && !IsIdentifierEnd(at(tokens, n-1)):
			combined = append(combined, "0."+next)
			n++
		default:
			combined = append(combined, tok)
		}
	}
	return combined
}

// FuseLibrary replaces each "ta" "." pair with LibraryToken.
func FuseLibrary(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for n := 0; n < len(tokens); n++ {
		if tokens[n] == "ta" && at(tokens, n+1) == "." {
			out = append(out, LibraryToken)
			n++
			continue
		}
		out = append(out, tokens[n])
	}
	return out
}

// Normalize runs both fusion passes.
func Normalize(tokens []string) []string {
	return FuseLibrary(FuseFloats(tokens))
}

// IsIdentifierEnd reports whether tok ends an operand that a following "."
// could be a member access on (an identifier or a closing bracket).
func IsIdentifierEnd(tok string) bool {
	if tok == "" {
		return false
	}
	c := tok[len(tok)-1]
	return isAlpha(c) || c == ')' || c == ']'
}

func at(tokens []string, i int) string {
	if i < 0 || i >= len(tokens) {
		return ""
	}
	return tokens[i]
}
