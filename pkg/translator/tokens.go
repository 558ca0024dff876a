package translator

import "github.com/pinewealth/pinewealth/pkg/lexer"

func at(toks []string, i int) string {
	if i < 0 || i >= len(toks) {
		return ""
	}
	return toks[i]
}

func indexOf(toks []string, tok string) int {
	for i, t := range toks {
		if t == tok {
			return i
		}
	}
	return -1
}

func containsAny(toks []string, set map[string]bool) bool {
	for _, t := range toks {
		if set[t] {
			return true
		}
	}
	return false
}

// matching returns the index of the bracket closing the one at toks[open],
// or -1.
func matching(toks []string, open int) int {
	depth := 0
	for i := open; i < len(toks); i++ {
		switch toks[i] {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// enclosed reports whether expr is a single parenthesised group.
func enclosed(expr string) bool {
	if len(expr) < 2 || expr[0] != '(' || expr[len(expr)-1] != ')' {
		return false
	}
	depth := 0
	for i := 0; i < len(expr); i++ {
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(expr)-1 {
				return false
			}
		}
	}
	return true
}

// arg is one call argument, with its keyword when written as "key = value".
type arg struct {
	key  string
	toks []string
}

type argList []arg

// splitArgs splits call arguments on top-level commas.
func splitArgs(toks []string) argList {
	if len(toks) == 0 {
		return nil
	}
	var out argList
	depth, start := 0, 0
	for i, t := range toks {
		switch t {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
		case ",":
			if depth == 0 {
				out = append(out, newArg(toks[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, newArg(toks[start:]))
}

func newArg(toks []string) arg {
	if len(toks) > 2 && lexer.IsIdentifier(toks[0]) && toks[1] == "=" {
		return arg{key: toks[0], toks: toks[2:]}
	}
	return arg{toks: toks}
}

// keyword returns the value of the argument named key.
func (a argList) keyword(key string) ([]string, bool) {
	for _, x := range a {
		if x.key == key {
			return x.toks, true
		}
	}
	return nil, false
}

// positional returns the n-th argument written without a keyword.
func (a argList) positional(n int) ([]string, bool) {
	for _, x := range a {
		if x.key != "" {
			continue
		}
		if n == 0 {
			return x.toks, true
		}
		n--
	}
	return nil, false
}

// value returns the argument named key, falling back to positional n.
func (a argList) value(key string, n int) ([]string, bool) {
	if v, ok := a.keyword(key); ok {
		return v, true
	}
	return a.positional(n)
}
