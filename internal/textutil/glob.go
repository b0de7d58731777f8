package textutil

// GlobMatch matches s against a pattern where '*' spans any characters,
// including separators, and '?' matches exactly one. path.Match will not
// let '*' cross '/', which URL and repo-path patterns need.
func GlobMatch(pattern, s string) bool {
	p, n := 0, 0
	starP, starN := -1, 0
	for n < len(s) {
		switch {
		case p < len(pattern) && (pattern[p] == s[n] || pattern[p] == '?'):
			p++
			n++
		case p < len(pattern) && pattern[p] == '*':
			starP = p
			starN = n
			p++
		case starP != -1:
			p = starP + 1
			starN++
			n = starN
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}
