package strutil

// CmpFold reports whether a and b are equal, ignoring ASCII case.
func CmpFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}

	return CmpFoldFast(a, b)
}

// CmpFoldFast is CmpFold without the length check, for callers that already know
// a and b are the same length (e.g. a header key matched against a known constant).
func CmpFoldFast(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}

	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}

	return c
}
