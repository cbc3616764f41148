package utils

const ellipsis = "..."

// Wrap keeps the first limit runes of str and appends a marker, "..." unless
// one is given. Strings within the limit are returned as is.
func Wrap(str string, limit int, marker ...string) string {
	r := []rune(str)
	if len(r) <= limit {
		return str
	}
	return string(r[:limit]) + wrapMarker(marker)
}

// RightWrap keeps the last limit runes of str. Long dataset paths are logged
// this way so the frame file name stays visible.
func RightWrap(str string, limit int, marker ...string) string {
	r := []rune(str)
	if len(r) <= limit {
		return str
	}
	return wrapMarker(marker) + string(r[len(r)-limit:])
}

func wrapMarker(marker []string) string {
	if len(marker) == 0 {
		return ellipsis
	}
	return marker[0]
}
