package domain

// CountAttributed counts the bytes in one datagram whose value equals the
// player's id. Bytes matching neither player are not an error; they simply
// count for nobody.
func CountAttributed(data []byte, p PlayerID) int {
	if !p.Valid() {
		return 0
	}
	want := p.Byte()
	count := 0
	for _, b := range data {
		if b == want {
			count++
		}
	}
	return count
}
