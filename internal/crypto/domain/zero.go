package domain

// Zero overwrites b with zeros to clear sensitive data from memory.
func Zero(b []byte) {
	clear(b)
}

// ZeroAll zeroes every buffer.
func ZeroAll(bufs ...[]byte) {
	for _, b := range bufs {
		clear(b)
	}
}
