package session

import (
	"bufio"
	"io"
)

// lineReader yields newline-terminated lines from a stream, keeping its
// cursor across calls so a reply scan resumes exactly where the last
// one stopped.
type lineReader struct {
	r *bufio.Reader
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{r: bufio.NewReader(r)}
}

// next returns one line including its terminator. A final unterminated
// fragment before EOF is returned as-is with the EOF surfacing on the
// following call.
func (l *lineReader) next() (string, error) {
	line, err := l.r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}
