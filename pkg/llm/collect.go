package llm

import (
	"errors"
	"io"
	"strings"
)

// Collect drains a stream into a single string and closes it.
func Collect(s Stream) (string, error) {
	defer s.Close()

	var sb strings.Builder
	for {
		frag, err := s.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(frag)
	}
}
