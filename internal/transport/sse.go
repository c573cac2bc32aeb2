package transport

import (
	"bufio"
	"io"
	"strings"
)

// readFrames splits an event stream into frames and hands each to emit.
// It understands server-sent events (data: lines, blank-line terminated) and
// bare newline-delimited JSON. emit returns false to stop reading.
// The returned error is the reader's error, io.EOF on a clean end.
func readFrames(r io.Reader, emit func(string) bool) error {
	br := bufio.NewReaderSize(r, 64*1024)
	var data []string
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		frame := strings.Join(data, "\n")
		data = data[:0]
		return emit(frame)
	}
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 || err == nil {
			line = strings.TrimRight(line, "\r\n")
			if !handleLine(line, &data, flush, emit) {
				return nil
			}
		}
		if err != nil {
			if !flush() {
				return nil
			}
			return err
		}
	}
}

func handleLine(line string, data *[]string, flush func() bool, emit func(string) bool) bool {
	switch {
	case line == "":
		return flush()
	case strings.HasPrefix(line, ":"):
		return true
	case strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[DONE]"):
		// newline-delimited JSON without SSE framing
		if !flush() {
			return false
		}
		return emit(line)
	}
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")
	if field == "data" {
		*data = append(*data, value)
	}
	return true
}
