package device

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestOpenRejectsUnsupportedStreams(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		rate     int
		channels int
		nilSrc   bool
	}{
		{name: "mono", rate: 44100, channels: 1},
		{name: "surround", rate: 44100, channels: 6},
		{name: "zero rate", rate: 0, channels: 2},
		{name: "nil source", rate: 44100, channels: 2, nilSrc: true},
	}

	for _, tt := range tests {
		var src io.Reader = bytes.NewReader(nil)
		if tt.nilSrc {
			src = nil
		}

		if _, err := Open(src, tt.rate, tt.channels); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("%s: error = %v, want ErrUnsupportedFormat", tt.name, err)
		}
	}
}
