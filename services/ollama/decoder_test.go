package ollama

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkReader yields one fixed chunk per Read call, so tests control
// exactly where the byte-stream boundaries fall.
type chunkReader struct {
	chunks []string
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, c.chunks[0])
	if n < len(c.chunks[0]) {
		c.chunks[0] = c.chunks[0][n:]
	} else {
		c.chunks = c.chunks[1:]
	}
	return n, nil
}

func drain(t *testing.T, dec *Decoder) []Fragment {
	t.Helper()
	var frags []Fragment
	for {
		frag, err := dec.Next()
		if err == io.EOF {
			return frags
		}
		require.NoError(t, err)
		frags = append(frags, frag)
	}
}

func TestDecoderReassemblesSplitLines(t *testing.T) {
	r := &chunkReader{chunks: []string{
		`{"response":"He","done":false}` + "\n" + `{"respon`,
		`se":"llo","done":true}` + "\n",
	}}
	frags := drain(t, NewDecoder(r, ModeGenerate))

	assert.Equal(t, []Fragment{
		{Text: "He", Done: false},
		{Text: "llo", Done: true},
	}, frags)
}

func TestDecoderChatMode(t *testing.T) {
	input := `{"message":{"content":"Hi "},"done":false}` + "\n" +
		`{"message":{"content":"there"},"done":true}` + "\n"
	frags := drain(t, NewDecoder(strings.NewReader(input), ModeChat))

	assert.Equal(t, []Fragment{
		{Text: "Hi ", Done: false},
		{Text: "there", Done: true},
	}, frags)
}

func TestDecoderSkipsMalformedLines(t *testing.T) {
	input := `{"response":"a","done":false}` + "\n" +
		"this is not json\n" +
		`{"response":"b","done":true}` + "\n"
	frags := drain(t, NewDecoder(strings.NewReader(input), ModeGenerate))

	assert.Equal(t, []Fragment{
		{Text: "a", Done: false},
		{Text: "b", Done: true},
	}, frags)
}

func TestDecoderDiscardsDanglingLine(t *testing.T) {
	input := `{"response":"a","done":false}` + "\n" +
		`{"response":"never closed"`
	frags := drain(t, NewDecoder(strings.NewReader(input), ModeGenerate))

	assert.Equal(t, []Fragment{{Text: "a", Done: false}}, frags)
}

func TestDecoderFinishesAfterDone(t *testing.T) {
	input := `{"response":"a","done":true}` + "\n" +
		`{"response":"stale","done":false}` + "\n"
	dec := NewDecoder(strings.NewReader(input), ModeGenerate)

	frag, err := dec.Next()
	require.NoError(t, err)
	assert.Equal(t, Fragment{Text: "a", Done: true}, frag)

	_, err = dec.Next()
	assert.Equal(t, io.EOF, err)
}

func TestDecoderSkipsBlankLines(t *testing.T) {
	input := "\n\n" + `{"response":"a","done":true}` + "\n"
	frags := drain(t, NewDecoder(strings.NewReader(input), ModeGenerate))

	assert.Equal(t, []Fragment{{Text: "a", Done: true}}, frags)
}
