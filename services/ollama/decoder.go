package ollama

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"go.uber.org/zap"

	"github.com/gincol-ia/ollama-api/utils/logging"
)

// Mode selects which field of the line-delimited stream carries the
// generated text: /api/generate puts it in "response", /api/chat in
// "message.content".
type Mode int

const (
	ModeGenerate Mode = iota
	ModeChat
)

// Fragment is one decoded piece of generated text plus the completion
// flag from the same line.
type Fragment struct {
	Text string
	Done bool
}

// Decoder turns a raw newline-delimited JSON stream into Fragments.
// One Decoder per request; it is finished once Next returned io.EOF
// or a fragment with Done set.
type Decoder struct {
	reader *bufio.Reader
	mode   Mode
	done   bool
}

func NewDecoder(r io.Reader, mode Mode) *Decoder {
	return &Decoder{reader: bufio.NewReader(r), mode: mode}
}

// Next returns the next fragment. io.EOF signals a clean end of the
// stream; any other error is a mid-stream transport failure. A line
// that fails to parse is skipped, and a trailing line that never saw
// its newline is discarded when the stream ends.
func (d *Decoder) Next() (Fragment, error) {
	if d.done {
		return Fragment{}, io.EOF
	}
	for {
		line, err := d.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF {
				return Fragment{}, io.EOF
			}
			return Fragment{}, err
		}

		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		var payload struct {
			Response string `json:"response"`
			Message  struct {
				Content string `json:"content"`
			} `json:"message"`
			Done bool `json:"done"`
		}
		if err := json.Unmarshal(line, &payload); err != nil {
			logging.ErrorLogger.Error("skipping undecodable stream line", zap.Error(err))
			continue
		}

		text := payload.Response
		if d.mode == ModeChat {
			text = payload.Message.Content
		}
		if payload.Done {
			d.done = true
		}
		return Fragment{Text: text, Done: payload.Done}, nil
	}
}
