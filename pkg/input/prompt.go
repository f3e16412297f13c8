package input

import (
	"errors"
	"io"
	"strings"

	"github.com/peterh/liner"
)

// ErrAborted is returned by Prompt.Fetch when the user interrupts input.
var ErrAborted = errors.New("input: aborted")

// Prompt is an interactive Source with line editing and history. It reads
// one line per Fetch, whatever the batch size, so each instruction runs as
// soon as it is typed.
type Prompt struct {
	state  *liner.State
	prompt string

	lastLineStored int
	pending        *Line
	done           bool
}

func NewPrompt(prompt string) *Prompt {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &Prompt{state: state, prompt: prompt}
}

// Close restores the terminal.
func (p *Prompt) Close() error {
	return p.state.Close()
}

func (p *Prompt) Fetch(int) (int, error) {
	if p.done || p.pending != nil {
		return 0, nil
	}

	text, err := p.state.Prompt(p.prompt)
	switch {
	case errors.Is(err, io.EOF):
		p.done = true
		return 0, nil
	case errors.Is(err, liner.ErrPromptAborted):
		p.done = true
		return 0, ErrAborted
	case err != nil:
		p.done = true
		return 0, err
	}

	p.lastLineStored++
	if text == Sentinel {
		p.done = true
		return 0, nil
	}
	if strings.TrimSpace(text) != "" {
		p.state.AppendHistory(text)
	}
	p.pending = &Line{No: p.lastLineStored, Text: text}
	return 1, nil
}

func (p *Prompt) Next() Line {
	if p.pending == nil {
		return Line{}
	}
	ln := *p.pending
	p.pending = nil
	return ln
}
