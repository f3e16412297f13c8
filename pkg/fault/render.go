package fault

import (
	"errors"
	"fmt"
	"strings"
)

// Render formats err for a terminal. When err is an *Error with a column,
// the offending source line is printed with a caret under that column:
//
//	SyntaxError at 3:11: Duplicate instruction/opcode: pop
//	   3 | push int8 pop (1)
//	     |           ^
//
// Any other error is rendered with its Error() text.
func Render(err error, text string) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}
	if fe.Line == 0 {
		return fmt.Sprintf("%s: %s", fe.Kind, fe.Msg)
	}
	if fe.Column == 0 {
		return fmt.Sprintf("%s at line %d: %s", fe.Kind, fe.Line, fe.Msg)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s at %d:%d: %s\n", fe.Kind, fe.Line, fe.Column, fe.Msg)

	gutter := fmt.Sprintf("%4d | ", fe.Line)
	b.WriteString(gutter)
	b.WriteString(strings.TrimRight(text, "\r\n"))
	b.WriteByte('\n')

	col := fe.Column
	if limit := len(text) + 1; col > limit {
		col = limit
	}
	b.WriteString(strings.Repeat(" ", len(gutter)-2))
	b.WriteString("| ")
	// Keep tabs so the caret lines up with tab-indented source.
	for i := 0; i < col-1; i++ {
		if i < len(text) && text[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}
