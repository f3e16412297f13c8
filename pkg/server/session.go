package server

import (
	"abstractvm/pkg/fault"
	"abstractvm/pkg/input"
	"abstractvm/pkg/runner"
	"abstractvm/pkg/vm"
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
)

// Reply answers one line.
type Reply struct {
	Line   int    `json:"line"`
	Output string `json:"output,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Halted bool   `json:"halted"`
}

type session struct {
	conn    *websocket.Conn
	machine *vm.VM
	out     *bytes.Buffer
	maxLine int
	lineNo  int
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		s.log.Warningf("rejected session from %s: %s", r.RemoteAddr, err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("websocket upgrade failed: %s", err)
		return
	}
	defer conn.Close()

	out := &bytes.Buffer{}
	machine := vm.Get(out)
	defer vm.Put(machine)

	sess := &session{conn: conn, machine: machine, out: out, maxLine: s.opts.MaxLine}
	s.log.Infof("session opened from %s", r.RemoteAddr)
	err = sess.serve()
	s.log.Infof("session from %s closed after %d lines: %v", r.RemoteAddr, sess.lineNo, err)
}

// serve answers lines until the peer goes away or exit runs.
func (sess *session) serve() error {
	for {
		msgType, msg, err := sess.conn.ReadMessage()
		if err != nil {
			return err
		}
		sess.lineNo++

		reply := sess.exec(msgType, msg)
		if err := sess.conn.WriteJSON(reply); err != nil {
			return err
		}
		if reply.Halted {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "exit")
			return sess.conn.WriteMessage(websocket.CloseMessage, closeMsg)
		}
	}
}

func (sess *session) exec(msgType int, msg []byte) Reply {
	reply := Reply{Line: sess.lineNo}
	switch {
	case msgType != websocket.TextMessage:
		reply.Error = fmt.Sprintf("unexpected message type: %d", msgType)
		return reply
	case len(msg) > sess.maxLine:
		reply.Error = fmt.Sprintf("line %d is %d bytes long, the limit is %d", sess.lineNo, len(msg), sess.maxLine)
		return reply
	}

	sess.out.Reset()
	text := strings.TrimRight(string(msg), "\r\n")
	_, err := runner.ExecLine(sess.machine, input.Line{No: sess.lineNo, Text: text})
	reply.Output = sess.out.String()
	reply.Halted = sess.machine.Halted()
	if err != nil {
		reply.Error = err.Error()
		if kind := fault.KindOf(err); kind != fault.KindInvalid {
			reply.Kind = kind.String()
		}
	}
	return reply
}
