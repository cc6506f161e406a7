// Package milterendpoint is an MTA-facing wire adapter: a
// github.com/emersion/go-milter server that accumulates one in-flight
// session's envelope, ordered headers and buffered body, then hands them to
// internal/postconfirm.Decider exactly once, at end-of-message, translating
// its Verdict into a milter response.
package milterendpoint

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	milter "github.com/emersion/go-milter"

	"github.com/ietf-svn-conversion/postconfirm/framework/buffer"
	"github.com/ietf-svn-conversion/postconfirm/framework/log"
	"github.com/ietf-svn-conversion/postconfirm/internal/postconfirm"
)

// inMemoryBodyLimit is the largest message body kept entirely in RAM during
// a transaction; larger bodies spill to a temporary file, the same
// RAM-then-disk split maddy's own SMTP endpoint applies to inbound message
// bodies.
const inMemoryBodyLimit = 1 << 20 // 1 MiB

// Endpoint wires a Decider into the milter protocol. One Endpoint serves a
// whole listener; one *session is created per accepted milter connection by
// NewMilter, matching go-milter's per-connection callback dispatch -- there
// is no shared mutable state between sessions beyond the Decider's own
// store connection pool.
type Endpoint struct {
	Decider *postconfirm.Decider
	Log     log.Logger

	// SpillDir is the directory bodies larger than inMemoryBodyLimit are
	// buffered to. Empty uses os.TempDir().
	SpillDir string
}

// Server builds a *milter.Server bound to e. Actions/Protocol are left at
// their zero value: this filter never modifies the message, only accepts,
// rejects or discards it, so no optional milter action bits need to be
// negotiated.
func (e *Endpoint) Server() *milter.Server {
	return &milter.Server{
		NewMilter: func() milter.Milter {
			return &session{endpoint: e, log: e.Log}
		},
	}
}

// session accumulates one message's envelope, headers and body across the
// milter callback sequence. One session serves one milter connection and
// may see several transactions on it; MailFrom clears the envelope, headers,
// subject and body left over from the previous one.
type session struct {
	milter.NoOpMilter

	endpoint *Endpoint
	log      log.Logger

	from       string
	recipients []string
	headers    []postconfirm.Header
	subject    string

	bodySize int
	bodyMem  [][]byte
	bodyFile *os.File
}

func (s *session) Connect(host string, family string, port uint16, addr net.IP, m *milter.Modifier) (milter.Response, error) {
	return milter.RespContinue, nil
}

func (s *session) MailFrom(from string, m *milter.Modifier) (milter.Response, error) {
	s.from = from
	s.recipients = s.recipients[:0]
	s.headers = s.headers[:0]
	s.subject = ""
	s.resetBody()
	return milter.RespContinue, nil
}

// resetBody drops any state left over from a previous transaction on the
// same connection, closing and removing a spill file if one was opened.
func (s *session) resetBody() {
	if s.bodyFile != nil {
		s.bodyFile.Close()
		os.Remove(s.bodyFile.Name())
		s.bodyFile = nil
	}
	s.bodyMem = s.bodyMem[:0]
	s.bodySize = 0
}

func (s *session) RcptTo(rcptTo string, m *milter.Modifier) (milter.Response, error) {
	s.recipients = append(s.recipients, rcptTo)
	return milter.RespContinue, nil
}

func (s *session) Header(name, value string, m *milter.Modifier) (milter.Response, error) {
	s.headers = append(s.headers, postconfirm.Header{Name: name, Value: value})
	if strings.EqualFold(name, "Subject") {
		s.subject = value
	}
	return milter.RespContinue, nil
}

// BodyChunk accumulates one body chunk, the same RAM-then-disk split the
// teacher's SMTP endpoint applies via autoBufferMode: chunks stay in memory
// until their running total crosses inMemoryBodyLimit, at which point
// everything seen so far -- and every chunk after -- is spilled to a
// temporary file instead.
func (s *session) BodyChunk(chunk []byte, m *milter.Modifier) (milter.Response, error) {
	s.bodySize += len(chunk)

	if s.bodyFile != nil {
		if _, err := s.bodyFile.Write(chunk); err != nil {
			return nil, fmt.Errorf("milterendpoint: spilling body: %w", err)
		}
		return milter.RespContinue, nil
	}

	if s.bodySize <= inMemoryBodyLimit {
		// Copy: go-milter reuses its read buffer across callbacks.
		buf := make([]byte, len(chunk))
		copy(buf, chunk)
		s.bodyMem = append(s.bodyMem, buf)
		return milter.RespContinue, nil
	}

	f, err := os.CreateTemp(s.endpoint.SpillDir, "postconfirm-body-*")
	if err != nil {
		return nil, fmt.Errorf("milterendpoint: creating spill file: %w", err)
	}
	for _, c := range s.bodyMem {
		if _, err := f.Write(c); err != nil {
			f.Close()
			os.Remove(f.Name())
			return nil, fmt.Errorf("milterendpoint: spilling body: %w", err)
		}
	}
	if _, err := f.Write(chunk); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, fmt.Errorf("milterendpoint: spilling body: %w", err)
	}
	s.bodyMem = nil
	s.bodyFile = f
	return milter.RespContinue, nil
}

// body returns a buffer.Buffer over the accumulated message body, backed by
// memory or by the spill file depending on which path BodyChunk took.
func (s *session) body() (buffer.Buffer, error) {
	if s.bodyFile == nil {
		total := make([]byte, 0, s.bodySize)
		for _, c := range s.bodyMem {
			total = append(total, c...)
		}
		return buffer.BufferInMemory(bytes.NewReader(total))
	}

	if _, err := s.bodyFile.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("milterendpoint: rewinding spill file: %w", err)
	}
	return buffer.FileBuffer{Path: s.bodyFile.Name()}, nil
}

// Body is the end-of-message callback: every header and body chunk for this
// transaction has been delivered, so this is where the decider runs exactly
// once per message.
func (s *session) Body(m *milter.Modifier) (milter.Response, error) {
	// go-milter's callbacks are synchronous per connection and carry no
	// context of their own, so Decide runs under context.Background() and a
	// session abort does not cancel its store or relay calls. Decide's
	// suspension points still each take a context so that other callers
	// (such as tests) can pass their own.
	ctx := context.Background()

	readBody := func(context.Context) ([]byte, error) {
		buf, err := s.body()
		if err != nil {
			return nil, err
		}
		defer buf.Remove()

		r, err := buf.Open()
		if err != nil {
			return nil, err
		}
		defer r.Close()

		return io.ReadAll(r)
	}

	verdict := s.endpoint.Decider.Decide(ctx, s.from, s.recipients, s.headers, s.subject, readBody)

	s.log.DebugMsg("milter verdict", "sender", s.from, "verdict", verdict.String())

	switch verdict {
	case postconfirm.Accept:
		return milter.RespAccept, nil
	case postconfirm.Reject:
		return milter.RespReject, nil
	case postconfirm.Discard:
		return milter.RespDiscard, nil
	default:
		return milter.RespTempFail, nil
	}
}

var _ milter.Milter = (*session)(nil)
