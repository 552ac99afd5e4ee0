package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// QuitCommand ends the session
	QuitCommand = "quit"

	// DefaultAgentName labels the assistant's turns in stored memories
	DefaultAgentName = "AI"

	replyTemperature = 0.7
)

// Recorder stores each turn as a memory
type Recorder interface {
	Add(ctx context.Context, text string) (model.MemoryID, error)
}

// LineReader reads one line of user input. It returns io.EOF when input ends.
type LineReader interface {
	Readline() (string, error)
}

// Progress is shown while waiting for the assistant's reply
type Progress interface {
	Start()
	Stop()
}

type nopProgress struct{}

func (nopProgress) Start() {}
func (nopProgress) Stop()  {}

// Session is an interactive conversation whose turns are written to memory.
// The transcript itself lives only as long as the session.
type Session struct {
	id         string
	recorder   Recorder
	completer  adapter.Completer
	progress   Progress
	windowSize int
	agentName  string

	transcript []string
}

// Option is a functional option for Session
type Option func(*Session)

func WithProgress(p Progress) Option {
	return func(s *Session) {
		s.progress = p
	}
}

// WithWindowSize sets the character budget of the context sent with each turn
func WithWindowSize(n int) Option {
	return func(s *Session) {
		s.windowSize = n
	}
}

func WithAgentName(name string) Option {
	return func(s *Session) {
		s.agentName = name
	}
}

func New(recorder Recorder, completer adapter.Completer, opts ...Option) *Session {
	s := &Session{
		id:         uuid.NewString(),
		recorder:   recorder,
		completer:  completer,
		progress:   nopProgress{},
		windowSize: DefaultWindowSize,
		agentName:  DefaultAgentName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier attached to log records
func (s *Session) ID() string {
	return s.id
}

// Transcript returns the turns exchanged so far, oldest first
func (s *Session) Transcript() []string {
	return append([]string(nil), s.transcript...)
}

// Run reads user lines until the quit command or end of input, writing each
// reply to w. Any failure during a turn ends the session.
func (s *Session) Run(ctx context.Context, input LineReader, w io.Writer) error {
	logger := logging.From(ctx).With("session_id", s.id)
	ctx = logging.With(ctx, logger)

	fmt.Fprintf(w, "Type '%s' to exit.\n", QuitCommand)
	logger.Debug("chat session started")

	for {
		line, err := input.Readline()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return goerr.Wrap(err, "failed to read input")
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if text == QuitCommand {
			break
		}

		reply, err := s.Send(ctx, text)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, reply)
	}

	logger.Debug("chat session ended", "turns", len(s.transcript))
	return nil
}

// Send runs one turn: the user text and the reply are both stored as memories
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.transcript = append(s.transcript, text)

	if _, err := s.recorder.Add(ctx, fmt.Sprintf("I said: ```%s```", text)); err != nil {
		s.transcript = s.transcript[:len(s.transcript)-1]
		return "", goerr.Wrap(err, "failed to record user turn")
	}

	window, err := BuildWindow(s.transcript, s.windowSize)
	if err != nil {
		s.transcript = s.transcript[:len(s.transcript)-1]
		return "", err
	}

	s.progress.Start()
	reply, err := s.completer.Complete(ctx, window, replyTemperature)
	s.progress.Stop()
	if err != nil {
		s.transcript = s.transcript[:len(s.transcript)-1]
		return "", goerr.Wrap(err, "failed to get reply", goerr.V("window", len(window)))
	}

	s.transcript = append(s.transcript, reply)
	if _, err := s.recorder.Add(ctx, fmt.Sprintf("%s said: ```%s```", s.agentName, reply)); err != nil {
		return "", goerr.Wrap(err, "failed to record reply")
	}

	logging.From(ctx).Debug("chat turn completed",
		"window_messages", len(window),
		"transcript", len(s.transcript))
	return reply, nil
}
