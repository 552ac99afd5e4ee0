package chat_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/usecase/chat"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type mockRecorder struct {
	texts []string
	err   error
}

func (m *mockRecorder) Add(ctx context.Context, text string) (model.MemoryID, error) {
	if m.err != nil {
		return "", m.err
	}
	m.texts = append(m.texts, text)
	return model.MemoryID("2023-05-10T20:02:28.328142"), nil
}

type mockCompleter struct {
	replies []string
	err     error
	windows [][]model.Message
	temps   []float32
}

func (m *mockCompleter) Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error) {
	m.windows = append(m.windows, messages)
	m.temps = append(m.temps, temperature)
	if m.err != nil {
		return "", m.err
	}
	reply := m.replies[0]
	m.replies = m.replies[1:]
	return reply, nil
}

type lines struct {
	input []string
}

func (l *lines) Readline() (string, error) {
	if len(l.input) == 0 {
		return "", io.EOF
	}
	line := l.input[0]
	l.input = l.input[1:]
	return line, nil
}

type mockProgress struct {
	started, stopped int
}

func (m *mockProgress) Start() { m.started++ }
func (m *mockProgress) Stop()  { m.stopped++ }

func TestSessionRun(t *testing.T) {
	recorder := &mockRecorder{}
	completer := &mockCompleter{replies: []string{"Hello!", "Fine."}}
	progress := &mockProgress{}
	session := chat.New(recorder, completer, chat.WithProgress(progress), chat.WithAgentName("GPT"))

	var out bytes.Buffer
	err := session.Run(context.Background(), &lines{input: []string{"  hi  ", "", "   ", "how are you?", "quit", "ignored"}}, &out)
	gt.NoError(t, err)

	gt.S(t, out.String()).Contains("Type 'quit' to exit.")
	gt.S(t, out.String()).Contains("Hello!\n")
	gt.S(t, out.String()).Contains("Fine.\n")

	gt.Equal(t, recorder.texts, []string{
		"I said: ```hi```",
		"GPT said: ```Hello!```",
		"I said: ```how are you?```",
		"GPT said: ```Fine.```",
	})
	gt.Equal(t, session.Transcript(), []string{"hi", "Hello!", "how are you?", "Fine."})

	gt.A(t, completer.windows).Length(2)
	gt.Equal(t, completer.windows[1], []model.Message{
		{Role: model.RoleSystem, Content: model.SystemDirective},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "Hello!"},
		{Role: model.RoleUser, Content: "how are you?"},
	})
	gt.Equal(t, completer.temps, []float32{0.7, 0.7})
	gt.Equal(t, progress.started, 2)
	gt.Equal(t, progress.stopped, 2)
}

func TestSessionRunEndsAtEOF(t *testing.T) {
	recorder := &mockRecorder{}
	session := chat.New(recorder, &mockCompleter{replies: []string{"ok"}})

	var out bytes.Buffer
	gt.NoError(t, session.Run(context.Background(), &lines{input: []string{"hi"}}, &out))
	gt.A(t, recorder.texts).Length(2)
	gt.S(t, recorder.texts[1]).Contains("AI said: ```ok```")
}

func TestSessionRunAbortsOnGatewayFailure(t *testing.T) {
	recorder := &mockRecorder{}
	completer := &mockCompleter{err: model.NewGatewayError("mock", goerr.New("unavailable"))}
	progress := &mockProgress{}
	session := chat.New(recorder, completer, chat.WithProgress(progress))

	var out bytes.Buffer
	err := session.Run(context.Background(), &lines{input: []string{"hi", "again"}}, &out)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrGatewayFailure))

	// the user turn was stored before the failure, the loop stopped after it
	gt.Equal(t, recorder.texts, []string{"I said: ```hi```"})
	gt.A(t, completer.windows).Length(1)
	gt.Equal(t, progress.stopped, 1)
	gt.A(t, session.Transcript()).Length(0)
}

func TestSessionRecordFailure(t *testing.T) {
	completer := &mockCompleter{replies: []string{"unused"}}
	session := chat.New(&mockRecorder{err: model.NewGatewayError("mock", goerr.New("down"))}, completer)

	_, err := session.Send(context.Background(), "hi")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrGatewayFailure))
	gt.A(t, completer.windows).Length(0)
}

func TestSessionWindowSize(t *testing.T) {
	completer := &mockCompleter{replies: []string{"12345", "ok"}}
	session := chat.New(&mockRecorder{}, completer, chat.WithWindowSize(10))

	_, err := session.Send(context.Background(), "abcde")
	gt.NoError(t, err)
	_, err = session.Send(context.Background(), "fghij")
	gt.NoError(t, err)

	// "fghij" + "12345" fill the budget, "abcde" is dropped
	gt.Equal(t, completer.windows[1], []model.Message{
		{Role: model.RoleSystem, Content: model.SystemDirective},
		{Role: model.RoleAssistant, Content: "12345"},
		{Role: model.RoleUser, Content: "fghij"},
	})
}

func TestSessionID(t *testing.T) {
	a := chat.New(&mockRecorder{}, &mockCompleter{})
	b := chat.New(&mockRecorder{}, &mockCompleter{})
	gt.True(t, a.ID() != "")
	gt.True(t, a.ID() != b.ID())
}
