package adapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/gt"
)

func newTestClaude(t *testing.T, status int, response string, check func(body map[string]any)) *adapter.ClaudeClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gt.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"))
		var body map[string]any
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if check != nil {
			check(body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	return adapter.NewClaude("test-key", adapter.WithClaudeRequestOptions(
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	))
}

func TestClaudeComplete(t *testing.T) {
	client := newTestClaude(t, http.StatusOK, `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "Hello there"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 3, "output_tokens": 2}
	}`, func(body map[string]any) {
		system, ok := body["system"].([]any)
		gt.True(t, ok)
		gt.A(t, system).Length(1)

		messages, ok := body["messages"].([]any)
		gt.True(t, ok)
		gt.A(t, messages).Length(3)
		gt.Equal(t, messages[1].(map[string]any)["role"], any("assistant"))
	})

	reply, err := client.Complete(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "You are a helpful assistant."},
		{Role: model.RoleUser, Content: "hi"},
		{Role: model.RoleAssistant, Content: "hello"},
		{Role: model.RoleUser, Content: "how are you?"},
	}, 0.7)
	gt.NoError(t, err)
	gt.Equal(t, reply, "Hello there")
}

func TestClaudeCompleteSystemOnly(t *testing.T) {
	client := newTestClaude(t, http.StatusOK, `{
		"id": "msg_3",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [{"type": "text", "text": "How can I help?"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 6, "output_tokens": 4}
	}`, func(body map[string]any) {
		_, hasSystem := body["system"]
		gt.True(t, !hasSystem)

		messages, ok := body["messages"].([]any)
		gt.True(t, ok)
		gt.A(t, messages).Length(1)
		msg := messages[0].(map[string]any)
		gt.Equal(t, msg["role"], any("user"))
		content := msg["content"].([]any)
		gt.A(t, content).Length(1)
		gt.Equal(t, content[0].(map[string]any)["text"], any(model.SystemDirective))
	})

	reply, err := client.Complete(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: model.SystemDirective},
	}, 0.7)
	gt.NoError(t, err)
	gt.Equal(t, reply, "How can I help?")
}

func TestClaudeCompleteNoText(t *testing.T) {
	client := newTestClaude(t, http.StatusOK, `{
		"id": "msg_2",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-20250514",
		"content": [],
		"stop_reason": "max_tokens",
		"stop_sequence": null,
		"usage": {"input_tokens": 3, "output_tokens": 0}
	}`, nil)

	_, err := client.Complete(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, 0)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrGatewayFailure))
}

func TestClaudeCompleteAPIError(t *testing.T) {
	client := newTestClaude(t, http.StatusBadRequest,
		`{"type": "error", "error": {"type": "invalid_request_error", "message": "bad"}}`, nil)

	_, err := client.Complete(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, 0)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrGatewayFailure))
}

func TestClaudeIntegration(t *testing.T) {
	apiKey := os.Getenv("TEST_ANTHROPIC_API_KEY")
	if apiKey == "" {
		t.Skip("TEST_ANTHROPIC_API_KEY is not set")
	}

	reply, err := adapter.NewClaude(apiKey).Complete(context.Background(), []model.Message{
		{Role: model.RoleUser, Content: "Reply with the single word: pong"},
	}, 0)
	gt.NoError(t, err)
	gt.S(t, strings.ToLower(reply)).Contains("pong")
}
