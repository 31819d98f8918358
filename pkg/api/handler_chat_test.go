package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riverrun/agentstream/pkg/agentgraph"
)

func canned(content string) agentgraph.Graph {
	return agentgraph.NewScripted([]agentgraph.ScriptedStep{
		{Final: true, FinalContent: content},
	})
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateChatAndMessageFlowCompletes(t *testing.T) {
	s := newTestServer(t, canned("All eleven compliance checks passed for this vendor."))

	rec := doJSON(t, s.echo, http.MethodPost, "/api/v1/chats", CreateChatRequest{UserID: "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var chatResp CreateChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chatResp))
	require.NotEmpty(t, chatResp.ChatID)

	rec = doJSON(t, s.echo, http.MethodPost, "/api/v1/chats/"+chatResp.ChatID+"/messages", CreateMessageRequest{Content: "What about vendor X?"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msgResp CreateMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgResp))
	require.NotEmpty(t, msgResp.MessageID)
	require.Contains(t, msgResp.StreamURL, msgResp.MessageID)

	require.Eventually(t, func() bool {
		rec := doJSON(t, s.echo, http.MethodGet, "/api/v1/messages/"+msgResp.MessageID+"/events", nil)
		if rec.Code != http.StatusOK {
			return false
		}
		var evResp EventsResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &evResp); err != nil {
			return false
		}
		return evResp.Count > 0 && evResp.Events[evResp.Count-1].(map[string]any)["type"] == "END"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCreateMessageRejectsUnknownChat(t *testing.T) {
	s := newTestServer(t, canned("unused"))

	rec := doJSON(t, s.echo, http.MethodPost, "/api/v1/chats/does-not-exist/messages", CreateMessageRequest{Content: "hi"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateMessageRejectsEmptyContent(t *testing.T) {
	s := newTestServer(t, canned("unused"))

	rec := doJSON(t, s.echo, http.MethodPost, "/api/v1/chats", CreateChatRequest{UserID: "u1"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var chatResp CreateChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &chatResp))

	rec = doJSON(t, s.echo, http.MethodPost, "/api/v1/chats/"+chatResp.ChatID+"/messages", CreateMessageRequest{Content: ""})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
