package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/solver"
)

type stubChallenges struct {
	created   *challenge.Challenge
	createErr error
	gotID     string
	gotInput  string
	result    challenge.Result
}

func (s *stubChallenges) Create(context.Context) (*challenge.Challenge, error) {
	return s.created, s.createErr
}

func (s *stubChallenges) Verify(_ context.Context, id, submitted string) challenge.Result {
	s.gotID, s.gotInput = id, submitted
	return s.result
}

type stubSolver struct {
	got string
	res solver.Result
}

func (s *stubSolver) Solve(_ context.Context, image string) solver.Result {
	s.got = image
	return s.res
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func decodeText(t *testing.T, res *mcp.CallToolResult, into any) {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	require.NoError(t, json.Unmarshal([]byte(tc.Text), into))
}

func TestGenerate(t *testing.T) {
	svc := &stubChallenges{created: &challenge.Challenge{ID: "c1", Text: "AB3dE9", Image: "data:image/png;base64,AAAA"}}
	tl := New(svc, &stubSolver{}, nil)

	res, err := tl.handleGenerate(context.Background(), callRequest(ToolGenerate, nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var got map[string]string
	decodeText(t, res, &got)
	assert.Equal(t, map[string]string{"id": "c1", "text": "AB3dE9", "image": "data:image/png;base64,AAAA"}, got)
}

func TestGenerateStoreFailure(t *testing.T) {
	tl := New(&stubChallenges{createErr: errors.New("redis down")}, &stubSolver{}, nil)
	res, err := tl.handleGenerate(context.Background(), callRequest(ToolGenerate, nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestVerify(t *testing.T) {
	svc := &stubChallenges{result: challenge.Correct}
	tl := New(svc, &stubSolver{}, nil)

	res, err := tl.handleVerify(context.Background(), callRequest(ToolVerify, map[string]any{
		ArgCaptchaID: "c1",
		ArgUserInput: " ab3de9 ",
	}))
	require.NoError(t, err)

	var got map[string]string
	decodeText(t, res, &got)
	assert.Equal(t, "Correct", got["result"])
	assert.Equal(t, "c1", svc.gotID)
	assert.Equal(t, " ab3de9 ", svc.gotInput)
}

func TestVerifyMissingArgumentsIsWrong(t *testing.T) {
	svc := &stubChallenges{result: challenge.Wrong}
	tl := New(svc, &stubSolver{}, nil)

	res, err := tl.handleVerify(context.Background(), callRequest(ToolVerify, map[string]any{}))
	require.NoError(t, err)

	var got map[string]string
	decodeText(t, res, &got)
	assert.Equal(t, "Wrong", got["result"])
	assert.Empty(t, svc.gotID)
}

func TestBreak(t *testing.T) {
	sol := &stubSolver{res: solver.Result{Guess: "AB3DE9", Source: solver.SourceAI}}
	tl := New(&stubChallenges{}, sol, nil)

	res, err := tl.handleBreak(context.Background(), callRequest(ToolBreak, map[string]any{
		ArgCaptchaB64: "data:image/png;base64,AAAA",
	}))
	require.NoError(t, err)

	var got solver.Result
	decodeText(t, res, &got)
	assert.Equal(t, sol.res, got)
	assert.Equal(t, "data:image/png;base64,AAAA", sol.got)
}

func TestNewServerListsTools(t *testing.T) {
	s := NewServer(New(&stubChallenges{}, &stubSolver{}, nil), "test")

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{ToolGenerate, ToolVerify, ToolBreak, ArgCaptchaID, ArgUserInput, ArgCaptchaB64} {
		assert.Contains(t, string(data), name)
	}
}
