// Package tools exposes the challenge engine as MCP tools.
package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/solver"
)

// Tool names and argument keys, as called by existing front ends.
const (
	ToolGenerate = "generate_captcha"
	ToolVerify   = "verify_captcha"
	ToolBreak    = "break_captcha"

	ArgCaptchaID  = "captcha_id"
	ArgUserInput  = "user_input"
	ArgCaptchaB64 = "captcha_image_base64"
	serverName    = "captcha server"
)

// ChallengeService issues and verifies challenges.
type ChallengeService interface {
	Create(ctx context.Context) (*challenge.Challenge, error)
	Verify(ctx context.Context, id, submitted string) challenge.Result
}

// Solver reads a challenge image.
type Solver interface {
	Solve(ctx context.Context, image string) solver.Result
}

// Tools holds the handlers for the three captcha tools.
type Tools struct {
	challenges ChallengeService
	solver     Solver
	logger     *zap.Logger
}

func New(challenges ChallengeService, s Solver, logger *zap.Logger) *Tools {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{challenges: challenges, solver: s, logger: logger}
}

// NewServer builds an MCP server with every tool registered.
func NewServer(t *Tools, version string) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	t.Register(s)
	return s
}

// Register adds the captcha tools to s.
func (t *Tools) Register(s *server.MCPServer) {
	s.AddTool(mcp.NewTool(ToolGenerate,
		mcp.WithDescription("Generate a new text CAPTCHA. Returns JSON with id, text and a base64 PNG data URI image."),
	), t.handleGenerate)

	s.AddTool(mcp.NewTool(ToolVerify,
		mcp.WithDescription("Verify a user's answer for a CAPTCHA. Returns JSON {\"result\": \"Correct\"|\"Wrong\"}. A correct answer consumes the CAPTCHA."),
		mcp.WithString(ArgCaptchaID, mcp.Required(), mcp.Description("id returned by generate_captcha")),
		mcp.WithString(ArgUserInput, mcp.Required(), mcp.Description("the text the user read from the image")),
	), t.handleVerify)

	s.AddTool(mcp.NewTool(ToolBreak,
		mcp.WithDescription("Try to read a CAPTCHA image automatically with a vision model, falling back to OCR. Returns JSON {guess, source}."),
		mcp.WithString(ArgCaptchaB64, mcp.Required(), mcp.Description("CAPTCHA image as a data URI or bare base64")),
	), t.handleBreak)
}

func (t *Tools) handleGenerate(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ch, err := t.challenges.Create(ctx)
	if err != nil {
		t.logger.Error("generate_captcha failed", zap.Error(err))
		return mcp.NewToolResultError("failed to create captcha: " + err.Error()), nil
	}
	return jsonResult(ch)
}

func (t *Tools) handleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString(ArgCaptchaID, "")
	input := req.GetString(ArgUserInput, "")
	res := t.challenges.Verify(ctx, id, input)
	return jsonResult(map[string]challenge.Result{"result": res})
}

func (t *Tools) handleBreak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res := t.solver.Solve(ctx, req.GetString(ArgCaptchaB64, ""))
	t.logger.Info("break_captcha", zap.String("guess", res.Guess), zap.String("source", string(res.Source)))
	return jsonResult(res)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
