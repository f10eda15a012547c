// Package mcptools exposes the keyword engine as MCP tools over stdio.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"vankeyword/app/service/engine"
	"vankeyword/app/service/lexicon"
	"vankeyword/app/service/session"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const Version = "1.0.0"

type Server struct {
	engine *engine.Service
	mcp    *server.MCPServer
}

func New(di *do.Injector) (*Server, error) {
	return NewServer(do.MustInvoke[*engine.Service](di)), nil
}

func NewServer(engineSvc *engine.Service) *Server {
	s := &Server{engine: engineSvc}

	s.mcp = server.NewMCPServer(
		"vankeyword",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s.mcp.AddTool(sessionTool("keyword_query",
		"Match a message against the keyword lexicon and return the raw reply",
		mcp.WithString("message", mcp.Required(), mcp.Description("Inbound chat message")),
	), s.handleQuery)

	s.mcp.AddTool(sessionTool("keyword_respond",
		"Match a message and expand the picked reply into a chat message",
		mcp.WithString("message", mcp.Required(), mcp.Description("Inbound chat message")),
		mcp.WithBoolean("cooldown", mcp.Description("Honour cooldowns, true by default")),
	), s.handleRespond)

	s.mcp.AddTool(sessionTool("keyword_decode",
		"Expand a reply template without matching",
		mcp.WithString("template", mcp.Required(), mcp.Description("Reply template")),
	), s.handleDecode)

	s.mcp.AddTool(sessionTool("keyword_add",
		"Teach a keyword in the caller's active lexicon",
		mcp.WithString("keyword", mcp.Required()),
		mcp.WithString("reply", mcp.Required()),
		mcp.WithNumber("mode", mcp.Description("0 fuzzy, 1 exact, 10 admin only. Defaults to 1")),
	), s.handleAdd)

	s.mcp.AddTool(sessionTool("keyword_remove",
		"Forget a keyword in the caller's active lexicon",
		mcp.WithString("keyword", mcp.Required()),
	), s.handleRemove)

	s.mcp.AddTool(sessionTool("keyword_list",
		"List keywords of the caller's active lexicon",
	), s.handleList)

	s.mcp.AddTool(sessionTool("keyword_search",
		"Find keywords containing a fragment",
		mcp.WithString("fragment", mcp.Required()),
	), s.handleSearch)

	s.mcp.AddTool(sessionTool("keyword_count",
		"Count keywords and replies of the caller's active lexicon",
	), s.handleCount)

	return s
}

func sessionTool(name, description string, opts ...mcp.ToolOption) mcp.Tool {
	base := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("botid", mcp.Required(), mcp.Description("Bot account id")),
		mcp.WithString("userid", mcp.Required(), mcp.Description("Caller id")),
		mcp.WithString("groupid", mcp.Description("Group chat id, empty for private chats")),
	}

	return mcp.NewTool(name, append(base, opts...)...)
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// Serve blocks serving tools over stdin and stdout.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}

func requestSession(req mcp.CallToolRequest) session.Session {
	return session.Session{
		BotID:    req.GetString("botid", ""),
		CallerID: req.GetString("userid", ""),
		ChatID:   req.GetString("groupid", ""),
	}
}

// toolResult renders v as JSON. Validation failures and missing keywords are
// reported to the model as tool errors, everything else fails the call.
func toolResult(v any, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		if errors.Is(err, engine.ErrValidation) || errors.Is(err, lexicon.ErrNotFound) || errors.Is(err, lexicon.ErrDuplicate) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, oops.In("mcptools").Wrapf(err, "failed to encode tool result")
	}

	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.engine.Query(ctx, requestSession(req), req.GetString("message", "")))
}

func (s *Server) handleRespond(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.engine.Respond(ctx, requestSession(req), req.GetString("message", ""), req.GetBool("cooldown", true)))
}

func (s *Server) handleDecode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.engine.Decode(ctx, engine.DecodeRequest{
		Session:  requestSession(req),
		Text:     req.GetString("template", ""),
		Cooldown: true,
	}))
}

func (s *Server) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := req.GetString("keyword", "")
	mode := lexicon.Mode(req.GetInt("mode", int(lexicon.ModeExact)))

	err := s.engine.Add(ctx, requestSession(req), keyword, req.GetString("reply", ""), mode)

	return toolResult(map[string]any{"keyword": keyword, "mode": int(mode)}, err)
}

func (s *Server) handleRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keyword := req.GetString("keyword", "")
	err := s.engine.Remove(ctx, requestSession(req), keyword)

	return toolResult(map[string]any{"removed": keyword}, err)
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, total, err := s.engine.List(ctx, requestSession(req))

	return toolResult(map[string]any{"items": items, "total": total}, err)
}

func (s *Server) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return toolResult(s.engine.Search(ctx, requestSession(req), req.GetString("fragment", "")))
}

func (s *Server) handleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	keywords, replies, err := s.engine.Count(ctx, requestSession(req))

	return toolResult(map[string]int{"keyword_count": keywords, "reply_count": replies}, err)
}
