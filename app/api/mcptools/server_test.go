package mcptools

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"vankeyword/app/config"
	"vankeyword/app/service/admin"
	"vankeyword/app/service/cooldown"
	"vankeyword/app/service/decoder"
	"vankeyword/app/service/engine"
	"vankeyword/app/service/lexicon"
	"vankeyword/app/service/queue"
	"vankeyword/app/service/settings"
	"vankeyword/app/service/store"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Storage.DataDir = filepath.Join(dir, "data")
	cfg.Admin.File = filepath.Join(dir, "admins.txt")

	di := do.New()
	t.Cleanup(func() {
		_ = di.Shutdown()
	})

	do.ProvideValue(di, cfg)
	do.Provide(di, store.New)
	do.Provide(di, queue.New)
	do.Provide(di, admin.New)
	do.Provide(di, settings.New)
	do.Provide(di, lexicon.New)
	do.Provide(di, cooldown.New)
	do.Provide(di, decoder.New)
	do.Provide(di, engine.New)
	do.Provide(di, New)

	return do.MustInvoke[*Server](di)
}

func toolRequest(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"botid": "10001", "userid": "42"}
	for k, v := range args {
		req.Params.Arguments.(map[string]any)[k] = v
	}

	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()

	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	content, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)

	return content.Text
}

func TestAddAndRespond(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleAdd(ctx, toolRequest(map[string]any{"keyword": "ping", "reply": "pong (+1+1)"}))
	require.NoError(t, err)
	require.False(t, res.IsError, resultText(t, res))
	assert.JSONEq(t, `{"keyword":"ping","mode":1}`, resultText(t, res))

	res, err = s.handleRespond(ctx, toolRequest(map[string]any{"message": "ping"}))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var raw struct {
		Match  engine.QueryResult `json:"match"`
		Result map[string]any     `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &raw))
	assert.True(t, raw.Match.Found)
	assert.Equal(t, "ping", raw.Match.Keyword)
	assert.Equal(t, map[string]any{"type": "text", "content": "pong 2"}, raw.Result)
}

func TestQueryAndCount(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleAdd(ctx, toolRequest(map[string]any{"keyword": "tea", "reply": "green", "mode": float64(lexicon.ModeFuzzy)}))
	require.NoError(t, err)

	res, err := s.handleQuery(ctx, toolRequest(map[string]any{"message": "some tea please"}))
	require.NoError(t, err)

	var q engine.QueryResult
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &q))
	assert.True(t, q.Found)
	assert.Equal(t, "green", q.Reply)
	assert.Equal(t, "fuzzy", q.Mode)

	res, err = s.handleCount(ctx, toolRequest(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"keyword_count":1,"reply_count":1}`, resultText(t, res))

	res, err = s.handleSearch(ctx, toolRequest(map[string]any{"fragment": "te"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, res), `"tea"`)
}

func TestToolErrors(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleRemove(ctx, toolRequest(map[string]any{"keyword": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleAdd(ctx, toolRequest(map[string]any{"keyword": "x"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = s.handleAdd(ctx, toolRequest(map[string]any{"keyword": "x", "reply": "y", "mode": float64(3)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDecodeTool(t *testing.T) {
	s := newTestServer(t)

	res, err := s.handleDecode(context.Background(), toolRequest(map[string]any{"template": "[qq] says (+2*5)"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text","content":"42 says 10"}`, resultText(t, res))
}

func TestInProcessClient(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	c, err := client.NewInProcessClient(s.MCP())
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Close()
	})
	require.NoError(t, c.Start(ctx))

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "keyword-test",
		Version: "1.0.0",
	}
	_, err = c.Initialize(ctx, initRequest)
	require.NoError(t, err)

	tools, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	require.NoError(t, err)

	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{
		"keyword_query", "keyword_respond", "keyword_decode", "keyword_add",
		"keyword_remove", "keyword_list", "keyword_search", "keyword_count",
	}, names)

	call := mcp.CallToolRequest{}
	call.Params.Name = "keyword_decode"
	call.Params.Arguments = map[string]any{"botid": "10001", "userid": "42", "template": "(+1+1)"}

	res, err := c.CallTool(ctx, call)
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.JSONEq(t, `{"type":"text","content":"2"}`, resultText(t, res))
}
