package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
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

	"github.com/gofiber/fiber/v2"
	"github.com/samber/do"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "0123456789abcdef"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Token = testToken
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

func call(t *testing.T, s *Server, token string, body string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/keyword", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))

	return resp.StatusCode, out
}

func TestUnauthorized(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, "", `{"action":"test"}`)
	assert.Equal(t, fiber.StatusUnauthorized, code)
	assert.Equal(t, false, body["success"])

	code, _ = call(t, s, "wrong-token-value", `{"action":"test"}`)
	assert.Equal(t, fiber.StatusUnauthorized, code)

	code, _ = call(t, s, testToken, `{"action":"test","token":"wrong-token-value"}`)
	assert.Equal(t, fiber.StatusUnauthorized, code)
}

func TestTestAction(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"action":"test"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "test", body["action"])
	assert.Equal(t, Version, body["version"])
	assert.NotEmpty(t, body["features"])
	assert.Contains(t, body, "timestamp")
}

func TestAddQueryRemove(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"action":"add","botid":10001,"userid":42,"keyword":"ping","reply":"pong [qq]"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(lexicon.ModeExact), body["mode"])

	code, body = call(t, s, testToken, `{"action":"add","botid":10001,"userid":42,"keyword":"ping","reply":"again"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "keyword already exists", body["message"])

	code, body = call(t, s, testToken, `{"action":"query","botid":"10001","userid":"42","msg":"ping"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "pong [qq]", body["reply"])
	assert.Equal(t, "M_42", body["scope"])

	code, _ = call(t, s, testToken, `{"action":"remove","botid":10001,"userid":42,"keyword":"ping"}`)
	require.Equal(t, fiber.StatusOK, code)

	code, body = call(t, s, testToken, `{"action":"remove","botid":10001,"userid":42,"keyword":"ping"}`)
	assert.Equal(t, fiber.StatusNotFound, code)
	assert.Equal(t, false, body["success"])
}

func TestRespondAction(t *testing.T) {
	s := newTestServer(t)

	code, _ := call(t, s, testToken, `{"action":"add","botid":10001,"userid":42,"keyword":"hi","reply":"hello [image.http://x/a.png]","mode":0}`)
	require.Equal(t, fiber.StatusOK, code)

	code, body := call(t, s, testToken, `{"action":"respond","botid":10001,"userid":42,"msg":"oh hi there"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, true, body["found"])

	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, decoder.ResultMixed, result["type"])
	assert.Len(t, result["messages"], 2)
}

func TestValidation(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"botid":10001,"userid":42}`)
	assert.Equal(t, fiber.StatusBadRequest, code)
	assert.Equal(t, false, body["success"])

	code, _ = call(t, s, testToken, `{"action":"nope","botid":10001,"userid":42}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = call(t, s, testToken, `{"action":"add","botid":10001,"userid":42,"reply":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = call(t, s, testToken, `{"action":"query","userid":42,"msg":"x"}`)
	assert.Equal(t, fiber.StatusBadRequest, code)

	code, _ = call(t, s, testToken, `{"action":`)
	assert.Equal(t, fiber.StatusBadRequest, code)
}

func TestDecodeAction(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"action":"decode","botid":10001,"userid":42,"text":"sum (+2*3)"}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, map[string]any{"type": decoder.ResultText, "content": "sum 6"}, body["result"])

	code, body = call(t, s, testToken, `{"action":"decode","botid":10001,"userid":42,"text":["[n.1] and [n.2]","tea","milk","","",""]}`)
	require.Equal(t, fiber.StatusOK, code, body)
	assert.Equal(t, map[string]any{"type": decoder.ResultText, "content": "tea and milk"}, body["result"])
}

func TestTranscodeAction(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"action":"transcode","botid":10001,"userid":42,"text":"[CQ:face,id=14]&amp;"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "[CQ:face,id=14]&amp;", body["original"])
	assert.Equal(t, "[face.14]&", body["transcoded"])
}

func TestListAndCount(t *testing.T) {
	s := newTestServer(t)

	for _, kw := range []string{"a", "b", "c"} {
		code, _ := call(t, s, testToken, `{"action":"add","botid":10001,"userid":42,"keyword":"`+kw+`","reply":"x"}`)
		require.Equal(t, fiber.StatusOK, code)
	}
	code, _ := call(t, s, testToken, `{"action":"add_r","botid":10001,"userid":42,"keyword":"a","reply":"y"}`)
	require.Equal(t, fiber.StatusOK, code)

	code, body := call(t, s, testToken, `{"action":"list","botid":10001,"userid":42}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(3), body["total"])

	code, body = call(t, s, testToken, `{"action":"count","botid":10001,"userid":42}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, float64(3), body["keyword_count"])
	assert.Equal(t, float64(4), body["reply_count"])
}

func TestAdminActions(t *testing.T) {
	s := newTestServer(t)

	code, body := call(t, s, testToken, `{"action":"admin_add","admin_id":42}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["added"])
	assert.Equal(t, []any{"42"}, body["admins"])

	code, _ = call(t, s, testToken, `{"action":"admin_remove","admin_id":"7"}`)
	assert.Equal(t, fiber.StatusNotFound, code)

	code, body = call(t, s, testToken, `{"action":"admin_remove","admin_id":"42"}`)
	require.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, []any{}, body["admins"])
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/", "/status", "/api/v1/examples"} {
		resp, err := s.App().Test(httptest.NewRequest(http.MethodGet, path, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode, path)
		_ = resp.Body.Close()
	}
}
