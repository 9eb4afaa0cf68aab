package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliEnv struct {
	dir       string
	cfgPath   string
	statsPath string
}

// newEnv 准备临时目录和配置文件
func newEnv(t *testing.T, extraConfig string) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	env := &cliEnv{
		dir:       dir,
		cfgPath:   filepath.Join(dir, "config.yaml"),
		statsPath: filepath.Join(dir, "stats", "stats.json"),
	}

	cfg := fmt.Sprintf("source_lang: ru\ntarget_lang: en\nstats_file: %s\nmax_retries: 0\n%s", env.statsPath, extraConfig)
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(cfg), 0o644))
	return env
}

func (e *cliEnv) writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand("test", "abc123", "today")

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "test (commit abc123, built today)")
}

func TestPatterns(t *testing.T) {
	stdout, _, err := execute(t, "patterns")
	require.NoError(t, err)

	for _, name := range []string{"reserved-token", "delimited", "matrix", "determinant", "transpose", "script", "equation", "arithmetic", "symbol", "function"} {
		assert.Contains(t, stdout, name)
	}
}

func TestMask(t *testing.T) {
	env := newEnv(t, "provider: raw\n")
	input := env.writeInput(t, "input.txt", "Энергия E=mc^2 и число π.")

	stdout, _, err := execute(t, "mask", input)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Энергия [MATH_EXPR_0] и число [MATH_EXPR_1].")
	assert.Contains(t, stdout, "E=mc^2")
	assert.Contains(t, stdout, "equation")
	assert.Contains(t, stdout, "symbol")
}

func TestMask_UnsupportedFormat(t *testing.T) {
	env := newEnv(t, "")
	input := env.writeInput(t, "input.rtf", "x")

	_, _, err := execute(t, "mask", input)
	assert.Error(t, err)
}

func TestTranslate_RawWritesDefaultOutput(t *testing.T) {
	env := newEnv(t, "provider: raw\n")
	content := "Матрица [[1,2],[3,4]] обратима, det(A) ≠ 0."
	input := env.writeInput(t, "notes.md", content)

	_, stderr, err := execute(t, "translate", "-c", env.cfgPath, "-q", input)
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(env.dir, "translated_notes.md"))
	require.NoError(t, err)
	assert.Equal(t, content, string(out))
	assert.Contains(t, stderr, "translated_notes.md")

	// 统计已持久化
	stdout, _, err := execute(t, "stats", "-c", env.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "raw")
}

func TestTranslate_EmptyInput(t *testing.T) {
	env := newEnv(t, "provider: raw\n")
	input := env.writeInput(t, "empty.txt", "  \n\t")

	_, _, err := execute(t, "translate", "-c", env.cfgPath, "-q", input)
	assert.Error(t, err)
}

func TestTranslate_InvalidConfig(t *testing.T) {
	env := newEnv(t, "provider: raw\n")
	input := env.writeInput(t, "input.txt", "x = 1")

	_, _, err := execute(t, "translate", "-c", env.cfgPath, "-q", "--target", "not a tag!", input)
	assert.Error(t, err)
}

func geminiServer(t *testing.T, status int, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/gemini-2.5-flash:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
}

func TestTranslate_GeminiEndToEnd(t *testing.T) {
	server := geminiServer(t, http.StatusOK, `{
		"candidates": [{"content": {"role": "model", "parts": [{"text": "Matrix [MATH_EXPR_0] is invertible."}]}}],
		"modelVersion": "gemini-2.5-flash"
	}`)
	defer server.Close()

	env := newEnv(t, fmt.Sprintf("provider: gemini\napi_key: test-key\nbase_url: %s\n", server.URL))
	input := env.writeInput(t, "input.txt", "Матрица [[1,2],[3,4]] обратима.")

	stdout, stderr, err := execute(t, "translate", "-c", env.cfgPath, "-q", input, "-")
	require.NoError(t, err)
	assert.Equal(t, "Matrix [[1,2],[3,4]] is invertible.", stdout)
	assert.Contains(t, stderr, "gemini-2.5-flash")
}

func TestTranslate_GeminiFailureKeepsOriginal(t *testing.T) {
	server := geminiServer(t, http.StatusInternalServerError, `{"error": {"message": "backend unavailable"}}`)
	defer server.Close()

	env := newEnv(t, fmt.Sprintf("provider: gemini\napi_key: test-key\nbase_url: %s\n", server.URL))
	content := "Решите x^2 = 4."
	input := env.writeInput(t, "input.txt", content)
	output := filepath.Join(env.dir, "out", "result.txt")

	_, stderr, err := execute(t, "translate", "-c", env.cfgPath, "-q", input, output)
	require.NoError(t, err)

	out, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, content, string(out))
	assert.Contains(t, stderr, "backend unavailable")
}

func TestStats_Reset(t *testing.T) {
	env := newEnv(t, "provider: raw\n")

	stdout, _, err := execute(t, "stats", "-c", env.cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "暂无统计数据")

	_, _, err = execute(t, "stats", "-c", env.cfgPath, "--reset")
	assert.NoError(t, err)
}
