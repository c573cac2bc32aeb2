package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semqa/internal/config"
	"semqa/internal/domain"
	"semqa/internal/stream"
)

var sseFrames = []string{
	`{"step":0,"status":"OK","data":{"question":"Where are rents high?","research_questions":[{"question":"Which cities have the highest rents?","reason":"Rent is the main cost","question_hash":"h1"}]}}`,
	`{"step":1,"status":"OK","data":[{"question":"Which cities have the highest rents?","reason":"Rent is the main cost","question_hash":"h1","embeddings":[0.5,0.25,-0.5,1]}]}`,
	`{"step":2,"sub_step":0,"status":"OK","data":{"question_hash":"h1","datasets":[{"score":0.9,"metadata":{"id":"rents","title":"Median Rents","description":"Median gross rent per city. Updated yearly. Source is the census."}}]}}`,
	`{"step":3,"sub_step":0,"status":"OK","data":{"question_hash":"h1","answer":"Rents peak in coastal cities."}}`,
	`[DONE]`,
}

func sseServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, f := range frames {
			fmt.Fprintf(w, "data: %s\n\n", f)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig points the config at baseURL and keeps the log in a temp dir.
func writeConfig(t *testing.T, baseURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv(config.DefaultAPIURLEnv, "")
	cfg := config.Default()
	cfg.Server.BaseURL = baseURL
	cfg.Server.Retry.MaxAttempts = 1
	cfg.Server.Breaker.Enabled = false
	cfg.Log.File = filepath.Join(dir, "logs", "semqa.log")
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAskPrintsResults(t *testing.T) {
	srv := sseServer(t, sseFrames)
	cfgPath := writeConfig(t, srv.URL)

	out, progress, err := run(t, "--config", cfgPath, "ask", "Where", "are", "rents", "high?")
	require.NoError(t, err)

	assert.Contains(t, out, "Question: Where are rents high?")
	assert.Contains(t, out, "1 research questions · complete")
	assert.Contains(t, out, "1. Which cities have the highest rents?")
	assert.Contains(t, out, "why: Rent is the main cost")
	assert.Contains(t, out, "(4 dims)")
	assert.Contains(t, out, "90.0%  Median Rents")
	assert.Contains(t, out, "Rents peak in coastal cities.")
	assert.Contains(t, progress, "●●●● h1")

	_, err = os.Stat(filepath.Join(filepath.Dir(cfgPath), "logs", "semqa.log"))
	assert.NoError(t, err)
}

func TestAskReportsConnectFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)
	cfgPath := writeConfig(t, srv.URL)

	out, _, err := run(t, "--config", cfgPath, "ask", "q")
	require.Error(t, err)
	assert.Equal(t, stream.MsgConnectFailed, err.Error())
	assert.Contains(t, out, "error: "+stream.MsgConnectFailed)
}

func TestAskRequiresQuestion(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	_, _, err := run(t, "--config", cfgPath, "ask")
	assert.Error(t, err)
}

func TestAskFlagsOverrideConfig(t *testing.T) {
	cfgPath := writeConfig(t, "http://127.0.0.1:1")
	a := &app{}
	a.cfg, _ = config.Load(cfgPath)
	o := &askOptions{countries: []string{"Germany"}, yearFrom: 2010, model: domain.ModelE5Base, multiQuery: true, noLLM: true}

	p := o.params(a, "  rents  ")
	assert.Equal(t, "rents", p.Question)
	assert.Equal(t, []string{"Germany"}, p.Filters.Countries)
	assert.Equal(t, 2010, p.Filters.YearFrom)
	assert.Equal(t, a.cfg.Search.Filters.YearTo, p.Filters.YearTo)
	assert.Equal(t, domain.ModelE5Base, p.Filters.EmbeddingModel)
	assert.True(t, p.UseMultiQuery)
	assert.False(t, p.UseLLMInterpretation)
}

func TestConfigInitAndShow(t *testing.T) {
	cfgPath := writeConfig(t, "http://example.test")
	target := filepath.Join(t.TempDir(), "nested", "semqa.yaml")

	out, _, err := run(t, "--config", cfgPath, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)
	_, err = os.Stat(target)
	require.NoError(t, err)

	_, _, err = run(t, "--config", cfgPath, "config", "init", "--path", target)
	assert.ErrorContains(t, err, "already exists")

	_, _, err = run(t, "--config", cfgPath, "config", "init", "--path", target, "--force")
	assert.NoError(t, err)

	out, stderr, err := run(t, "--config", cfgPath, "--base-url", "http://override.test", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, stderr, cfgPath)
	assert.Contains(t, out, "base_url: http://override.test")
	assert.Contains(t, out, "embedding_model: "+domain.ModelBGEM3)
}

func TestVersion(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "semqa "+Version+"\n", out)
}
