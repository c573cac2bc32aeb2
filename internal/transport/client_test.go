package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"semqa/internal/domain"
	"semqa/internal/resilience"
	"semqa/internal/stream"
)

func testConfig(base string) Config {
	return Config{
		BaseURL: base,
		UseGRPC: true,
		Timeout: 2 * time.Second,
		Resilience: resilience.Config{
			MaxAttempts:    3,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     time.Millisecond,
		},
	}
}

func collect(t *testing.T, sub *Subscription) ([]string, error) {
	t.Helper()
	var frames []string
	for {
		f, err := sub.Next()
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

func TestURLEncodesFilters(t *testing.T) {
	c := NewClient(testConfig("http://api.local/"), nil)
	raw, err := c.URL(domain.SearchParams{
		Question: "safest neighborhoods?",
		Filters: domain.SearchFilters{
			Countries:      []string{"Germany"},
			Cities:         []string{"Berlin", "Leipzig"},
			YearFrom:       2000,
			YearTo:         2024,
			EmbeddingModel: domain.ModelBGEM3,
		},
		UseLLMInterpretation: true,
	})
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/v1/datasets/qa", u.Path)
	q := u.Query()
	assert.Equal(t, "safest neighborhoods?", q.Get("question"))
	assert.Equal(t, "true", q.Get("use_grpc"))
	assert.Equal(t, []string{"Berlin", "Leipzig"}, q["cities"])
	assert.Empty(t, q["states"])
	assert.Equal(t, "2000", q.Get("year_from"))
	assert.Equal(t, "baai-bge-m3", q.Get("embedding_model"))
	assert.Equal(t, "false", q.Get("use_multi_query"))
	assert.Equal(t, "true", q.Get("use_llm_interpretation"))
}

func TestOpenStreamsFramesUntilClose(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		fmt.Fprint(w, "data: {\"step\":0}\n\n")
		fmt.Fprint(w, "event: message\ndata: {\"a\":\ndata: 1}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	sub, err := NewClient(testConfig(srv.URL), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	require.NoError(t, err)
	frames, err := collect(t, sub)
	assert.ErrorIs(t, err, stream.ErrClosed)
	assert.Equal(t, []string{`{"step":0}`, "{\"a\":\n1}", "[DONE]"}, frames)
}

func TestOpenAcceptsNewlineDelimitedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{\"step\":0}\n{\"step\":1}\n[DONE]")
	}))
	defer srv.Close()

	sub, err := NewClient(testConfig(srv.URL), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	require.NoError(t, err)
	frames, err := collect(t, sub)
	assert.ErrorIs(t, err, stream.ErrClosed)
	assert.Equal(t, []string{`{"step":0}`, `{"step":1}`, "[DONE]"}, frames)
}

func TestOpenFailsWithConnectError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	assert.ErrorIs(t, err, stream.ErrConnect)
	assert.Equal(t, int32(3), hits.Load())
}

func TestOpenDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(testConfig(srv.URL), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	assert.ErrorIs(t, err, stream.ErrConnect)
	assert.Equal(t, int32(1), hits.Load())
}

func TestOpenUnreachableHost(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewClient(testConfig(addr), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	assert.ErrorIs(t, err, stream.ErrConnect)
}

func TestCloseEndsStreamSilently(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"step\":0}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	sub, err := NewClient(testConfig(srv.URL), nil).Open(context.Background(), domain.SearchParams{Question: "q"})
	require.NoError(t, err)
	f, err := sub.Next()
	require.NoError(t, err)
	assert.Equal(t, `{"step":0}`, f)

	sub.Close()
	sub.Close()
	_, err = sub.Next()
	assert.ErrorIs(t, err, stream.ErrClosed)
}

func TestReadFramesStopsWhenEmitDeclines(t *testing.T) {
	var got []string
	err := readFrames(strings.NewReader("data: a\n\ndata: b\n\ndata: c\n\n"), func(f string) bool {
		got = append(got, f)
		return len(got) < 2
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestReadFramesFlushesTrailingData(t *testing.T) {
	var got []string
	_ = readFrames(strings.NewReader("data: [DONE]"), func(f string) bool {
		got = append(got, f)
		return true
	})
	assert.Equal(t, []string{"[DONE]"}, got)
}
