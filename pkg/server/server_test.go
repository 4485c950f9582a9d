//nolint:funlen // ok for this test code
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"

	"github.com/mpapenbr/tirecast/pkg/catalog"
	"github.com/mpapenbr/tirecast/pkg/llm"
	"github.com/mpapenbr/tirecast/pkg/metrics"
	"github.com/mpapenbr/tirecast/pkg/model"
	"github.com/mpapenbr/tirecast/pkg/predict"
	"github.com/mpapenbr/tirecast/testsupport/basedata"
	"github.com/mpapenbr/tirecast/testsupport/fakebackend"
)

const answer = `{"predictions": [
	{"lap": 11, "predicted_time": 96.0, "confidence": 0.9},
	{"lap": 12, "predicted_time": 97.0, "confidence": 0.8},
	{"lap": 13, "predicted_time": 98.5, "confidence": 0.7}
], "reasoning": "wear"}`

func newTestServer(t *testing.T, text string, opts ...Option) *httptest.Server {
	t.Helper()
	dir := fs.NewDir(t, "server",
		fs.WithFile("race.csv", basedata.SampleRace()),
		fs.WithFile("catalog.yml", `version: v1.0.0
tracks:
  - id: testtrack
    name: Test GP 2024
    file: race.csv
    totalLaps: 30
`))
	cat, err := catalog.New(catalog.WithFile(dir.Join("catalog.yml")),
		catalog.WithDataDir(dir.Path()))
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	requester := llm.NewRequester(llm.NewCredential("key"),
		llm.StaticBackend(fakebackend.New(fakebackend.Step{Text: text})),
		llm.WithRetryDelay(time.Millisecond))
	p := predict.NewPredictor(requester,
		predict.WithCatalog(cat),
		predict.WithMetrics(metrics.New(reg)))
	opts = append([]Option{
		WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	}, opts...)
	srv := httptest.NewServer(New(p, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(),
		http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string, header ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestTracks(t *testing.T) {
	srv := newTestServer(t, answer)
	resp := get(t, srv.URL+"/api/tracks")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	tracks := decode[[]model.TrackInfo](t, resp)
	assert.Len(t, tracks, 4)
	assert.Equal(t, "testtrack", tracks[3].ID)
}

func TestPredict(t *testing.T) {
	srv := newTestServer(t, answer)
	resp := post(t, srv.URL+"/api/predict",
		`{"track":"testtrack","current_lap":10,"target_laps":3,"strategy":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[predict.Report](t, resp)
	require.NotNil(t, report.Forecast)
	assert.Equal(t, model.StatusSuccess, report.Forecast.Status)
	assert.Len(t, report.Forecast.Predictions, 3)
	assert.Equal(t, 13, report.Pit.RecommendedLap.GetOr(0))
	assert.Equal(t, model.PitWindow{Start: 12, End: 13}, report.Pit.Window.GetOr(model.PitWindow{}))
	assert.Equal(t, predict.UrgencyUrgent, report.Urgency)
	assert.NotEmpty(t, report.RequestID)
	require.NotNil(t, report.Strategy)
	assert.Len(t, report.Strategy.Strategies, 2)
}

func TestPredictErrors(t *testing.T) {
	srv := newTestServer(t, answer)
	tests := []struct {
		name         string
		body         string
		wantStatus   int
		wantCategory model.ErrorCategory
		wantMessage  string
	}{
		{
			name:         "invalid json",
			body:         `{"track":`,
			wantStatus:   http.StatusBadRequest,
			wantCategory: model.CategoryGeneric,
		},
		{
			name:         "missing track",
			body:         `{"current_lap":10}`,
			wantStatus:   http.StatusBadRequest,
			wantCategory: model.CategoryGeneric,
		},
		{
			name:         "unknown track",
			body:         `{"track":"Imola","current_lap":10}`,
			wantStatus:   http.StatusOK,
			wantCategory: model.CategoryNoData,
			wantMessage:  "Data file not found. Please run data download first.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, srv.URL+"/api/predict", tt.body)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			got := decode[errorResponse](t, resp)
			assert.Equal(t, model.StatusError, got.Status)
			assert.Equal(t, tt.wantCategory, got.Category)
			assert.NotEmpty(t, got.Error)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, got.Message)
			}
		})
	}
}

func TestStrategy(t *testing.T) {
	srv := newTestServer(t, answer)
	resp := get(t, srv.URL+"/api/strategy?track=testtrack&lap=10")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[model.StrategyComparison](t, resp)
	assert.Equal(t, model.StatusSuccess, got.Status)
	assert.Len(t, got.Strategies, 2)

	tests := []struct {
		name  string
		query string
	}{
		{"non numeric lap", "track=testtrack&lap=x"},
		{"missing track", "lap=10"},
		{"zero lap", "track=testtrack&lap=0"},
		{"negative lap", "track=testtrack&lap=-3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := get(t, srv.URL+"/api/strategy?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			got := decode[errorResponse](t, resp)
			assert.Equal(t, model.StatusError, got.Status)
		})
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t, answer)
	resp := post(t, srv.URL+"/api/export", `{"track":"Monaco GP 2024","current_lap":10,
		"predictions":[{"lap":11,"predicted_time":75.5,"confidence":0.5}]}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="predictions_Monaco_GP_2024_lap10.csv"`,
		resp.Header.Get("Content-Disposition"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "lap,predicted_time,confidence\n11,75.5,0.5\n", string(body))

	resp = post(t, srv.URL+"/api/export", `{"track":"x","current_lap":1,"predictions":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPredictStream(t *testing.T) {
	srv := newTestServer(t, answer)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/predict?track=testtrack&lap=10&target=3"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var percents []int
	var last streamMessage
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		last = msg
		if msg.Type == "progress" {
			percents = append(percents, msg.Progress.Percent)
		}
	}
	assert.Equal(t, []int{20, 40, 60, 80, 100}, percents)
	assert.Equal(t, "report", last.Type)
	require.NotNil(t, last.Report)
	assert.Len(t, last.Report.Forecast.Predictions, 3)
}

func TestPredictStreamError(t *testing.T) {
	srv := newTestServer(t, answer)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/predict?track=Imola&lap=10"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	var msgs []streamMessage
	for {
		var msg streamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		msgs = append(msgs, msg)
	}
	require.NotEmpty(t, msgs)
	last := msgs[len(msgs)-1]
	assert.Equal(t, "error", last.Type)
	assert.Equal(t, model.CategoryNoData, last.Error.Category)

	_, resp2, err := websocket.DefaultDialer.Dial(
		"ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/predict?track=testtrack", nil)
	require.Error(t, err)
	require.NotNil(t, resp2)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)
}

func TestAPIToken(t *testing.T) {
	srv := newTestServer(t, answer, WithAPIToken("secret"))
	assert.Equal(t, http.StatusUnauthorized, get(t, srv.URL+"/api/tracks").StatusCode)
	assert.Equal(t, http.StatusUnauthorized,
		get(t, srv.URL+"/api/tracks", "api-token", "wrong").StatusCode)
	assert.Equal(t, http.StatusOK,
		get(t, srv.URL+"/api/tracks", "api-token", "secret").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/metrics").StatusCode)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") +
		"/ws/predict?track=testtrack&lap=10&target=3&api-token=secret"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	conn.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, answer)
	post(t, srv.URL+"/api/predict", `{"track":"testtrack","current_lap":10,"target_laps":3}`)
	resp := get(t, srv.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.Contains(body, []byte(`tirecast_pipeline_runs_total{category="",status="success"} 1`)),
		string(body))
}

func TestRun(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	s := New(predict.NewPredictor(
		llm.NewRequester(llm.NewCredential(""), llm.StaticBackend(fakebackend.New())),
		predict.WithMetrics(metrics.New(prometheus.NewRegistry()))),
		WithMetricsHandler(http.NotFoundHandler()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		req, _ := http.NewRequestWithContext(context.Background(),
			http.MethodGet, "http://"+addr+"/healthz", http.NoBody)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
