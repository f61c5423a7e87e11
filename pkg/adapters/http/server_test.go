package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/flowstack"
	httpadapter "github.com/aretw0/flowstack/pkg/adapters/http"
	"github.com/aretw0/flowstack/pkg/domain"
	"github.com/aretw0/flowstack/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts ...httpadapter.Option) (*httptest.Server, *httpadapter.Server) {
	t.Helper()

	booking := dsl.New("booking")
	booking.View("enterDetails", "enterDetailsView").On("submit", "confirm")
	booking.Subflow("confirm", "payment").
		Input("total").
		NullFill().
		On("paid", "done").
		On("cancelled", "enterDetails")
	booking.End("done").View("confirmationView")

	payment := dsl.New("payment")
	payment.View("card", "cardView").
		On("pay", "paid").
		On("cancel", "cancelled")
	payment.End("paid")
	payment.End("cancelled")

	exec, err := flowstack.New(context.Background(),
		flowstack.WithFlows(booking.MustBuild(), payment.MustBuild()))
	require.NoError(t, err)

	srv := httpadapter.NewServer(exec, exec.Flows(), opts...)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func startBooking(t *testing.T, baseURL string) string {
	t.Helper()
	resp, data := doJSON(t, http.MethodPost, baseURL+"/flows/booking/executions",
		httpadapter.StartRequest{Input: map[string]any{"total": 120}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var res flowstack.Result
	require.NoError(t, json.Unmarshal(data, &res))
	require.NotEmpty(t, res.ExecutionID)
	assert.Equal(t, "enterDetailsView", res.Selection.ViewName)
	return res.ExecutionID
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, data := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestServer_ListFlows(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, data := doJSON(t, http.MethodGet, ts.URL+"/flows/", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"flows":["booking","payment"]}`, string(data))
}

func TestServer_ExecutionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t)
	id := startBooking(t, ts.URL)

	resp, data := doJSON(t, http.MethodPost, ts.URL+"/executions/"+id+"/events",
		httpadapter.EventRequest{Event: "submit"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var res flowstack.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "cardView", res.Selection.ViewName)
	assert.Equal(t, []string{"booking", "payment"}, res.Diff.FlowIDStack)

	resp, data = doJSON(t, http.MethodGet, ts.URL+"/executions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap domain.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, "card", snap.CurrentStateID())

	resp, data = doJSON(t, http.MethodGet, ts.URL+"/executions/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"executions":["`+id+`"]}`, string(data))

	resp, data = doJSON(t, http.MethodPost, ts.URL+"/executions/"+id+"/events",
		httpadapter.EventRequest{Event: "pay"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	res = flowstack.Result{}
	require.NoError(t, json.Unmarshal(data, &res))
	assert.True(t, res.Ended)
	assert.Equal(t, "confirmationView", res.Selection.ViewName)

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/executions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Errors(t *testing.T) {
	ts, _ := newTestServer(t)
	id := startBooking(t, ts.URL)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown flow", http.MethodPost, "/flows/ghost/executions", nil, http.StatusNotFound},
		{"unknown execution", http.MethodPost, "/executions/ghost/events", httpadapter.EventRequest{Event: "submit"}, http.StatusNotFound},
		{"unmatched event", http.MethodPost, "/executions/" + id + "/events", httpadapter.EventRequest{Event: "bogus"}, http.StatusConflict},
		{"missing event", http.MethodPost, "/executions/" + id + "/events", httpadapter.EventRequest{}, http.StatusBadRequest},
		{"oversized event", http.MethodPost, "/executions/" + id + "/events", httpadapter.EventRequest{Event: strings.Repeat("x", 5000)}, http.StatusBadRequest},
		{"unknown graph", http.MethodGet, "/flows/ghost/graph", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doJSON(t, tt.method, ts.URL+tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(data))

			var body httpadapter.ErrorResponse
			require.NoError(t, json.Unmarshal(data, &body))
			assert.NotEmpty(t, body.Error)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/executions/"+id+"/events", "application/json", strings.NewReader("{"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, httpadapter.StatusFor(
		&domain.NoMatchingTransitionError{FlowID: "booking", StateID: "enterDetails", EventID: "bogus"}))
	assert.Equal(t, http.StatusInternalServerError, httpadapter.StatusFor(
		&domain.NoMatchingTransitionError{FlowID: "parent", StateID: "call", EventID: "done", Cascaded: true}),
		"an end id the parent cannot route is a definition error")
	assert.Equal(t, http.StatusNotFound, httpadapter.StatusFor(domain.ErrExecutionNotFound))
	assert.Equal(t, http.StatusBadRequest, httpadapter.StatusFor(domain.ErrReservedName))
}

func TestServer_DeleteExecution(t *testing.T) {
	ts, _ := newTestServer(t)
	id := startBooking(t, ts.URL)

	resp, _ := doJSON(t, http.MethodDelete, ts.URL+"/executions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/executions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Graph(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/flows/booking/graph", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "graph TD")
	assert.Contains(t, string(data), "enterDetails")
	assert.NotContains(t, string(data), "class enterDetails current")

	id := startBooking(t, ts.URL)
	resp, data = doJSON(t, http.MethodGet, ts.URL+"/flows/booking/graph?execution="+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), "current")
}

func TestServer_Metrics(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("flowstack_up 1\n"))
	})
	ts, _ := newTestServer(t, httpadapter.WithMetrics(metrics))

	resp, data := doJSON(t, http.MethodGet, ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "flowstack_up 1\n", string(data))
}

func TestServer_StreamPublishesDiffs(t *testing.T) {
	ts, srv := newTestServer(t)
	id := startBooking(t, ts.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/executions/"+id+"/stream?watch=state", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: ping\n", line)

	require.Eventually(t, func() bool { return srv.Streams.Subscribers(id) == 1 }, time.Second, 10*time.Millisecond)

	r, data := doJSON(t, http.MethodPost, ts.URL+"/executions/"+id+"/events",
		httpadapter.EventRequest{Event: "submit"})
	require.Equal(t, http.StatusOK, r.StatusCode, string(data))

	var payload string
	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: {") {
			payload = strings.TrimPrefix(strings.TrimSpace(line), "data: ")
			break
		}
	}

	var diff domain.SnapshotDiff
	require.NoError(t, json.Unmarshal([]byte(payload), &diff))
	assert.Equal(t, id, diff.ID)
	require.NotNil(t, diff.StateID)
	assert.Equal(t, "card", *diff.StateID)
}
