package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xuanhao97/intergrate-gitlab-lark/internal/lark"
)

func releaseRequest(body string) *http.Request {
	req, _ := http.NewRequest("POST", "/webhooks/app-release-notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Lark-Url", "https://lark.example.com/hook")
	return req
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.Error
}

func TestReleaseNotify_MissingData(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	for _, body := range []string{`{}`, `not json`, `{"data":null}`} {
		resp, err := app.Test(releaseRequest(body), -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body %q", body)
		assert.Equal(t, "Missing data payload", decodeError(t, resp))
	}
	assert.Equal(t, 0, d.calls)
}

func TestReleaseNotify_MissingFields(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		missing string
	}{
		{
			name:    "all missing",
			body:    `{"data":{}}`,
			missing: "url, app_name, enviroment, platform",
		},
		{
			name:    "blank url",
			body:    `{"data":{"url":"  ","app_name":"App","enviroment":"prod","platform":"ios"}}`,
			missing: "url",
		},
		{
			name:    "two missing",
			body:    `{"data":{"url":"https://x/1","platform":"ios"}}`,
			missing: "app_name, enviroment",
		},
		{
			name:    "whitespace only platform",
			body:    `{"data":{"url":"https://x/1","app_name":"App","enviroment":"prod","platform":"\t "}}`,
			missing: "platform",
		},
	}

	d := okDeliverer()
	app := testApp(t, d, nil)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := app.Test(releaseRequest(tc.body), -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "Missing fields: "+tc.missing, decodeError(t, resp))
		})
	}
	assert.Equal(t, 0, d.calls)
}

func TestReleaseNotify_Success(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	body := `{"data":{"url":"https://x/1","app_name":" App ","enviroment":"prod","platform":"ios","version":"1.0","commit":"abc"}}`
	resp, err := app.Test(releaseRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rr ReleaseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rr))
	assert.True(t, rr.Success)
	assert.Equal(t, "Forwarded to Lark", rr.Message)

	require.Equal(t, 1, d.calls)
	assert.Equal(t, "https://lark.example.com/hook", d.lastDest.URL)
	assert.Equal(t, "[IOS] App", d.lastMsg.Card.Header.Title.Content)
}

func TestReleaseNotify_DeliveryFailure(t *testing.T) {
	d := &fakeDeliverer{result: lark.Result{Success: false, Error: "bad"}}
	app := testApp(t, d, nil)

	body := `{"data":{"url":"https://x/1","app_name":"App","enviroment":"prod","platform":"ios"}}`
	resp, err := app.Test(releaseRequest(body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "bad", decodeError(t, resp))
}

// End-to-end through the real delivery client against a fake Lark endpoint.
func TestReleaseNotify_EndToEnd(t *testing.T) {
	responses := map[string]string{
		"ok":  `{"code":0,"data":{"message_id":"om_e2e"}}`,
		"bad": `{"code":1,"msg":"bad"}`,
	}
	var mode string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(responses[mode]))
	}))
	defer upstream.Close()

	client := lark.NewClient(2*time.Second, zerolog.Nop())
	app := testApp(t, client, nil)

	body := `{"data":{"url":"https://x/1","app_name":"App","enviroment":"prod","platform":"ios","version":"1.0","commit":"abc"}}`

	mode = "ok"
	req := releaseRequest(body)
	req.Header.Set("X-Lark-Url", upstream.URL)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rr ReleaseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rr))
	assert.True(t, rr.Success)

	mode = "bad"
	req = releaseRequest(body)
	req.Header.Set("X-Lark-Url", upstream.URL)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "bad", decodeError(t, resp))
}

func gitlabRequest(eventType, body string) *http.Request {
	req, _ := http.NewRequest("POST", "/webhooks/gitlab-to-lark", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Gitlab-Event", eventType)
	req.Header.Set("X-Gitlab-Token", "gitlab-token")
	req.Header.Set("X-Lark-Url", "https://lark.example.com/hook")
	return req
}

func TestGitlabRelay_Success(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	body := `{"object_kind":"push","project":{"name":"billing","web_url":"https://x"},"user":{"username":"dana"},"commits":[{"id":"a","message":"m","url":"https://x/c"}]}`
	resp, err := app.Test(gitlabRequest("Push Hook", body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rr RelayResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rr))
	assert.True(t, rr.Success)
	assert.Equal(t, "Push Hook", rr.EventType)
	assert.Equal(t, "om_test", rr.LarkMessageID)
	assert.Equal(t, 1, d.calls)
}

func TestGitlabRelay_InvalidJSON(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	resp, err := app.Test(gitlabRequest("Push Hook", "{broken"), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 0, d.calls)
}

func TestGitlabRelay_UnsupportedEvent(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	resp, err := app.Test(gitlabRequest("Pipeline Hook", `{"object_kind":"pipeline"}`), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported event type", decodeError(t, resp))
	assert.Equal(t, 0, d.calls)
}

func TestGitlabRelay_ProtectedBranch(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, nil)

	body := `{"object_kind":"push","project":{"name":"billing"},"user":{"username":"dana"},"object_attributes":{"source_branch":"production"}}`
	resp, err := app.Test(gitlabRequest("Push Hook", body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Protected branch", decodeError(t, resp))
	// Delivery must never be attempted for suppressed branches.
	assert.Equal(t, 0, d.calls)
}

func TestGitlabRelay_DeliveryFailurePassesErrorThrough(t *testing.T) {
	d := &fakeDeliverer{result: lark.Result{Success: false, Error: "sign match fail"}}
	app := testApp(t, d, nil)

	body := `{"object_kind":"push","project":{"name":"billing","web_url":"https://x"},"user":{"username":"dana"}}`
	resp, err := app.Test(gitlabRequest("Push Hook", body), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "sign match fail", decodeError(t, resp))
}

func TestDestination_HeaderOverridesDefault(t *testing.T) {
	d := okDeliverer()
	app := testApp(t, d, func(cfg *Config) {
		cfg.DefaultDestination = lark.Destination{URL: "https://default.example.com", Secret: "default-secret"}
	})

	// Headers present: they win.
	body := `{"data":{"url":"https://x/1","app_name":"App","enviroment":"prod","platform":"ios"}}`
	req := releaseRequest(body)
	req.Header.Set("X-Lark-Secret", "header-secret")
	_, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "https://lark.example.com/hook", d.lastDest.URL)
	assert.Equal(t, "header-secret", d.lastDest.Secret)

	// Headers absent: fall back to config.
	req, _ = http.NewRequest("POST", "/webhooks/app-release-notify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	_, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "https://default.example.com", d.lastDest.URL)
	assert.Equal(t, "default-secret", d.lastDest.Secret)
}
