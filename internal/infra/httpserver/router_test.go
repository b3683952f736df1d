package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appanalysis "github.com/bryanwahyu/aidentify/internal/application/analysis"
	appchats "github.com/bryanwahyu/aidentify/internal/application/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
	"github.com/bryanwahyu/aidentify/internal/infra/db/memory"
	"github.com/bryanwahyu/aidentify/internal/infra/features"
	"github.com/bryanwahyu/aidentify/internal/infra/httpserver"
	"github.com/bryanwahyu/aidentify/internal/infra/staging"
)

type fakeAssets struct{ err error }

func (f fakeAssets) Upload(ctx context.Context, localPath, key, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "https://cdn.example.com/media/" + key, nil
}

type fakeOracle struct {
	verdict ai.Verdict
	err     error
}

func (f *fakeOracle) Classify(ctx context.Context, asset *media.StagedAsset, fv media.FeatureVector, mime string) (ai.Verdict, error) {
	if _, ok := fv.Scalar("edge_density"); !ok && asset.Kind == media.KindImage {
		return ai.Verdict{}, errors.New("image features missing")
	}
	return f.verdict, f.err
}

type env struct {
	srv    *httptest.Server
	store  *memory.Store
	svc    *appanalysis.Service
	oracle *fakeOracle
}

func newEnv(t *testing.T, maxBytes int64) *env {
	t.Helper()
	stager, err := staging.NewLocal(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatal(err)
	}
	registry, err := features.NewDefaultRegistry(nil, nil, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	store := memory.NewStore()
	oracle := &fakeOracle{verdict: ai.Verdict{Label: ai.LabelAI, Confidence: 0.91, Reason: "uniform gradients"}}
	svc := &appanalysis.Service{
		Stager:     stager,
		Assets:     fakeAssets{},
		Extractors: registry,
		Oracle:     oracle,
		Chats:      store,
		Results:    store,
		Failures:   store,
		KeyPrefix:  "AIdentify",
	}
	h := httpserver.NewRouter(httpserver.Deps{
		Analysis:       svc,
		Chats:          &appchats.Service{Repo: store},
		ClientURL:      "http://localhost:3000",
		MaxUploadBytes: maxBytes,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &env{srv: srv, store: store, svc: svc, oracle: oracle}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			c := color.RGBA{R: 255, A: 255}
			if x >= 8 {
				c = color.RGBA{G: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func upload(t *testing.T, url string, fields map[string]string, file []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write(file)
	}
	_ = mw.Close()

	resp, err := http.Post(url, mw.FormDataContentType(), &body)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func do(t *testing.T, method, url string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(method, url, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyzeAndChatLifecycle(t *testing.T) {
	e := newEnv(t, 1<<20)

	resp := upload(t, e.srv.URL+"/api/image/analyze", map[string]string{
		"email": "user@example.com", "mime_type": "image/png", "chat_id": "null",
	}, pngBytes(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze: want=200 got=%d", resp.StatusCode)
	}
	var out struct {
		ChatID      string `json:"chat_id"`
		UserMessage struct {
			Role    string `json:"role"`
			Type    string `json:"type"`
			Content string `json:"content"`
		} `json:"user_message"`
		AIMessage struct {
			Role       string  `json:"role"`
			Label      string  `json:"label"`
			Confidence float64 `json:"confidence"`
			Content    string  `json:"content"`
		} `json:"ai_message"`
	}
	decode(t, resp, &out)
	if out.ChatID == "" || out.UserMessage.Type != "image" || !strings.HasPrefix(out.UserMessage.Content, "https://cdn.example.com/media/AIdentify/images/") {
		t.Fatalf("analyze response: got=%+v", out)
	}
	if out.AIMessage.Role != "aidentify" || out.AIMessage.Label != "AI" || out.AIMessage.Confidence != 0.91 {
		t.Fatalf("ai message: got=%+v", out.AIMessage)
	}

	// second upload lands in the same chat
	resp = upload(t, e.srv.URL+"/api/image/analyze", map[string]string{
		"email": "user@example.com", "chat_id": out.ChatID,
	}, pngBytes(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("append: want=200 got=%d", resp.StatusCode)
	}

	resp = do(t, http.MethodGet, e.srv.URL+"/api/chat/history?email=user@example.com")
	var history []struct {
		ID       string            `json:"_id"`
		Messages []json.RawMessage `json:"messages"`
	}
	decode(t, resp, &history)
	if len(history) != 1 || history[0].ID != out.ChatID || len(history[0].Messages) != 4 {
		t.Fatalf("history: got=%+v", history)
	}

	for _, prefix := range []string{"/api/chat/", "/chats/"} {
		resp = do(t, http.MethodGet, e.srv.URL+prefix+out.ChatID+"?email=user@example.com")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get %s: want=200 got=%d", prefix, resp.StatusCode)
		}
		var chat map[string]any
		decode(t, resp, &chat)
		if chat["_id"] != out.ChatID {
			t.Fatalf("get %s: want _id=%s got=%v", prefix, out.ChatID, chat["_id"])
		}
	}
	resp = do(t, http.MethodGet, e.srv.URL+"/api/chat/"+out.ChatID+"?email=other@example.com")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get: want=404 got=%d", resp.StatusCode)
	}

	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/api/chat/delete?email=user@example.com&chatId=%s", e.srv.URL, out.ChatID))
	var msg map[string]string
	decode(t, resp, &msg)
	if resp.StatusCode != http.StatusOK || msg["message"] != "Chat deleted successfully" {
		t.Fatalf("delete: status=%d body=%v", resp.StatusCode, msg)
	}
	resp = do(t, http.MethodGet, e.srv.URL+"/api/chat/"+out.ChatID+"?email=user@example.com")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("after delete: want=404 got=%d", resp.StatusCode)
	}
	resp = do(t, http.MethodDelete, fmt.Sprintf("%s/chats/delete?email=user@example.com&chatId=%s", e.srv.URL, out.ChatID))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete twice: want=404 got=%d", resp.StatusCode)
	}
}

func TestAnalyzeResultMode(t *testing.T) {
	e := newEnv(t, 1<<20)
	e.svc.Mode = appanalysis.ModeResult

	resp := upload(t, e.srv.URL+"/api/image/analyze", map[string]string{"email": "user@example.com"}, pngBytes(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analyze: want=200 got=%d", resp.StatusCode)
	}
	var res struct {
		DocumentType string `json:"document_type"`
		DocumentURL  string `json:"document_url"`
		Label        string `json:"label"`
	}
	decode(t, resp, &res)
	if res.DocumentType != "image" || res.Label != "AI" || res.DocumentURL == "" {
		t.Fatalf("flattened result: got=%+v", res)
	}

	resp = do(t, http.MethodGet, e.srv.URL+"/api/results?email=user@example.com&page=1&page_size=5")
	var page struct {
		Total int64 `json:"totalItems"`
		Data  []any `json:"data"`
	}
	decode(t, resp, &page)
	if page.Total != 1 || len(page.Data) != 1 {
		t.Fatalf("results page: got=%+v", page)
	}
}

func TestAnalyzeErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		fields map[string]string
		file   []byte
		setup  func(e *env)
		want   int
	}{
		{name: "missing file", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"}, want: http.StatusBadRequest},
		{name: "missing email", path: "/api/image/analyze", file: []byte("x"), want: http.StatusBadRequest},
		{name: "kind mismatch", path: "/api/audio/analyze", fields: map[string]string{"email": "user@example.com"}, file: nil, want: http.StatusUnsupportedMediaType},
		{name: "too large", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"}, file: bytes.Repeat([]byte{0x89}, 4096), want: http.StatusRequestEntityTooLarge},
		{name: "unknown chat", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com", "chat_id": "missing"}, want: http.StatusNotFound},
		{name: "storage down", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"},
			setup: func(e *env) { e.svc.Assets = fakeAssets{err: errors.New("dial tcp: refused")} }, want: http.StatusBadGateway},
		{name: "quota", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"},
			setup: func(e *env) { e.oracle.err = fmt.Errorf("%w: %w", ai.ErrOracleUnavailable, ai.ErrQuotaExceeded) }, want: http.StatusTooManyRequests},
		{name: "oracle timeout", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"},
			setup: func(e *env) { e.oracle.err = ai.ErrOracleTimeout }, want: http.StatusGatewayTimeout},
		{name: "degraded dropped", path: "/api/image/analyze", fields: map[string]string{"email": "user@example.com"},
			setup: func(e *env) { e.svc.DropDegraded = true; e.oracle.verdict = ai.Degraded("bad json") }, want: http.StatusBadGateway},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e := newEnv(t, 2048)
			if c.setup != nil {
				c.setup(e)
			}
			file := c.file
			if file == nil && c.name != "missing file" {
				file = pngBytes(t)
			}
			resp := upload(t, e.srv.URL+c.path, c.fields, file)
			if resp.StatusCode != c.want {
				t.Fatalf("status: want=%d got=%d", c.want, resp.StatusCode)
			}
			var body map[string]string
			decode(t, resp, &body)
			if body["error"] == "" {
				t.Fatalf("error body missing: %v", body)
			}
		})
	}
}

func TestDegradedVerdictStillSucceeds(t *testing.T) {
	e := newEnv(t, 1<<20)
	e.oracle.verdict = ai.Degraded("no JSON object in response")

	resp := upload(t, e.srv.URL+"/api/image/analyze", map[string]string{"email": "user@example.com"}, pngBytes(t))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", resp.StatusCode)
	}
	var out struct {
		AIMessage struct {
			Label  string `json:"label"`
			Reason string `json:"reason"`
		} `json:"ai_message"`
	}
	decode(t, resp, &out)
	if out.AIMessage.Label != "Error" || !strings.HasPrefix(out.AIMessage.Reason, "Error in LLM analysis") {
		t.Fatalf("ai message: got=%+v", out.AIMessage)
	}
}

func TestQueryValidation(t *testing.T) {
	e := newEnv(t, 1<<20)
	for _, path := range []string{
		"/api/chat/history",
		"/api/chat/history?email=not-an-email",
		"/api/results",
		"/api/chat/abc",
		"/api/chat/delete?email=user@example.com",
	} {
		method := http.MethodGet
		if strings.Contains(path, "delete") {
			method = http.MethodDelete
		}
		resp := do(t, method, e.srv.URL+path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: want=400 got=%d", path, resp.StatusCode)
		}
	}
}

func TestOperationalEndpoints(t *testing.T) {
	e := newEnv(t, 1<<20)
	for path, want := range map[string]int{"/": 200, "/health": 200, "/ready": 200, "/live": 200, "/metrics": 200} {
		if resp := do(t, http.MethodGet, e.srv.URL+path); resp.StatusCode != want {
			t.Fatalf("%s: want=%d got=%d", path, want, resp.StatusCode)
		}
	}
}

func TestFailuresAreListed(t *testing.T) {
	e := newEnv(t, 1<<20)
	e.svc.Assets = fakeAssets{err: errors.New("bucket gone")}
	upload(t, e.srv.URL+"/api/image/analyze", map[string]string{"email": "user@example.com"}, pngBytes(t))

	resp := do(t, http.MethodGet, e.srv.URL+"/api/failures?email=user@example.com")
	var list []struct {
		Stage string `json:"stage"`
		Kind  string `json:"kind"`
	}
	decode(t, resp, &list)
	if len(list) != 1 || list[0].Stage != "uploaded" || list[0].Kind != "image" {
		t.Fatalf("failures: got=%+v", list)
	}
}
