package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/readalong/readalong/internal/app"
	"github.com/readalong/readalong/internal/config"
	"github.com/readalong/readalong/internal/storystore"
	phonememock "github.com/readalong/readalong/pkg/provider/phonemes/mock"
	"github.com/readalong/readalong/pkg/provider/storygen"
	storygenmock "github.com/readalong/readalong/pkg/provider/storygen/mock"
	sttmock "github.com/readalong/readalong/pkg/provider/stt/mock"
	ttsmock "github.com/readalong/readalong/pkg/provider/tts/mock"
	"github.com/readalong/readalong/pkg/story"
)

func testConfig() *config.Config {
	cfg := &config.Config{
		Server: config.ServerConfig{
			ListenAddr: "127.0.0.1:0",
			LogLevel:   config.LogInfo,
		},
		Storage: config.StorageConfig{InitialCredits: 2},
	}
	cfg.Reading.ApplyDefaults()
	return cfg
}

func testProviders() *app.Providers {
	return &app.Providers{
		TTS:      &ttsmock.Provider{},
		STT:      &sttmock.Provider{},
		Phonemes: &phonememock.Provider{},
		StoryGen: &storygenmock.Provider{},
	}
}

// startApp boots a full App on an ephemeral port and returns its base URL.
func startApp(t *testing.T, cfg *config.Config, providers *app.Providers, store storystore.Store) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	a, err := app.New(context.Background(), cfg, providers,
		app.WithStore(store), app.WithListener(ln))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run did not return after cancel")
		}
	})

	base := "http://" + ln.Addr().String()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return base
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("server did not become healthy")
	return ""
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestApp_StoryLifecycle(t *testing.T) {
	t.Parallel()

	store := storystore.NewMemStore()
	base := startApp(t, testConfig(), testProviders(), store)

	// Generate a story.
	resp := postJSON(t, base+"/api/stories", map[string]any{
		"learner_id": "lena", "topic": "a little boat", "length": "short",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("generate status = %d, want 201", resp.StatusCode)
	}
	created := decodeBody[story.Story](t, resp)
	if created.Title == "" || created.OwnerID != "lena" {
		t.Fatalf("created story = %+v", created)
	}
	id := created.ID.String()

	// It shows up in the learner's list.
	listResp, err := http.Get(base + "/api/stories?learner=lena")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	list := decodeBody[[]story.Story](t, listResp)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("list = %+v, want the created story", list)
	}

	// Save and read back a book report.
	req, _ := http.NewRequest(http.MethodPut, base+"/api/stories/"+id+"/report",
		bytes.NewReader([]byte(`{"report":"I liked the boat."}`)))
	repResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("save report: %v", err)
	}
	repResp.Body.Close()
	if repResp.StatusCode != http.StatusNoContent {
		t.Fatalf("save report status = %d, want 204", repResp.StatusCode)
	}

	getResp, err := http.Get(base + "/api/stories/" + id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	detail := decodeBody[struct {
		story.Story
		Report string `json:"report"`
	}](t, getResp)
	if detail.Report != "I liked the boat." {
		t.Errorf("report = %q", detail.Report)
	}

	// Delete and confirm it is gone.
	delReq, _ := http.NewRequest(http.MethodDelete, base+"/api/stories/"+id, nil)
	delResp, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", delResp.StatusCode)
	}
	goneResp, err := http.Get(base + "/api/stories/" + id)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	goneResp.Body.Close()
	if goneResp.StatusCode != http.StatusNotFound {
		t.Errorf("get deleted status = %d, want 404", goneResp.StatusCode)
	}
}

func TestApp_CreditsExhaustedAndGranted(t *testing.T) {
	t.Parallel()

	store := storystore.NewMemStore()
	base := startApp(t, testConfig(), testProviders(), store)

	gen := func() int {
		resp := postJSON(t, base+"/api/stories", map[string]any{
			"learner_id": "max", "topic": "dinosaurs",
		})
		resp.Body.Close()
		return resp.StatusCode
	}

	// Initial balance is 2; the third request must be refused.
	if code := gen(); code != http.StatusCreated {
		t.Fatalf("first generation = %d, want 201", code)
	}
	if code := gen(); code != http.StatusCreated {
		t.Fatalf("second generation = %d, want 201", code)
	}
	if code := gen(); code != http.StatusPaymentRequired {
		t.Fatalf("third generation = %d, want 402", code)
	}

	credResp, err := http.Get(base + "/api/learners/max/credits")
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	balance := decodeBody[map[string]int](t, credResp)
	if balance["credits"] != 0 {
		t.Errorf("credits = %d, want 0", balance["credits"])
	}

	grantResp := postJSON(t, base+"/api/learners/max/credits", map[string]int{"amount": 3})
	granted := decodeBody[map[string]int](t, grantResp)
	if granted["credits"] != 3 {
		t.Errorf("credits after grant = %d, want 3", granted["credits"])
	}
	if code := gen(); code != http.StatusCreated {
		t.Errorf("generation after grant = %d, want 201", code)
	}
}

func TestApp_GenerationFailureRefundsCredit(t *testing.T) {
	t.Parallel()

	providers := testProviders()
	providers.StoryGen = &storygenmock.Provider{
		GenerateFunc: func(context.Context, storygen.Request) (storygen.Draft, error) {
			return storygen.Draft{}, errors.New("backend down")
		},
	}

	store := storystore.NewMemStore()
	base := startApp(t, testConfig(), providers, store)

	resp := postJSON(t, base+"/api/stories", map[string]any{
		"learner_id": "ida", "topic": "space cats",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("failed generation status = %d, want 502", resp.StatusCode)
	}

	credResp, err := http.Get(base + "/api/learners/ida/credits")
	if err != nil {
		t.Fatalf("credits: %v", err)
	}
	balance := decodeBody[map[string]int](t, credResp)
	if balance["credits"] != 2 {
		t.Errorf("credits after refund = %d, want 2", balance["credits"])
	}
}

func TestApp_RejectsBadGenerationRequests(t *testing.T) {
	t.Parallel()

	base := startApp(t, testConfig(), testProviders(), storystore.NewMemStore())

	for name, body := range map[string]map[string]any{
		"missing learner": {"topic": "dragons"},
		"missing topic":   {"learner_id": "lena"},
	} {
		resp := postJSON(t, base+"/api/stories", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", name, resp.StatusCode)
		}
	}
}

func TestApp_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	base := startApp(t, testConfig(), testProviders(), storystore.NewMemStore())

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}

func TestApp_ShutdownIdempotent(t *testing.T) {
	t.Parallel()

	a, err := app.New(context.Background(), testConfig(), testProviders(),
		app.WithStore(storystore.NewMemStore()))
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 2; i++ {
		if err := a.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown call %d: %v", i+1, err)
		}
	}
}
