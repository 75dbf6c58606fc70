package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ourday-app/ourday/internal/push"
	"github.com/ourday-app/ourday/internal/store"
)

type fakeSender struct {
	sent []push.Notification
}

func (f *fakeSender) Send(_ context.Context, _ *push.Subscription, n push.Notification) error {
	f.sent = append(f.sent, n)
	return nil
}

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 9, 2, 0, 0, time.UTC)
}

func testServer(opts Options) *httptest.Server {
	if opts.Now == nil {
		opts.Now = fixedClock
	}
	return httptest.NewServer(New(opts).Router())
}

func doJSON(t *testing.T, method, url, body string, header http.Header) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, values := range header {
		for _, v := range values {
			req.Header.Set(key, v)
		}
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestStateGet_EmptyStoreReturnsEmptyObject(t *testing.T) {
	srv := testServer(Options{Store: store.NewMemory()})
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/state", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if len(body) != 0 {
		t.Fatalf("body = %v, want {}", body)
	}
}

func TestStatePost_StoresWholesaleAndEchoes(t *testing.T) {
	mem := store.NewMemory()
	srv := testServer(Options{Store: mem})
	defer srv.Close()

	payload := `{"days":{"2024-05-01":{"users":{"me":{"tasks":[{"id":"t1","text":"Run"}]}}}}}`
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/state", payload, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if _, ok := body["days"]; !ok {
		t.Fatalf("echo missing days: %v", body)
	}

	// A later GET serves the stored blob back.
	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/state", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	days, ok := body["days"].(map[string]any)
	if !ok || days["2024-05-01"] == nil {
		t.Fatalf("stored state lost: %v", body)
	}

	// The second write fully replaces the first.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/state", `{"days":{}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, err := mem.Get(context.Background(), store.StateKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"days":{}}` {
		t.Fatalf("stored blob = %s", data)
	}
}

func TestStatePost_RejectsNonObjectPayload(t *testing.T) {
	srv := testServer(Options{Store: store.NewMemory()})
	defer srv.Close()

	for _, payload := range []string{`[1,2,3]`, `"text"`, `42`, `not json`} {
		resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/state", payload, nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", payload, resp.StatusCode)
		}
	}
}

func TestState_WithoutStoreAnswers503(t *testing.T) {
	srv := testServer(Options{})
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/state", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
	required, ok := body["required"].([]any)
	if !ok || len(required) == 0 {
		t.Fatalf("503 body names no required config: %v", body)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/state", `{}`, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("POST status = %d, want 503", resp.StatusCode)
	}
}

func TestPushSubscribe_UpsertsByEndpoint(t *testing.T) {
	mem := store.NewMemory()
	srv := testServer(Options{Store: mem})
	defer srv.Close()

	payload := `{"subscription":{"endpoint":"https://push.example/a","keys":{"p256dh":"p","auth":"a"}},
		"userId":"partner","morningReminderTime":"07:00","timeZone":"UTC"}`
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/push/subscribe", payload, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	summary, ok := body["subscription"].(map[string]any)
	if !ok || summary["userId"] != "partner" {
		t.Fatalf("summary = %v", body)
	}

	// Same endpoint, new reminder time: still one stored entry.
	payload = `{"subscription":{"endpoint":"https://push.example/a","keys":{"p256dh":"p","auth":"a"}},
		"userId":"partner","morningReminderTime":"08:30","timeZone":"UTC"}`
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/push/subscribe", payload, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	list, err := push.NewRegistry(mem).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("stored subscriptions = %d, want 1", len(list))
	}
	if list[0].MorningReminderTime != "08:30" {
		t.Fatalf("morningReminderTime = %q", list[0].MorningReminderTime)
	}
}

func TestPushSubscribe_RejectsIncompleteSubscription(t *testing.T) {
	srv := testServer(Options{Store: store.NewMemory()})
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/push/subscribe",
		`{"subscription":{"endpoint":"https://push.example/a"}}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestPushPublicKey(t *testing.T) {
	srv := testServer(Options{Store: store.NewMemory()})
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/push/public-key", "", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status without keys = %d, want 503", resp.StatusCode)
	}
	srv.Close()

	srv = testServer(Options{
		Store: store.NewMemory(),
		VAPID: push.VAPIDConfig{PublicKey: "pub", PrivateKey: "priv", Subject: "mailto:x@example.com"},
	})
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/push/public-key", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["publicKey"] != "pub" {
		t.Fatalf("body = %v", body)
	}
}

func TestPushDispatch_RunsAPass(t *testing.T) {
	mem := store.NewMemory()
	sub := `[{"endpoint":"https://push.example/a","keys":{"p256dh":"p","auth":"a"},
		"userId":"me","morningReminderTime":"09:00","timeZone":"UTC","taskAlerts":{}}]`
	if err := mem.Set(context.Background(), store.SubscriptionsKey, []byte(sub)); err != nil {
		t.Fatal(err)
	}

	sender := &fakeSender{}
	srv := testServer(Options{
		Store:  mem,
		VAPID:  push.VAPIDConfig{PublicKey: "pub", PrivateKey: "priv", Subject: "mailto:x@example.com"},
		Sender: sender,
	})
	defer srv.Close()

	// The fixed clock sits at 09:02, inside the morning window.
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/push/dispatch", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body = %v", resp.StatusCode, body)
	}
	if body["sent"] != float64(1) {
		t.Fatalf("sent = %v, want 1", body["sent"])
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sender deliveries = %d", len(sender.sent))
	}
}

func TestPushDispatch_SecretGatesAccess(t *testing.T) {
	srv := testServer(Options{
		Store:          store.NewMemory(),
		VAPID:          push.VAPIDConfig{PublicKey: "pub", PrivateKey: "priv", Subject: "mailto:x@example.com"},
		Sender:         &fakeSender{},
		DispatchSecret: "hunter2",
	})
	defer srv.Close()

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/push/dispatch", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	wrong := http.Header{"Authorization": []string{"Bearer nope"}}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/push/dispatch", "", wrong)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d, want 401", resp.StatusCode)
	}

	right := http.Header{"Authorization": []string{"Bearer hunter2"}}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/push/dispatch", "", right)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with the secret = %d, want 200", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(Options{})
	defer srv.Close()

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}
