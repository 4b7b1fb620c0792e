package notify

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-sod/spindex/internal/httputil"
)

func httpConfigWithBoth() httputil.ClientConfig {
	return httputil.ClientConfig{BearerToken: "t", BasicAuth: &httputil.BasicAuth{Username: "u"}}
}

type hookRecorder struct {
	mtx    sync.Mutex
	events map[string][]Event
	auth   []string
}

func (h *hookRecorder) handler(name string, gzipped bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.mtx.Lock()
		h.events[name] = append(h.events[name], req.Events...)
		h.auth = append(h.auth, r.Header.Get("Authorization"))
		h.mtx.Unlock()
		if gzipped {
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = gz.Write([]byte(`{"status":"ok"}`))
			_ = gz.Close()
			return
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
}

func TestWebhookNotifier(t *testing.T) {
	rec := &hookRecorder{events: map[string][]Event{}}
	all := httptest.NewServer(rec.handler("all", false))
	defer all.Close()
	cafes := httptest.NewServer(rec.handler("cafes", true))
	defer cafes.Close()

	n, err := NewWebhook(&Config{
		Targets: Targets{
			{URL: all.URL, HTTPConfig: httputil.ClientConfig{BearerToken: "secret"}},
			{URL: cafes.URL, Layers: []string{"cafes"}},
		},
		Interval:             time.Hour,
		MaxConcurrentRequest: 2,
		RequestTimeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("calling NewWebhook, err got: %v, expected: nil", err)
	}
	if err := n.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	n.Notify(
		Event{Type: EventErased, Layer: "cafes", ID: "a"},
		Event{Type: EventRebuilt, Layer: "parks"},
	)
	// the pending batch is delivered on stop
	n.Stop()
	n.Notify(Event{Type: EventErased, Layer: "cafes", ID: "late"})

	rec.mtx.Lock()
	defer rec.mtx.Unlock()
	if len(rec.events["all"]) != 2 {
		t.Errorf("events of the catch-all target got: %v, expected: %v", len(rec.events["all"]), 2)
	}
	if got := rec.events["cafes"]; len(got) != 1 || got[0].ID != "a" {
		t.Errorf("events of the cafes target got: %+v, expected the erase of a", got)
	}
	var bearer bool
	for _, a := range rec.auth {
		if a == "Bearer secret" {
			bearer = true
		}
	}
	if !bearer {
		t.Errorf("the catch-all target must receive its bearer token, got: %v", rec.auth)
	}
}

func TestWebhookNotifier_Deliver_Failure(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer failing.Close()

	n, err := NewWebhook(&Config{
		Targets:              Targets{{URL: failing.URL}},
		Interval:             time.Hour,
		MaxConcurrentRequest: 1,
		RequestTimeout:       5 * time.Second,
	})
	if err != nil {
		t.Fatalf("calling NewWebhook, err got: %v, expected: nil", err)
	}
	if err := n.deliver([]Event{{Type: EventRebuilt, Layer: "cafes"}}); err == nil {
		t.Errorf("calling deliver against a failing target, err got: nil, expected an error")
	}
	if err := n.deliver(nil); err != nil {
		t.Errorf("calling deliver without events, err got: %v, expected: nil", err)
	}
}
