package httputil

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type payload struct {
	Layer string `json:"layer"`
}

func TestDecodeJSONPost(t *testing.T) {
	tests := []struct {
		name           string
		method         string
		contentType    string
		body           string
		expectedOK     bool
		expectedStatus int
	}{
		{name: "valid", method: http.MethodPost, contentType: "application/json", body: `{"layer":"a"}`, expectedOK: true, expectedStatus: http.StatusOK},
		{name: "charset", method: http.MethodPost, contentType: "application/json; charset=utf-8", body: `{"layer":"a"}`, expectedOK: true, expectedStatus: http.StatusOK},
		{name: "method", method: http.MethodGet, contentType: "application/json", body: `{}`, expectedStatus: http.StatusMethodNotAllowed},
		{name: "content_type", method: http.MethodPost, contentType: "text/plain", body: `{}`, expectedStatus: http.StatusUnsupportedMediaType},
		{name: "syntax", method: http.MethodPost, contentType: "application/json", body: `{"layer":}`, expectedStatus: http.StatusBadRequest},
		{name: "truncated", method: http.MethodPost, contentType: "application/json", body: `{"layer":"a"`, expectedStatus: http.StatusBadRequest},
		{name: "type", method: http.MethodPost, contentType: "application/json", body: `{"layer":1}`, expectedStatus: http.StatusBadRequest},
		{name: "unknown_field", method: http.MethodPost, contentType: "application/json", body: `{"entity":"a"}`, expectedStatus: http.StatusBadRequest},
		{name: "empty", method: http.MethodPost, contentType: "application/json", body: ``, expectedStatus: http.StatusBadRequest},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(test.method, "/", strings.NewReader(test.body))
			r.Header.Set("Content-Type", test.contentType)
			w := httptest.NewRecorder()

			var p payload
			ok := DecodeJSONPost(context.Background(), w, r, &p)
			if ok != test.expectedOK {
				t.Errorf("calling DecodeJSONPost got: %v, expected: %v", ok, test.expectedOK)
			}
			if w.Code != test.expectedStatus {
				t.Errorf("calling DecodeJSONPost, status got: %v, expected: %v", w.Code, test.expectedStatus)
			}
			if ok && p.Layer != "a" {
				t.Errorf("decoded layer got: %q, expected: %q", p.Layer, "a")
			}
		})
	}
}

func TestRespJSON(t *testing.T) {
	w := httptest.NewRecorder()
	RespJSON(context.Background(), w, http.StatusCreated, payload{Layer: "x"})
	if w.Code != http.StatusCreated {
		t.Errorf("status got: %v, expected: %v", w.Code, http.StatusCreated)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"layer":"x"}` {
		t.Errorf("body got: %s, expected: %s", got, `{"layer":"x"}`)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type got: %s, expected: application/json", ct)
	}
}

func TestRespError(t *testing.T) {
	tests := []struct {
		name     string
		format   string
		args     []interface{}
		expected string
	}{
		{name: "plain", format: "layer not found: %s", args: []interface{}{"cafes"}, expected: "layer not found: cafes"},
		{name: "quote", format: "layer not found: %s", args: []interface{}{`ca"fes`}, expected: `layer not found: ca"fes`},
		{name: "backslash", format: "%v", args: []interface{}{`c:\layer`}, expected: `c:\layer`},
		{name: "control", format: "id %s", args: []interface{}{"a\x00\nb"}, expected: "id a\x00\nb"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			RespError(context.Background(), w, http.StatusNotFound, test.format, test.args...)
			if w.Code != http.StatusNotFound {
				t.Errorf("status got: %v, expected: %v", w.Code, http.StatusNotFound)
			}
			var body errorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body is not valid json: %v, body: %s", err, w.Body.String())
			}
			if body.Error != test.expected {
				t.Errorf("error message got: %q, expected: %q", body.Error, test.expected)
			}
		})
	}
}

func TestRequireBearer(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	tests := []struct {
		name           string
		token          string
		header         string
		expectedStatus int
	}{
		{name: "disabled", token: "", header: "", expectedStatus: http.StatusNoContent},
		{name: "valid", token: "secret", header: "Bearer secret", expectedStatus: http.StatusNoContent},
		{name: "missing", token: "secret", header: "", expectedStatus: http.StatusUnauthorized},
		{name: "wrong", token: "secret", header: "Bearer nope", expectedStatus: http.StatusUnauthorized},
		{name: "basic", token: "secret", header: "Basic c2VjcmV0", expectedStatus: http.StatusUnauthorized},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.header != "" {
				r.Header.Set("Authorization", test.header)
			}
			w := httptest.NewRecorder()
			RequireBearer(test.token, next).ServeHTTP(w, r)
			if w.Code != test.expectedStatus {
				t.Errorf("status got: %v, expected: %v", w.Code, test.expectedStatus)
			}
		})
	}
}

func TestNewClientFromConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	}))
	defer srv.Close()

	tests := []struct {
		name        string
		cfg         ClientConfig
		expected    string
		expectedErr bool
	}{
		{name: "none", cfg: ClientConfig{}, expected: ""},
		{name: "bearer", cfg: ClientConfig{BearerToken: "t0k"}, expected: "Bearer t0k"},
		{name: "basic", cfg: ClientConfig{BasicAuth: &BasicAuth{Username: "u", Password: "p"}}, expected: "Basic dTpw"},
		{name: "both", cfg: ClientConfig{BearerToken: "t", BasicAuth: &BasicAuth{Username: "u"}}, expectedErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			client, err := NewClientFromConfig(test.cfg, true)
			if (err != nil) != test.expectedErr {
				t.Fatalf("creating the client, err got: %v, expected error: %v", err, test.expectedErr)
			}
			if err != nil {
				return
			}
			resp, err := client.Get(srv.URL)
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if string(body) != test.expected {
				t.Errorf("authorization got: %q, expected: %q", body, test.expected)
			}
		})
	}
}
