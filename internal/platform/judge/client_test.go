package judge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestExecuteSendsJudge0Request(t *testing.T) {
	var got submitRequest
	var gotToken, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/submissions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotToken = r.Header.Get("X-Auth-Token")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":{"id":3,"description":"Accepted"},"stdout":"42\n","time":"0.015","memory":3120}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret-token", 2*time.Second)
	resp, err := c.Execute(context.Background(), Request{SourceCode: "print(42)", LanguageID: 71, Stdin: "x", CPUTimeLimit: 2})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if gotQuery != "base64_encoded=false&wait=true" {
		t.Fatalf("query = %q", gotQuery)
	}
	if gotToken != "secret-token" {
		t.Fatalf("token = %q", gotToken)
	}
	if got.SourceCode != "print(42)" || got.LanguageID != 71 || got.Stdin != "x" {
		t.Fatalf("unexpected body %+v", got)
	}
	if got.CPUTimeLimit == nil || *got.CPUTimeLimit != 2 {
		t.Fatalf("cpu_time_limit not forwarded: %+v", got.CPUTimeLimit)
	}
	if !resp.Accepted() {
		t.Fatalf("expected accepted, got %+v", resp.Status)
	}
	if resp.Output() != "42\n" {
		t.Fatalf("output = %q", resp.Output())
	}
	if ms := resp.TimeMs(); ms == nil || *ms != 15 {
		t.Fatalf("time ms = %v", ms)
	}
}

func TestExecuteNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.Execute(context.Background(), Request{SourceCode: "x", LanguageID: 71}); err == nil {
		t.Fatal("expected error for 503")
	}
}

func TestExecuteTimesOut(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, "", 50*time.Millisecond)
	start := time.Now()
	if _, err := c.Execute(context.Background(), Request{SourceCode: "x", LanguageID: 71}); err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatal("timeout was not enforced")
	}
}

func TestOutputFallsBackToCompileOutput(t *testing.T) {
	compile := "main.c:1: error"
	empty := ""
	r := &Response{Status: Status{ID: StatusCompilationError}, Stdout: &empty, CompileOutput: &compile}
	if r.Output() != compile {
		t.Fatalf("output = %q", r.Output())
	}
	if r.Accepted() {
		t.Fatal("compilation error must not be accepted")
	}
}

func TestLookupLanguage(t *testing.T) {
	lang, ok := LookupLanguage(" Python ")
	if !ok || lang.ID != 71 {
		t.Fatalf("python lookup = %+v, %v", lang, ok)
	}
	if _, ok := LookupLanguage("cobol"); ok {
		t.Fatal("cobol should not be supported")
	}
	if n := len(Languages()); n != 6 {
		t.Fatalf("languages = %d", n)
	}
}
