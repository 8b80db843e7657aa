package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range newRootCommand().Commands() {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "review"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestReviewCommandRequiresURL(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"review", "--env-file", ""})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error without a pull request URL")
	}
}

func TestHealthz(t *testing.T) {
	mux := newMux(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}
