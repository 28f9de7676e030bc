package main

import (
	"strings"
	"testing"
)

func TestServeBannerJoinsBasePath(t *testing.T) {
	got := serveBanner("127.0.0.1:8080", "/v0", "workspace")
	if !strings.Contains(got, "http://127.0.0.1:8080/v0") {
		t.Fatalf("expected API root in banner, got %q", got)
	}
	if !strings.Contains(got, "OpenAPI at /v0/openapi.json") {
		t.Fatalf("expected base-path-joined spec URL, got %q", got)
	}
	if !strings.Contains(got, "recipes from workspace") {
		t.Fatalf("expected catalog source in banner, got %q", got)
	}
}
