package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                    "/",
		"/metrics":                            "/metrics",
		"/config.json":                        "/config.json",
		"/api/v1/crates/new":                  "/api/v1/crates/new",
		"/api/v1/crates/serde/owners":         "/api/v1/crates/:name/owners",
		"/api/v1/crates/serde/1.0.0/download": "/api/v1/crates/:name/:version/download",
		"/api/v1/crates/serde/1.0.0/yank":     "/api/v1/crates/:name/:version/yank",
		"/api/v1/crates/testcrate_1/0.1.1/unyank": "/api/v1/crates/:name/:version/unyank",
		"/v1/tokens":        "/v1/tokens",
		"/v1/tokens/01HZX2": "/v1/tokens/:id",
		"/se/rd/serde":      "/index",
		"/1/a":              "/index",
		"/3/t/tok":          "/index",
		"/2/ab?x=1":         "/index",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
