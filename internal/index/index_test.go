package index

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/git-pkgs/autorelease/internal/client"
)

const releaseUtilsBody = `{"name":"release-utils","vers":"0.2.4","cksum":"92959b"}
{"name":"release-utils","vers":"0.3.0","cksum":"ce9721"}
{"name":"release-utils","vers":"0.4.0","cksum":"0aa93a"}
{"name":"release-utils","vers":"0.4.1","cksum":"02922e"}
`

func testClient() *client.Client {
	return client.NewClient(
		client.WithMaxRetries(0),
		client.WithBaseDelay(time.Millisecond),
	)
}

func TestRefreshAndVersions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/re/le/release-utils" {
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(404)
			return
		}
		_, _ = w.Write([]byte(releaseUtilsBody))
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	if err := ix.Refresh(context.Background(), "release-utils"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	versions := ix.Versions("release-utils")
	sort.Strings(versions)

	want := []string{"0.2.4", "0.3.0", "0.4.0", "0.4.1"}
	if len(versions) != len(want) {
		t.Fatalf("expected %d versions, got %d: %v", len(want), len(versions), versions)
	}
	for i, v := range want {
		if versions[i] != v {
			t.Errorf("expected version %q at position %d, got %q", v, i, versions[i])
		}
	}

	if !ix.HasVersion("release-utils", "0.4.1") {
		t.Error("expected HasVersion to report 0.4.1")
	}
	if ix.HasVersion("release-utils", "9.9.9") {
		t.Error("did not expect HasVersion to report 9.9.9")
	}
}

func TestRefreshNotFoundIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	if err := ix.Refresh(context.Background(), "unpublished"); err != nil {
		t.Fatalf("expected 404 to be a normal outcome, got %v", err)
	}

	if got := ix.Versions("unpublished"); len(got) != 0 {
		t.Errorf("expected empty version set, got %v", got)
	}
	if ix.HasVersion("unpublished", "1.0.0") {
		t.Error("did not expect any version for an unpublished package")
	}
}

func TestRefreshServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	err := ix.Refresh(context.Background(), "serde")
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var httpErr *client.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %T: %v", err, err)
	}
	if httpErr.StatusCode != 500 {
		t.Errorf("expected status 500, got %d", httpErr.StatusCode)
	}
}

func TestRefreshMissingVersField(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"serde","vers":"1.0.0"}
{"name":"serde","cksum":"abc123"}
`))
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	err := ix.Refresh(context.Background(), "serde")
	if err == nil {
		t.Fatal("expected error for entry without vers field")
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %T: %v", err, err)
	}
	if parseErr.Line != 2 {
		t.Errorf("expected failure on line 2, got line %d", parseErr.Line)
	}

	// A malformed body must not leave a partial version set behind.
	if got := ix.Versions("serde"); len(got) != 0 {
		t.Errorf("expected no cached versions after parse failure, got %v", got)
	}
}

func TestRefreshMalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json at all\n"))
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	var parseErr *ParseError
	if err := ix.Refresh(context.Background(), "serde"); !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestRefreshNonUTF8Body(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte{0xff, 0xfe, '{', '}'})
	}))
	defer server.Close()

	ix := New(server.URL, testClient())
	var parseErr *ParseError
	if err := ix.Refresh(context.Background(), "serde"); !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for non-UTF-8 body, got %v", err)
	}
}

func TestVersionsBeforeRefresh(t *testing.T) {
	ix := New("https://index.example.invalid", testClient())
	if got := ix.Versions("serde"); len(got) != 0 {
		t.Errorf("expected empty version set before any refresh, got %v", got)
	}
	if ix.HasVersion("serde", "1.0.0") {
		t.Error("did not expect HasVersion before any refresh")
	}
}

func TestPackageURL(t *testing.T) {
	ix := New("https://index.crates.io/", nil)

	tests := []struct {
		name string
		want string
	}{
		{"a", "https://index.crates.io/1/a"},
		{"aa", "https://index.crates.io/2/aa"},
		{"aaa", "https://index.crates.io/3/a/aaa"},
		{"release-utils", "https://index.crates.io/re/le/release-utils"},
	}

	for _, tt := range tests {
		got, err := ix.PackageURL(tt.name)
		if err != nil {
			t.Fatalf("PackageURL(%q) failed: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("PackageURL(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}

	if _, err := ix.PackageURL(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("expected ErrInvalidName for empty name, got %v", err)
	}
}
