// Package index queries a sparse package registry index for the set of
// published versions of a package.
package index

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"k8s.io/klog/v2"

	"github.com/git-pkgs/autorelease/internal/client"
)

// DefaultURL is the sparse index for the crates.io registry.
const DefaultURL = "https://index.crates.io"

// ParseError indicates the index served a metadata file this tool could
// not understand. It is distinct from the package simply not existing.
type ParseError struct {
	Name string
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing index entry for %s (line %d): %v", e.Name, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Index maintains a per-run cache of remote version sets, keyed by
// package name. Entries are populated by Refresh and never invalidated;
// the cache's lifetime is one release run.
type Index struct {
	baseURL  string
	client   *client.Client
	breakers *breakerGroup
	cache    map[string]map[string]struct{}
}

// New creates an Index backed by the registry at baseURL.
// If baseURL is empty, DefaultURL is used. If c is nil, a default
// client is used.
func New(baseURL string, c *client.Client) *Index {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if c == nil {
		c = client.DefaultClient()
	}
	return &Index{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   c,
		breakers: newBreakerGroup(),
		cache:    make(map[string]map[string]struct{}),
	}
}

// PackageURL returns the URL of the package's metadata file in the index.
func (ix *Index) PackageURL(name string) (string, error) {
	shard, err := ShardPath(name)
	if err != nil {
		return "", err
	}
	return ix.baseURL + "/" + shard, nil
}

// Refresh fetches the package's metadata file and replaces the cached
// version set for that package. A 404 response means the package has
// never been published; that is a normal outcome, recorded as an empty
// version set. Any other failure leaves the cache untouched and is
// returned to the caller.
func (ix *Index) Refresh(ctx context.Context, name string) error {
	url, err := ix.PackageURL(name)
	if err != nil {
		return err
	}

	var body []byte
	notFound := false

	err = ix.breakers.do(extractHost(url), func() error {
		b, err := ix.client.Get(ctx, url)
		if err != nil {
			var httpErr *client.HTTPError
			if errors.As(err, &httpErr) && httpErr.IsNotFound() {
				// A missing package must not trip the breaker.
				notFound = true
				return nil
			}
			return err
		}
		body = b
		return nil
	})
	if err != nil {
		return fmt.Errorf("querying index for %s: %w", name, err)
	}

	if notFound {
		klog.V(2).Infof("index has no entry for %s, not yet published", name)
		ix.cache[name] = make(map[string]struct{})
		return nil
	}

	versions, err := parseVersions(name, body)
	if err != nil {
		return err
	}

	klog.V(2).Infof("index lists %d versions of %s", len(versions), name)
	ix.cache[name] = versions
	return nil
}

// Versions returns the cached version set for the package. The result
// is empty if the last Refresh saw a 404 or if no Refresh has happened.
func (ix *Index) Versions(name string) []string {
	set := ix.cache[name]
	versions := make([]string, 0, len(set))
	for v := range set {
		versions = append(versions, v)
	}
	return versions
}

// HasVersion reports whether the cached version set for the package
// contains the given version. Callers must Refresh first.
func (ix *Index) HasVersion(name, version string) bool {
	_, ok := ix.cache[name][version]
	return ok
}

// indexEntry is one line of a sparse index metadata file. Only the
// version field is consumed; the rest of the entry is ignored.
type indexEntry struct {
	Vers string `json:"vers"`
}

func parseVersions(name string, body []byte) (map[string]struct{}, error) {
	if !utf8.Valid(body) {
		return nil, &ParseError{Name: name, Err: errors.New("response body is not valid UTF-8")}
	}

	versions := make(map[string]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var entry indexEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, &ParseError{Name: name, Line: line, Err: err}
		}
		if entry.Vers == "" {
			return nil, &ParseError{Name: name, Line: line, Err: errors.New(`missing "vers" field`)}
		}
		versions[entry.Vers] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Name: name, Line: line, Err: err}
	}

	return versions, nil
}
