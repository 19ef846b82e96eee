package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// robotsCache fetches and caches robots.txt per host. A host whose
// robots.txt cannot be fetched or parsed is treated as allow-all.
type robotsCache struct {
	http      *http.Client
	userAgent string
	byHost    map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *http.Client, userAgent string) *robotsCache {
	return &robotsCache{
		http:      client,
		userAgent: userAgent,
		byHost:    make(map[string]*robotstxt.RobotsData),
	}
}

// allowed reports whether rawURL may be fetched under the host's
// robots.txt. The error return is informational; callers fail open on it.
func (rc *robotsCache) allowed(ctx context.Context, rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return true, err
	}

	data, cached := rc.byHost[u.Host]
	if !cached {
		data = rc.fetch(ctx, u)
		rc.byHost[u.Host] = data
	}
	if data == nil {
		return true, nil
	}

	path := u.Path
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, rc.userAgent), nil
}

// fetch retrieves and parses a host's robots.txt. Returns nil (allow-all)
// on any failure, including 404.
func (rc *robotsCache) fetch(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", rc.userAgent)

	resp, err := rc.http.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
