package crawler

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/brandonshearin/streamtopo/topology"
)

// URLGetter is implemented by objects that can perform HTTP GET requests.
type URLGetter interface {
	Get(url string) (*http.Response, error)
}

// PrivateNetworkDetector is implemented by objects that can detect whether
// a host resolves to a private network address.
type PrivateNetworkDetector interface {
	IsPrivate(host string) (bool, error)
}

// pageFetcher is the fetch tier: topology.ProcessorHandler[*crawlLink, *fetchedPage].
type pageFetcher struct {
	urlGetter   URLGetter
	netDetector PrivateNetworkDetector
}

var _ topology.ProcessorHandler[*crawlLink, *fetchedPage] = (*pageFetcher)(nil)

func newPageFetcher(urlGetter URLGetter, netDetector PrivateNetworkDetector) *pageFetcher {
	return &pageFetcher{urlGetter: urlGetter, netDetector: netDetector}
}

func (f *pageFetcher) Init(ctx context.Context) {}

func (f *pageFetcher) HandleMessage(ctx context.Context, link *crawlLink) topology.ProcResult[*fetchedPage] {
	// Skip URLs that match a case-insensitive regex for extensions known
	// to hold binary or non-HTML content (images, scripts, stylesheets).
	if exclusionRegex.MatchString(link.URL) {
		return topology.Continue[*fetchedPage]()
	}

	if isPrivate, err := f.isPrivate(link.URL); err != nil || isPrivate {
		return topology.Continue[*fetchedPage]()
	}

	res, err := f.urlGetter.Get(link.URL)
	if err != nil {
		return topology.Continue[*fetchedPage]()
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return topology.Continue[*fetchedPage]()
	}
	if contentType := res.Header.Get("Content-Type"); !strings.Contains(contentType, "html") {
		return topology.Continue[*fetchedPage]()
	}

	var body strings.Builder
	if _, err := io.Copy(&body, res.Body); err != nil {
		return topology.Continue[*fetchedPage]()
	}

	return topology.Dispatch(&fetchedPage{
		LinkID:     link.LinkID,
		URL:        link.URL,
		RawContent: body.String(),
	}, "")
}

func (f *pageFetcher) Terminate(ctx context.Context) {}

func (f *pageFetcher) isPrivate(rawURL string) (bool, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false, err
	}
	return f.netDetector.IsPrivate(u.Hostname())
}
