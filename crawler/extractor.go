package crawler

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/brandonshearin/streamtopo/topology"
)

var (
	// exclusionRegex skips extracted links pointing at non-HTML content.
	exclusionRegex = regexp.MustCompile(`(?i)\.(?:jpg|jpeg|png|gif|ico|css|js)$`)
	// baseHrefRegex locates a <base href="XXX"> tag and captures its value.
	baseHrefRegex = regexp.MustCompile(`(?i)<base.*?href\s*?=\s*?"(.*?)\s*?"`)
	// findLinkRegex extracts <a href="..."> targets from the page body.
	findLinkRegex = regexp.MustCompile(`(?i)<a.*?href\s*?=\s*?"\s*?(.*?)\s*?".*?>`)
	// nofollowRegex flags links that should not count toward pagerank.
	nofollowRegex = regexp.MustCompile(`(?i)rel\s*?=\s*?"?nofollow"?`)
	// titleRegex captures the contents of the page's <title> element.
	titleRegex = regexp.MustCompile(`(?is)<title.*?>(.*?)</title>`)
)

// textPolicy strips every tag from a page body, leaving plain text
// suitable for indexing. A single shared policy is safe for concurrent use.
var textPolicy = bluemonday.NewTextPolicy()

func resolveURL(relTo *url.URL, target string) *url.URL {
	if len(target) == 0 {
		return nil
	}
	if target[0] == '/' && len(target) >= 2 && target[1] == '/' {
		target = relTo.Scheme + ":" + target
	}
	if targetURL, err := url.Parse(target); err == nil {
		return relTo.ResolveReference(targetURL)
	}
	return nil
}

func ensureHasTrailingSlash(s string) string {
	if s[len(s)-1] != '/' {
		return s + "/"
	}
	return s
}

// pageExtractor is the extract tier: topology.ProcessorHandler[*fetchedPage, *extractedPage].
// It merges the teacher's link-extraction stage with the title/text
// extraction stage the retrieved snapshot of the teacher was missing.
type pageExtractor struct {
	netDetector PrivateNetworkDetector
}

var _ topology.ProcessorHandler[*fetchedPage, *extractedPage] = (*pageExtractor)(nil)

func newPageExtractor(netDetector PrivateNetworkDetector) *pageExtractor {
	return &pageExtractor{netDetector: netDetector}
}

func (e *pageExtractor) Init(ctx context.Context) {}

func (e *pageExtractor) HandleMessage(ctx context.Context, page *fetchedPage) topology.ProcResult[*extractedPage] {
	relTo, err := url.Parse(page.URL)
	if err != nil {
		return topology.Continue[*extractedPage]()
	}

	content := page.RawContent
	if baseMatch := baseHrefRegex.FindStringSubmatch(content); len(baseMatch) == 2 {
		if base := resolveURL(relTo, ensureHasTrailingSlash(baseMatch[1])); base != nil {
			relTo = base
		}
	}

	out := &extractedPage{
		LinkID: page.LinkID,
		URL:    page.URL,
		Title:  norm.NFC.String(strings.TrimSpace(extractTitle(content))),
	}

	seenMap := make(map[string]struct{})
	for _, match := range findLinkRegex.FindAllStringSubmatch(content, -1) {
		link := resolveURL(relTo, match[1])
		if link == nil || !e.retainLink(relTo.Hostname(), link) {
			continue
		}

		link.Fragment = ""
		linkStr := link.String()
		if _, seen := seenMap[linkStr]; seen || exclusionRegex.MatchString(linkStr) {
			continue
		}
		seenMap[linkStr] = struct{}{}

		if nofollowRegex.MatchString(match[0]) {
			out.NoFollowLinks = append(out.NoFollowLinks, linkStr)
		} else {
			out.Links = append(out.Links, linkStr)
		}
	}

	out.TextContent = norm.NFC.String(strings.TrimSpace(textPolicy.Sanitize(content)))

	return topology.Dispatch(out, "")
}

func (e *pageExtractor) Terminate(ctx context.Context) {}

func extractTitle(content string) string {
	if m := titleRegex.FindStringSubmatch(content); len(m) == 2 {
		return m[1]
	}
	return ""
}

func (e *pageExtractor) retainLink(srcHost string, link *url.URL) bool {
	if link == nil {
		return false
	}
	if link.Scheme != "http" && link.Scheme != "https" {
		return false
	}
	if link.Hostname() == srcHost {
		return true
	}
	if isPrivate, err := e.netDetector.IsPrivate(link.Host); err != nil || isPrivate {
		return false
	}
	return true
}
