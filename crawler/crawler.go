// Package crawler implements a web-page crawling topology consisting of
// the following tiers:
//
//   - Producer: pull the next batch of links to crawl from a link graph
//     iterator.
//   - Fetch: retrieve the web-page contents from the remote server.
//   - Extract: resolve absolute/relative links, the page title, and its
//     text content from the retrieved page.
//   - Sink (terminal): update the link graph (new links, edges between the
//     crawled page and the links within it) and index the page's title and
//     text content.
package crawler

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/brandonshearin/streamtopo/linkgraph/graph"
	"github.com/brandonshearin/streamtopo/topology"
)

// Config encapsulates the configuration options for creating a new Crawler.
type Config struct {
	PrivateNetworkDetector PrivateNetworkDetector
	URLGetter              URLGetter
	Graph                  Graph
	Indexer                Indexer

	FetchWorkers   int
	ExtractWorkers int
	SinkWorkers    int
}

// Crawler drives a crawling run over a link graph iterator, one topology
// invocation per call to Crawl.
type Crawler struct {
	cfg Config
}

// NewCrawler returns a new crawler instance.
func NewCrawler(cfg Config) *Crawler {
	return &Crawler{cfg: cfg}
}

// Crawl iterates linkIt and sends each link through the crawl topology,
// returning the total count of pages that reached the sink tier. Calls to
// Crawl block until the link iterator is exhausted, an error occurs, or
// the context is cancelled.
func (c *Crawler) Crawl(ctx context.Context, linkIt graph.LinkIterator) (int, error) {
	sinkWorkers := orOne(c.cfg.SinkWorkers)

	var processed int64
	var done sync.WaitGroup
	done.Add(sinkWorkers)

	producer := topology.ProducerConfig[*crawlLink]{
		Factory:     func() topology.ProducerHandler[*crawlLink] { return newLinkProducer(linkIt) },
		Concurrency: 1,
		Router:      topology.RoundRobin,
	}
	fetch := topology.ProcessorConfig[*crawlLink, *fetchedPage]{
		Factory:     func() topology.ProcessorHandler[*crawlLink, *fetchedPage] { return newPageFetcher(c.cfg.URLGetter, c.cfg.PrivateNetworkDetector) },
		Concurrency: orOne(c.cfg.FetchWorkers),
		Router:      topology.RoundRobin,
	}
	extract := topology.ProcessorConfig[*fetchedPage, *extractedPage]{
		Factory:     func() topology.ProcessorHandler[*fetchedPage, *extractedPage] { return newPageExtractor(c.cfg.PrivateNetworkDetector) },
		Concurrency: orOne(c.cfg.ExtractWorkers),
		Router:      topology.RoundRobin,
	}
	sink := topology.TerminalConfig[*extractedPage, struct{}]{
		Factory:     func() topology.ProcessorHandler[*extractedPage, struct{}] { return newPageSink(c.cfg.Graph, c.cfg.Indexer, &processed, &done) },
		Concurrency: sinkWorkers,
	}

	if _, err := topology.RunTopology3[*crawlLink, *fetchedPage, *extractedPage, struct{}](producer, fetch, extract, sink); err != nil {
		return 0, err
	}

	// Every sink worker calls done.Done() from Terminate once its inbound
	// queue closes, which only happens once every upstream tier has
	// finished and propagated shutdown (topology/builder.go's
	// makeQueueSet). Waiting on done is this crawl run's equivalent of the
	// teacher's synchronous pipeline.Process call.
	waitOrCancel(ctx, &done)

	if err := linkIt.Error(); err != nil {
		return int(atomic.LoadInt64(&processed)), err
	}
	return int(atomic.LoadInt64(&processed)), ctx.Err()
}

func orOne(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func waitOrCancel(ctx context.Context, wg *sync.WaitGroup) {
	doneCh := make(chan struct{})
	go func() {
		wg.Wait()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-ctx.Done():
	}
}
