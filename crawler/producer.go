package crawler

import (
	"context"

	"github.com/brandonshearin/streamtopo/linkgraph/graph"
	"github.com/brandonshearin/streamtopo/topology"
)

// linkProducer is the producer tier: topology.ProducerHandler[*crawlLink].
// It decorates a graph.LinkIterator, so only one worker may ever use a
// given instance (the iterator itself is not safe for concurrent use) —
// Crawler.Crawl enforces this by building the producer tier with
// Concurrency: 1.
type linkProducer struct {
	linkIt graph.LinkIterator
}

var _ topology.ProducerHandler[*crawlLink] = (*linkProducer)(nil)

func newLinkProducer(linkIt graph.LinkIterator) *linkProducer {
	return &linkProducer{linkIt: linkIt}
}

func (p *linkProducer) Init(ctx context.Context) {}

func (p *linkProducer) FillBuffer(ctx context.Context, n int) ([]*crawlLink, error) {
	buf := make([]*crawlLink, 0, n)
	for len(buf) < n && p.linkIt.Next() {
		link := p.linkIt.Link()
		buf = append(buf, &crawlLink{LinkID: link.ID, URL: link.URL})
	}
	if len(buf) > 0 {
		return buf, nil
	}
	return nil, topology.ErrProducerDone
}

func (p *linkProducer) Drain(ctx context.Context, residual []*crawlLink) {}

func (p *linkProducer) Terminate(ctx context.Context) {}
