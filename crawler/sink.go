package crawler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/brandonshearin/streamtopo/linkgraph/graph"
	"github.com/brandonshearin/streamtopo/textindexer/index"
	"github.com/brandonshearin/streamtopo/topology"
)

// Graph is a subset of the methods exposed by the linkgraph module. A good
// example of the interface-segregation principle.
type Graph interface {
	UpsertLink(link *graph.Link) error
	UpsertEdge(edge *graph.Edge) error
	RemoveStaleEdges(fromID uuid.UUID, updatedBefore time.Time) error
}

// Indexer is implemented by objects that can index the contents of
// webpages retrieved by the crawler.
type Indexer interface {
	Index(doc *index.Document) error
}

// pageSink is the terminal tier: topology.ProcessorHandler[*extractedPage, struct{}].
// It merges the teacher's graph-update and text-indexing stages into a
// single handler type, since topology.Router's broadcast policy dispatches
// within one typed next tier rather than to two unrelated handler types
// (see DESIGN.md).
type pageSink struct {
	graph   Graph
	indexer Indexer

	processed *int64
	done      *sync.WaitGroup
}

var _ topology.ProcessorHandler[*extractedPage, struct{}] = (*pageSink)(nil)

func newPageSink(g Graph, idx Indexer, processed *int64, done *sync.WaitGroup) *pageSink {
	return &pageSink{graph: g, indexer: idx, processed: processed, done: done}
}

func (s *pageSink) Init(ctx context.Context) {}

func (s *pageSink) HandleMessage(ctx context.Context, page *extractedPage) topology.ProcResult[struct{}] {
	if err := s.updateGraph(page); err == nil {
		_ = s.indexPage(page)
	}
	atomic.AddInt64(s.processed, 1)
	return topology.Continue[struct{}]()
}

func (s *pageSink) Terminate(ctx context.Context) {
	s.done.Done()
}

func (s *pageSink) updateGraph(page *extractedPage) error {
	src := &graph.Link{ID: page.LinkID, URL: page.URL, RetrievedAt: time.Now()}
	if err := s.graph.UpsertLink(src); err != nil {
		return err
	}

	for _, dstLink := range page.NoFollowLinks {
		if err := s.graph.UpsertLink(&graph.Link{URL: dstLink}); err != nil {
			return err
		}
	}

	removeEdgesOlderThan := time.Now()
	for _, dstLink := range page.Links {
		dst := &graph.Link{URL: dstLink}
		if err := s.graph.UpsertLink(dst); err != nil {
			return err
		}
		if err := s.graph.UpsertEdge(&graph.Edge{Src: src.ID, Dst: dst.ID}); err != nil {
			return err
		}
		if err := s.graph.RemoveStaleEdges(src.ID, removeEdgesOlderThan); err != nil {
			return err
		}
	}

	return nil
}

func (s *pageSink) indexPage(page *extractedPage) error {
	doc := &index.Document{
		LinkID:    page.LinkID,
		URL:       page.URL,
		Title:     page.Title,
		Content:   page.TextContent,
		IndexedAt: time.Now(),
	}
	return s.indexer.Index(doc)
}
