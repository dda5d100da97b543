package crawler

import "github.com/google/uuid"

// crawlLink is what the producer tier emits: a link graph entry still
// waiting to be fetched.
type crawlLink struct {
	LinkID uuid.UUID
	URL    string
}

// fetchedPage is what the fetch tier emits: a crawlLink plus its raw HTML
// body, ready for link/title/text extraction.
type fetchedPage struct {
	LinkID     uuid.UUID
	URL        string
	RawContent string
}

// extractedPage is what the extract tier emits: everything the sink tier
// needs to update the link graph and the text index.
type extractedPage struct {
	LinkID        uuid.UUID
	URL           string
	Title         string
	TextContent   string
	Links         []string
	NoFollowLinks []string
}
