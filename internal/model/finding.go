package model

import "time"

// Classification is the lifecycle assessment of a single finding.
//
// Design decision: iota-based constants rather than strings, for the same
// reason as Source: the set is closed and ordering matters for reports.
type Classification int

const (
	// ClassificationHistorical indicates evidence that the product was
	// discontinued, replaced, or otherwise belongs to the past.
	ClassificationHistorical Classification = iota

	// ClassificationCurrent indicates evidence that the product is still
	// being sold or advertised.
	ClassificationCurrent

	// ClassificationIndeterminate indicates the context mentioned the
	// identifier but matched neither vocabulary. This is the default
	// outcome, not an error.
	ClassificationIndeterminate
)

// String returns a human-readable classification name.
func (c Classification) String() string {
	switch c {
	case ClassificationHistorical:
		return "historical"
	case ClassificationCurrent:
		return "current"
	case ClassificationIndeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Classifications returns all classifications in bucket display order.
func Classifications() []Classification {
	return []Classification{
		ClassificationHistorical,
		ClassificationCurrent,
		ClassificationIndeterminate,
	}
}

// RawHit is an unanalyzed document returned by a source client.
// It is owned transiently by the aggregator and discarded after the
// content analyzer has extracted findings from it.
type RawHit struct {
	// Source is the client that produced this hit.
	Source Source

	// URL is the document location (for Wayback hits, the snapshot URL).
	URL string

	// Title is the document title if the source already knows it
	// (search result heading, product name from a structured API).
	Title string

	// Body is the fetched document content. Sources fetch eagerly so a
	// failed fetch is isolated per URL; an empty body means the hit
	// carries only metadata.
	Body string

	// Term is the search term that produced this hit, when applicable.
	Term string

	// SnapshotTime is the archive timestamp for snapshot-index hits.
	// Zero for all other sources.
	SnapshotTime time.Time

	// DateHint is an out-of-band date supplied by structured sources
	// (e.g. the product database creation date). Used as the finding's
	// date clue when the context text yields none.
	DateHint string
}

// Finding is one classified piece of evidence about the product's
// lifecycle. Findings are immutable after creation and deduplicated by
// the aggregator before entering the result set.
type Finding struct {
	// Source is where the evidence was found.
	Source Source `json:"source"`

	// URL is the document the context was extracted from.
	URL string `json:"url"`

	// Context is the text window surrounding the identifier occurrence.
	Context string `json:"context"`

	// Classification is the lifecycle assessment of the context.
	Classification Classification `json:"classification"`

	// ClassificationText is the human-readable classification.
	ClassificationText string `json:"classification_text"`

	// Rule is the name of the classification rule that matched,
	// empty for indeterminate findings.
	Rule string `json:"rule,omitempty"`

	// ProductName is the candidate product name, empty if none was found.
	ProductName string `json:"product_name,omitempty"`

	// DateClue is the candidate date string, empty if none was found.
	DateClue string `json:"date_clue,omitempty"`

	// SnapshotTime is the archive timestamp for snapshot-source findings.
	SnapshotTime time.Time `json:"snapshot_time,omitzero"`

	// Term is the search term that led to this finding, when applicable.
	Term string `json:"term,omitempty"`
}
