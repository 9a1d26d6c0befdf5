package model

// Source identifies which external source produced a hit or finding.
//
// Design decision: We use an iota-based closed enum rather than free-form
// strings because the set of sources is fixed at compile time. Source
// clients are selected at construction, not discovered at runtime, so an
// open string type would only invite typos in dedup keys and stats maps.
type Source int

const (
	// SourceGoogle is the generic web search engine source.
	SourceGoogle Source = iota

	// SourceWayback is the Internet Archive snapshot index source.
	SourceWayback

	// SourceAmazon is the marketplace search source.
	SourceAmazon

	// SourceOpenFoodFacts is the structured product database source.
	SourceOpenFoodFacts
)

// String returns a human-readable source name.
func (s Source) String() string {
	switch s {
	case SourceGoogle:
		return "google"
	case SourceWayback:
		return "wayback"
	case SourceAmazon:
		return "amazon"
	case SourceOpenFoodFacts:
		return "openfoodfacts"
	default:
		return "unknown"
	}
}

// Sources returns all known sources in display order.
// Iteration order is fixed so reports and stats render deterministically.
func Sources() []Source {
	return []Source{SourceGoogle, SourceWayback, SourceAmazon, SourceOpenFoodFacts}
}
