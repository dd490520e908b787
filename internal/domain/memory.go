package domain

// MatchType says how a memory search result matched the query.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
)

// MemoryEntry is one item of the agent's long-term memory.
type MemoryEntry struct {
	ID        string   `json:"id"`
	Kind      string   `json:"kind"`
	Content   string   `json:"content"`
	Tags      []string `json:"tags,omitempty"`
	CreatedAt int64    `json:"createdAt"`
}

// MemorySearchResult pairs an entry with its relevance to a query.
type MemorySearchResult struct {
	Entry     MemoryEntry `json:"entry"`
	Score     float64     `json:"score"`
	MatchType MatchType   `json:"matchType"`
}
