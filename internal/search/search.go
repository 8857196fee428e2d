package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Snippet        string `json:"snippet"`
	Goal           int    `json:"goal"`
	SignatureCount int    `json:"signature_count"`
}

// Query describes a search request.
type Query struct {
	Text   string
	Limit  int
	Offset int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push petitions into a search index.
type Indexer interface {
	IndexPetition(p PetitionRecord) error
	DeletePetition(id string) error
}

// PetitionRecord is the data we index for a petition.
type PetitionRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Story          string `json:"story"`
	Goal           int    `json:"goal"`
	SignatureCount int    `json:"signatureCount"`
}
