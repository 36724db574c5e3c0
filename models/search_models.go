package models

// SearchRequest represents an incoming /search request
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResponse represents the reply to a /search request
type SearchResponse struct {
	Results []string `json:"results"`
}
