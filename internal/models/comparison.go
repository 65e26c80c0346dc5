package models

import "time"

// CompareRequest asks for the distance between two snippets.
// It arrives over HTTP or the Redis stream.
type CompareRequest struct {
	RequestID string   `json:"requestId,omitempty"`
	SnippetA  string   `json:"snippetA" binding:"required"`
	SnippetB  string   `json:"snippetB" binding:"required"`
	EmbedDim  int      `json:"embedDim,omitempty" binding:"omitempty,min=1,max=1024"` // max is plagiarism.MaxEmbedDim
	Threshold *float64 `json:"threshold,omitempty" binding:"omitempty,min=0"`
	Source    string   `json:"-"`
}

// ComparisonResult is a scored pair stored in MongoDB
type ComparisonResult struct {
	ID        string    `bson:"_id" json:"id"`
	Score     float64   `bson:"score" json:"score"`
	EmbedDim  int       `bson:"embedDim" json:"embedDim"`
	Threshold float64   `bson:"threshold" json:"threshold"`
	Similar   bool      `bson:"similar" json:"similar"`
	Verdict   string    `bson:"verdict" json:"verdict"`
	TokensA   int       `bson:"tokensA" json:"tokensA"`
	TokensB   int       `bson:"tokensB" json:"tokensB"`
	Source    string    `bson:"source" json:"source"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
