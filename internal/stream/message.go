package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/RishiKendai/graphsim/internal/comparison"
	"github.com/RishiKendai/graphsim/internal/models"
	"github.com/RishiKendai/graphsim/internal/plagiarism"
)

// Stream entry field names
const (
	FieldRequestID = "requestId"
	FieldSnippetA  = "snippetA"
	FieldSnippetB  = "snippetB"
	FieldEmbedDim  = "embedDim"
	FieldThreshold = "threshold"
)

var ErrInvalidMessage = errors.New("invalid stream message")

// StreamMessage is a stream entry with its string fields
type StreamMessage struct {
	ID     string
	Fields map[string]string
}

func newStreamMessage(id string, values map[string]interface{}) *StreamMessage {
	fields := make(map[string]string, len(values))
	for key, val := range values {
		if s, ok := val.(string); ok {
			fields[key] = s
		}
	}
	return &StreamMessage{ID: id, Fields: fields}
}

// Values converts the fields back for XAdd
func (m *StreamMessage) Values() map[string]interface{} {
	values := make(map[string]interface{}, len(m.Fields))
	for k, v := range m.Fields {
		values[k] = v
	}
	return values
}

// ParseCompareRequest reads a comparison request from a stream entry.
// The request id defaults to the entry id.
func ParseCompareRequest(msg *StreamMessage) (*models.CompareRequest, error) {
	req := &models.CompareRequest{
		RequestID: msg.Fields[FieldRequestID],
		SnippetA:  msg.Fields[FieldSnippetA],
		SnippetB:  msg.Fields[FieldSnippetB],
		Source:    comparison.SourceStream,
	}
	if req.RequestID == "" {
		req.RequestID = msg.ID
	}

	var missing []string
	if req.SnippetA == "" {
		missing = append(missing, FieldSnippetA)
	}
	if req.SnippetB == "" {
		missing = append(missing, FieldSnippetB)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidMessage, strings.Join(missing, ", "))
	}

	if raw := msg.Fields[FieldEmbedDim]; raw != "" {
		dim, err := strconv.Atoi(raw)
		if err != nil || dim <= 0 || dim > plagiarism.MaxEmbedDim {
			return nil, fmt.Errorf("%w: embedDim %q", ErrInvalidMessage, raw)
		}
		req.EmbedDim = dim
	}

	if raw := msg.Fields[FieldThreshold]; raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: threshold %q", ErrInvalidMessage, raw)
		}
		req.Threshold = &threshold
	}

	return req, nil
}
