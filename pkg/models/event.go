package models

import "encoding/json"

// ContentType enumerates the recognized shapes of an inbound Event (spec.md
// §3).
type ContentType string

const (
	ContentText        ContentType = "text"
	ContentPayload     ContentType = "payload"
	ContentImage       ContentType = "image"
	ContentAudio       ContentType = "audio"
	ContentVideo       ContentType = "video"
	ContentFile        ContentType = "file"
	ContentURL         ContentType = "url"
	ContentRegex       ContentType = "regex"
	ContentFlowTrigger ContentType = "flow_trigger"
)

// Event is the inbound unit the router and orchestrator act on. ContentValue
// is the canonical string form used for routing: the text itself, a media
// URL, a regex pattern, or a JSON-encoded {flow_id, step_id?} for triggers.
type Event struct {
	ContentType  ContentType     `json:"content_type"`
	ContentValue string          `json:"content_value"`
	Content      json.RawMessage `json:"content"`
	TTLDuration  *int64          `json:"ttl_duration,omitempty"`
	LowDataMode  *bool           `json:"low_data_mode,omitempty"`
}

// FlowTrigger is the decoded form of ContentValue when ContentType is
// "flow_trigger" (spec.md §4.3 step 1).
type FlowTrigger struct {
	FlowID string `json:"flow_id"`
	StepID string `json:"step_id,omitempty"`
}
