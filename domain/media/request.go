package media

import "fmt"

// SelectionInput is one requested time range as submitted by the client.
// Times are strings in MM:SS or H:MM:SS format.
type SelectionInput struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Title     string `json:"title"`
}

// ProcessRequest is a request to process one video into N audio selections
type ProcessRequest struct {
	SourceType      SourceType       `json:"sourceType"`
	YouTubeURL      string           `json:"youtubeUrl,omitempty"`
	UploadedVideoID string           `json:"uploadedVideoId,omitempty"`
	Selections      []SelectionInput `json:"selections"`
}

// TimeRange is a validated, parsed selection input
type TimeRange struct {
	Start Timestamp
	End   Timestamp
	Title string
}

// Validate checks the request shape and parses every selection's time range.
// It returns the parsed ranges only if the whole request is valid; a single
// bad selection rejects the entire request so nothing is partially persisted.
func (r *ProcessRequest) Validate() ([]TimeRange, error) {
	switch r.SourceType {
	case SourceYouTube:
		if r.YouTubeURL == "" {
			return nil, fmt.Errorf("%w: youtubeUrl is required for youtube source", ErrInvalidRequest)
		}
	case SourceUpload:
		if r.UploadedVideoID == "" {
			return nil, fmt.Errorf("%w: uploadedVideoId is required for upload source", ErrInvalidRequest)
		}
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", ErrInvalidRequest, r.SourceType)
	}

	if len(r.Selections) == 0 {
		return nil, fmt.Errorf("%w: at least one selection is required", ErrInvalidRequest)
	}

	ranges := make([]TimeRange, 0, len(r.Selections))
	for i, sel := range r.Selections {
		if sel.Title == "" {
			return nil, fmt.Errorf("%w: selection %d has an empty title", ErrInvalidRequest, i+1)
		}

		start, err := ParseTimestamp(sel.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: selection %d: %v", ErrInvalidRequest, i+1, err)
		}
		end, err := ParseTimestamp(sel.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: selection %d: %v", ErrInvalidRequest, i+1, err)
		}

		if !start.Before(end) {
			return nil, fmt.Errorf("%w: selection %d: start time %s must be before end time %s",
				ErrInvalidRequest, i+1, start, end)
		}

		ranges = append(ranges, TimeRange{Start: start, End: end, Title: sel.Title})
	}

	return ranges, nil
}
