package notification

// Event types pushed to clients over the notification channel
const (
	EventUploadSuccess = "upload-success"
	EventUploadFailure = "upload-failure"
)

// UploadEvent is the payload delivered when a remote upload finishes
type UploadEvent struct {
	SelectionID string `json:"selectionId"`
	FileName    string `json:"fileName"`
	Error       string `json:"error,omitempty"`
}

// Pusher delivers asynchronous events to whichever client is registered for
// a job. Delivery is best-effort: Send never blocks and never fails the
// caller, it only reports whether a live connection received the event.
type Pusher interface {
	Send(jobID, event string, payload any) bool
}
