package media

// SourceType identifies where a video's media comes from
type SourceType string

const (
	// SourceYouTube means the media is fetched from a YouTube URL
	SourceYouTube SourceType = "youtube"
	// SourceUpload means the media was uploaded directly as an audio file
	SourceUpload SourceType = "upload"
)

// Status is the lifecycle state shared by videos, jobs and selections
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal returns true if the status admits no further transitions
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Video is one unit of source media, either a YouTube URL or an uploaded
// file, selected by SourceType. LocalPath is the uploaded file for upload
// origins; for YouTube origins it is populated only while a pipeline holds
// a fetched copy. The video's own Status is informational; the
// authoritative lifecycle lives on the Job.
type Video struct {
	ID         string     `json:"id"`
	SourceType SourceType `json:"sourceType"`
	YouTubeURL string     `json:"youtubeUrl,omitempty"`
	LocalPath  string     `json:"-"`
	Title      string     `json:"title"`
	Duration   int        `json:"duration"`
	Thumbnail  string     `json:"thumbnail,omitempty"`
	Channel    string     `json:"channel,omitempty"`
	Status     Status     `json:"status"`
}

// Job is one processing run over a single video, fanning out to its selections.
// Progress is 0-100 and monotonically non-decreasing within a run.
type Job struct {
	ID       string `json:"id"`
	VideoID  string `json:"videoId"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

// Selection is one requested time-range extraction and its output artifact.
// StartTime and EndTime are seconds into the source. Filename is assigned
// exactly once, at completion, derived from Title.
type Selection struct {
	ID        string `json:"id"`
	VideoID   string `json:"videoId"`
	StartTime int    `json:"startTime"`
	EndTime   int    `json:"endTime"`
	Title     string `json:"title"`
	Filename  string `json:"filename,omitempty"`
	Status    Status `json:"status"`
	FilePath  string `json:"-"`
	FileSize  int64  `json:"fileSize,omitempty"`
}
