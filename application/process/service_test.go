package process

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/archive"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/memstore"
)

// stubFetcher stands in for yt-dlp
type stubFetcher struct {
	info      media.SourceInfo
	fetchErr  error
	fetchCalls int
}

func (f *stubFetcher) Validate(ctx context.Context, url string) bool { return true }

func (f *stubFetcher) Describe(ctx context.Context, url string) (*media.SourceInfo, error) {
	info := f.info
	return &info, nil
}

func (f *stubFetcher) FetchAudio(ctx context.Context, url, destDir string) (string, error) {
	if f.fetchErr != nil {
		return "", f.fetchErr
	}
	f.fetchCalls++
	path := filepath.Join(destDir, "source-stub.mp3")
	if err := os.WriteFile(path, []byte("source"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// stubExtractor stands in for ffmpeg; it fails for any segment whose start
// time is in failStarts
type stubExtractor struct {
	failStarts map[int]bool
	calls      []media.Segment
}

func (e *stubExtractor) Extract(ctx context.Context, seg media.Segment) (int64, error) {
	e.calls = append(e.calls, seg)
	if e.failStarts[seg.StartSeconds] {
		return 0, errors.New("conversion failed")
	}
	data := []byte(fmt.Sprintf("clip-%d", seg.StartSeconds))
	if err := os.WriteFile(seg.OutputPath, data, 0644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

type fixture struct {
	store     *memstore.Store
	fetcher   *stubFetcher
	extractor *stubExtractor
	svc       *Service
	workDir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	workDir := t.TempDir()
	store := memstore.New(10 * time.Minute)
	fetcher := &stubFetcher{info: media.SourceInfo{Title: "Concert Night", Duration: 300}}
	extractor := &stubExtractor{failStarts: map[int]bool{}}
	svc := NewService(store, fetcher, extractor, archive.NewZipBundler(), workDir)
	return &fixture{store: store, fetcher: fetcher, extractor: extractor, svc: svc, workDir: workDir}
}

func (f *fixture) submit(t *testing.T, selections ...media.SelectionInput) *SubmitResult {
	t.Helper()
	result, err := f.svc.Submit(context.Background(), media.ProcessRequest{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=abc",
		Selections: selections,
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return result
}

func (f *fixture) waitForJob(t *testing.T, jobID string) *media.Job {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := f.store.GetJob(context.Background(), jobID)
		if err != nil {
			t.Fatal(err)
		}
		if job.Status.Terminal() {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("job did not reach a terminal status")
	return nil
}

func TestSubmitRunsPipelineToCompletion(t *testing.T) {
	f := newFixture(t)

	result := f.submit(t,
		media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Intro"},
		media.SelectionInput{StartTime: "1:30", EndTime: "3:00", Title: "Guitar Solo!!"},
	)
	if len(result.Selections) != 2 {
		t.Fatalf("got %d selections, want 2", len(result.Selections))
	}
	if result.Video.Title != "Concert Night" {
		t.Errorf("video title = %q, want metadata from the probe", result.Video.Title)
	}

	job := f.waitForJob(t, result.Job.ID)
	if job.Status != media.StatusCompleted || job.Progress != 100 {
		t.Fatalf("job = %s/%d, want completed/100", job.Status, job.Progress)
	}

	selections, err := f.store.ListSelectionsByVideoID(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, sel := range selections {
		if sel.Status != media.StatusCompleted {
			t.Errorf("selection %q status = %s, want completed", sel.Title, sel.Status)
		}
		if _, err := os.Stat(sel.FilePath); err != nil {
			t.Errorf("selection %q output missing: %v", sel.Title, err)
		}
	}
	if selections[1].Filename != "guitar-solo.mp3" {
		t.Errorf("derived filename = %q, want guitar-solo.mp3", selections[1].Filename)
	}

	// the fetched source is a cache of one
	if _, err := os.Stat(filepath.Join(f.workDir, "source-stub.mp3")); !os.IsNotExist(err) {
		t.Error("fetched source should be removed after a successful run")
	}
	video, err := f.store.GetVideo(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatal(err)
	}
	if video.LocalPath != "" {
		t.Errorf("video LocalPath = %q, want cleared", video.LocalPath)
	}
}

func TestPipelineIsolatesSelectionFailure(t *testing.T) {
	f := newFixture(t)
	f.extractor.failStarts[90] = true

	result := f.submit(t,
		media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Intro"},
		media.SelectionInput{StartTime: "1:30", EndTime: "3:00", Title: "Outro"},
	)

	job := f.waitForJob(t, result.Job.ID)
	if job.Status != media.StatusCompleted || job.Progress != 100 {
		t.Fatalf("job = %s/%d, want completed/100 despite a failed selection", job.Status, job.Progress)
	}

	selections, err := f.store.ListSelectionsByVideoID(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatal(err)
	}
	if selections[0].Status != media.StatusCompleted {
		t.Errorf("healthy selection status = %s, want completed", selections[0].Status)
	}
	if selections[1].Status != media.StatusError {
		t.Errorf("failed selection status = %s, want error", selections[1].Status)
	}
}

func TestPipelineFailsJobWhenFetchFails(t *testing.T) {
	f := newFixture(t)
	f.fetcher.fetchErr = errors.New("video unavailable")

	result := f.submit(t, media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Intro"})

	job := f.waitForJob(t, result.Job.ID)
	if job.Status != media.StatusError {
		t.Fatalf("job status = %s, want error", job.Status)
	}
	if job.Progress != 10 {
		t.Errorf("job progress = %d, want 10 (failed before fetch checkpoint)", job.Progress)
	}
	if job.Error == "" {
		t.Error("job should carry the failure message")
	}

	selections, err := f.store.ListSelectionsByVideoID(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, sel := range selections {
		if sel.Status != media.StatusPending {
			t.Errorf("selection %q status = %s, want pending", sel.Title, sel.Status)
		}
	}
}

func TestPipelineKeepsUploadedSource(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sourcePath := filepath.Join(f.workDir, "uploaded.mp3")
	if err := os.WriteFile(sourcePath, []byte("uploaded audio"), 0644); err != nil {
		t.Fatal(err)
	}
	video, err := f.svc.RegisterUpload(ctx, sourcePath, "My Upload", 240)
	if err != nil {
		t.Fatal(err)
	}

	result, err := f.svc.Submit(ctx, media.ProcessRequest{
		SourceType:      media.SourceUpload,
		UploadedVideoID: video.ID,
		Selections: []media.SelectionInput{
			{StartTime: "0:10", EndTime: "1:30", Title: "Part One"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}

	job := f.waitForJob(t, result.Job.ID)
	if job.Status != media.StatusCompleted {
		t.Fatalf("job status = %s, want completed", job.Status)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		t.Error("uploaded source must survive the run")
	}
	if f.fetcher.fetchCalls != 0 {
		t.Error("uploaded sources must not be fetched")
	}
}

func TestSubmitReusesKnownVideo(t *testing.T) {
	f := newFixture(t)
	sel := media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Intro"}

	first := f.submit(t, sel)
	f.waitForJob(t, first.Job.ID)

	second := f.submit(t, sel)
	if second.Video.ID != first.Video.ID {
		t.Errorf("same URL created a second video: %s vs %s", second.Video.ID, first.Video.ID)
	}
	f.waitForJob(t, second.Job.ID)
}

func TestSubmitRejectsConcurrentJob(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.store.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=abc",
	})
	if err != nil {
		t.Fatal(err)
	}
	start, _ := media.ParseTimestamp("0:00")
	end, _ := media.ParseTimestamp("0:30")
	if _, _, err := f.store.CreateJobWithSelections(ctx, video.ID, []media.TimeRange{
		{Start: start, End: end, Title: "held"},
	}); err != nil {
		t.Fatal(err)
	}

	_, err = f.svc.Submit(ctx, media.ProcessRequest{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=abc",
		Selections: []media.SelectionInput{{StartTime: "0:10", EndTime: "1:30", Title: "Intro"}},
	})
	if !errors.Is(err, media.ErrActiveJob) {
		t.Fatalf("Submit during active job = %v, want ErrActiveJob", err)
	}
}

func TestSubmitRejectsInvalidRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Submit(context.Background(), media.ProcessRequest{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=abc",
		Selections: []media.SelectionInput{{StartTime: "1:75", EndTime: "3:00", Title: "bad"}},
	})
	if !errors.Is(err, media.ErrInvalidRequest) {
		t.Fatalf("Submit = %v, want ErrInvalidRequest", err)
	}

	// nothing was persisted
	if _, err := f.store.GetVideoByURL(context.Background(), "https://youtube.com/watch?v=abc"); !errors.Is(err, media.ErrNotFound) {
		t.Error("rejected request should not create a video")
	}
}

func TestArchiveCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.submit(t,
		media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Intro"},
		media.SelectionInput{StartTime: "1:30", EndTime: "3:00", Title: "Outro"},
	)
	f.waitForJob(t, result.Job.ID)

	archivePath, err := f.svc.ArchiveCompleted(ctx, result.Video.ID)
	if err != nil {
		t.Fatalf("ArchiveCompleted: %v", err)
	}
	defer os.Remove(archivePath)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("archive unreadable: %v", err)
	}
	defer r.Close()
	if len(r.File) != 2 {
		t.Errorf("archive holds %d entries, want 2", len(r.File))
	}
}

func TestPipelineKeepsSameTitledSelectionsApart(t *testing.T) {
	f := newFixture(t)

	result := f.submit(t,
		media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Chorus"},
		media.SelectionInput{StartTime: "1:30", EndTime: "3:00", Title: "Chorus"},
	)
	f.waitForJob(t, result.Job.ID)

	selections, err := f.store.ListSelectionsByVideoID(context.Background(), result.Video.ID)
	if err != nil {
		t.Fatal(err)
	}
	if selections[0].FilePath == selections[1].FilePath {
		t.Fatalf("both selections share output path %s", selections[0].FilePath)
	}
	for _, sel := range selections {
		if sel.Filename != "chorus.mp3" {
			t.Errorf("selection filename = %q, want chorus.mp3", sel.Filename)
		}
	}

	first, err := os.ReadFile(selections[0].FilePath)
	if err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(selections[1].FilePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != "clip-10" || string(second) != "clip-90" {
		t.Errorf("outputs = %q / %q, want each selection's own audio", first, second)
	}
}

func TestArchiveCompletedDisambiguatesDuplicateNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.submit(t,
		media.SelectionInput{StartTime: "0:10", EndTime: "1:30", Title: "Chorus"},
		media.SelectionInput{StartTime: "1:30", EndTime: "3:00", Title: "Chorus"},
	)
	f.waitForJob(t, result.Job.ID)

	archivePath, err := f.svc.ArchiveCompleted(ctx, result.Video.ID)
	if err != nil {
		t.Fatalf("ArchiveCompleted: %v", err)
	}
	defer os.Remove(archivePath)

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("archive unreadable: %v", err)
	}
	defer r.Close()

	names := make(map[string]bool)
	for _, file := range r.File {
		names[file.Name] = true
	}
	if !names["chorus.mp3"] || !names["chorus-2.mp3"] {
		t.Errorf("archive entries = %v, want chorus.mp3 and chorus-2.mp3", names)
	}
}

func TestArchiveCompletedWithNothingToBundle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	video, err := f.store.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=empty",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.ArchiveCompleted(ctx, video.ID); !errors.Is(err, media.ErrNotFound) {
		t.Fatalf("ArchiveCompleted with no outputs = %v, want ErrNotFound", err)
	}
}
