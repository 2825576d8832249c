//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cucumber/godog"

	"github.com/milordsutrix/tool-tubecutter/application/process"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/archive"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/memstore"
)

// fakeFetcher simulates yt-dlp without touching the network
type fakeFetcher struct {
	title     string
	failFetch bool
}

func (f *fakeFetcher) Validate(ctx context.Context, url string) bool { return true }

func (f *fakeFetcher) Describe(ctx context.Context, url string) (*media.SourceInfo, error) {
	return &media.SourceInfo{Title: f.title, Duration: 300, Channel: "test channel"}, nil
}

func (f *fakeFetcher) FetchAudio(ctx context.Context, url, destDir string) (string, error) {
	if f.failFetch {
		return "", errors.New("download failed")
	}
	path := filepath.Join(destDir, "source-test.mp3")
	if err := os.WriteFile(path, []byte("source audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

// fakeExtractor simulates ffmpeg; failures are keyed by segment start time
type fakeExtractor struct {
	failStarts map[int]bool
}

func (e *fakeExtractor) Extract(ctx context.Context, seg media.Segment) (int64, error) {
	if e.failStarts[seg.StartSeconds] {
		return 0, errors.New("extraction failed")
	}
	data := []byte("clip audio")
	if err := os.WriteFile(seg.OutputPath, data, 0644); err != nil {
		return 0, err
	}
	return int64(len(data)), nil
}

type processingWorld struct {
	store     *memstore.Store
	fetcher   *fakeFetcher
	extractor *fakeExtractor
	svc       *process.Service
	workDir   string

	result    *process.SubmitResult
	submitErr error
}

func (w *processingWorld) reset() error {
	workDir, err := os.MkdirTemp("", "tubecutter-features")
	if err != nil {
		return err
	}
	w.workDir = workDir
	w.store = memstore.New(10 * time.Minute)
	w.fetcher = &fakeFetcher{}
	w.extractor = &fakeExtractor{failStarts: map[int]bool{}}
	w.svc = process.NewService(w.store, w.fetcher, w.extractor, archive.NewZipBundler(), workDir)
	w.result = nil
	w.submitErr = nil
	return nil
}

func (w *processingWorld) aKnownVideoAtTitled(url, title string) error {
	w.fetcher.title = title
	return nil
}

func (w *processingWorld) extractionFailsForClipsStartingAt(start string) error {
	ts, err := media.ParseTimestamp(start)
	if err != nil {
		return err
	}
	w.extractor.failStarts[ts.TotalSeconds()] = true
	return nil
}

func (w *processingWorld) fetchingTheSourceAudioFails() error {
	w.fetcher.failFetch = true
	return nil
}

func (w *processingWorld) aProcessingRequestIsAlreadyRunning(url string) error {
	ctx := context.Background()
	video, err := w.store.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceYouTube,
		YouTubeURL: url,
		Title:      w.fetcher.title,
	})
	if err != nil {
		return err
	}
	start, _ := media.ParseTimestamp("0:00")
	end, _ := media.ParseTimestamp("0:10")
	_, _, err = w.store.CreateJobWithSelections(ctx, video.ID, []media.TimeRange{
		{Start: start, End: end, Title: "held"},
	})
	return err
}

func (w *processingWorld) iSubmitAProcessingRequest(url string, table *godog.Table) error {
	req := media.ProcessRequest{
		SourceType: media.SourceYouTube,
		YouTubeURL: url,
	}
	for _, row := range table.Rows[1:] {
		req.Selections = append(req.Selections, media.SelectionInput{
			StartTime: row.Cells[0].Value,
			EndTime:   row.Cells[1].Value,
			Title:     row.Cells[2].Value,
		})
	}
	w.result, w.submitErr = w.svc.Submit(context.Background(), req)
	return nil
}

func (w *processingWorld) thePipelineFinishes() error {
	if w.submitErr != nil {
		return fmt.Errorf("request was not accepted: %w", w.submitErr)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := w.store.GetJob(context.Background(), w.result.Job.ID)
		if err != nil {
			return err
		}
		if job.Status.Terminal() {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("pipeline did not finish in time")
}

func (w *processingWorld) theJobShouldBeWithProgress(status string, progress int) error {
	job, err := w.store.GetJob(context.Background(), w.result.Job.ID)
	if err != nil {
		return err
	}
	if string(job.Status) != status {
		return fmt.Errorf("expected job status %q, got %q", status, job.Status)
	}
	if job.Progress != progress {
		return fmt.Errorf("expected progress %d, got %d", progress, job.Progress)
	}
	return nil
}

func (w *processingWorld) everySelectionShouldBe(status string) error {
	selections, err := w.store.ListSelectionsByVideoID(context.Background(), w.result.Video.ID)
	if err != nil {
		return err
	}
	for _, sel := range selections {
		if string(sel.Status) != status {
			return fmt.Errorf("selection %q: expected status %q, got %q", sel.Title, status, sel.Status)
		}
	}
	return nil
}

func (w *processingWorld) findSelection(title string) (*media.Selection, error) {
	selections, err := w.store.ListSelectionsByVideoID(context.Background(), w.result.Video.ID)
	if err != nil {
		return nil, err
	}
	for _, sel := range selections {
		if sel.Title == title {
			return sel, nil
		}
	}
	return nil, fmt.Errorf("no selection titled %q", title)
}

func (w *processingWorld) theSelectionShouldBe(title, status string) error {
	sel, err := w.findSelection(title)
	if err != nil {
		return err
	}
	if string(sel.Status) != status {
		return fmt.Errorf("selection %q: expected status %q, got %q", title, status, sel.Status)
	}
	return nil
}

func (w *processingWorld) theSelectionShouldHaveFilename(title, filename string) error {
	sel, err := w.findSelection(title)
	if err != nil {
		return err
	}
	if sel.Filename != filename {
		return fmt.Errorf("selection %q: expected filename %q, got %q", title, filename, sel.Filename)
	}
	return nil
}

func (w *processingWorld) theRequestShouldBeRejectedAsInvalid() error {
	if !errors.Is(w.submitErr, media.ErrInvalidRequest) {
		return fmt.Errorf("expected invalid request error, got %v", w.submitErr)
	}
	return nil
}

func (w *processingWorld) theRequestShouldBeRejectedAsAConflict() error {
	if !errors.Is(w.submitErr, media.ErrActiveJob) {
		return fmt.Errorf("expected active job conflict, got %v", w.submitErr)
	}
	return nil
}

// InitializeProcessingScenario registers the processing pipeline steps
func InitializeProcessingScenario(ctx *godog.ScenarioContext) {
	w := &processingWorld{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		return c, w.reset()
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w.workDir != "" {
			os.RemoveAll(w.workDir)
		}
		return c, nil
	})

	ctx.Step(`^a known video at "([^"]*)" titled "([^"]*)"$`, w.aKnownVideoAtTitled)
	ctx.Step(`^extraction fails for clips starting at "([^"]*)"$`, w.extractionFailsForClipsStartingAt)
	ctx.Step(`^fetching the source audio fails$`, w.fetchingTheSourceAudioFails)
	ctx.Step(`^a processing request for "([^"]*)" is already running$`, w.aProcessingRequestIsAlreadyRunning)
	ctx.Step(`^I submit a processing request for "([^"]*)" with selections:$`, w.iSubmitAProcessingRequest)
	ctx.Step(`^the pipeline finishes$`, w.thePipelineFinishes)
	ctx.Step(`^the job should be "([^"]*)" with progress (\d+)$`, w.theJobShouldBeWithProgress)
	ctx.Step(`^every selection should be "([^"]*)"$`, w.everySelectionShouldBe)
	ctx.Step(`^the selection "([^"]*)" should be "([^"]*)"$`, w.theSelectionShouldBe)
	ctx.Step(`^the selection "([^"]*)" should have filename "([^"]*)"$`, w.theSelectionShouldHaveFilename)
	ctx.Step(`^the request should be rejected as invalid$`, w.theRequestShouldBeRejectedAsInvalid)
	ctx.Step(`^the request should be rejected as a conflict$`, w.theRequestShouldBeRejectedAsAConflict)
}
