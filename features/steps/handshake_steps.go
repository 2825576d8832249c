//go:build integration

package steps

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cucumber/godog"
	"golang.org/x/oauth2"

	appdist "github.com/milordsutrix/tool-tubecutter/application/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/memstore"
)

// fakeProvider simulates the Drive OAuth flow and upload
type fakeProvider struct {
	mu       sync.Mutex
	uploaded []string
	failErr  error
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://accounts.example/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "test-token"}, nil
}

func (p *fakeProvider) Upload(ctx context.Context, token *oauth2.Token, localPath, fileName string) (*distribution.RemoteFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return nil, p.failErr
	}
	p.uploaded = append(p.uploaded, fileName)
	return &distribution.RemoteFile{ID: "file-1", Name: fileName, MimeType: "audio/mpeg"}, nil
}

func (p *fakeProvider) uploadedFiles() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.uploaded...)
}

// fakePusher records notification sends
type fakePusher struct {
	mu     sync.Mutex
	events []pushedEvent
}

type pushedEvent struct {
	jobID string
	event string
}

func (p *fakePusher) Send(jobID, event string, payload any) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, pushedEvent{jobID: jobID, event: event})
	return true
}

func (p *fakePusher) sent() []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]pushedEvent(nil), p.events...)
}

type handshakeWorld struct {
	store    *memstore.Store
	provider *fakeProvider
	pusher   *fakePusher
	svc      *appdist.UploadService
	ttl      time.Duration

	selectionTitle string
	selectionID    string
	otherSelID     string
	jobID          string

	authURL     string
	state       string
	initiateErr error
	callbackErr error
}

func (w *handshakeWorld) build(ttl time.Duration) {
	w.ttl = ttl
	w.store = memstore.New(ttl)
	w.provider = &fakeProvider{}
	w.pusher = &fakePusher{}
	w.svc = appdist.NewUploadService(w.store, w.store, w.provider, w.pusher)
	w.selectionID = ""
	w.otherSelID = ""
	w.jobID = ""
	w.authURL = ""
	w.state = ""
	w.initiateErr = nil
	w.callbackErr = nil
}

func (w *handshakeWorld) aCompletedSelectionTitled(title string) error {
	w.selectionTitle = title
	return w.createCompletedSelection(title)
}

func (w *handshakeWorld) createCompletedSelection(title string) error {
	ctx := context.Background()
	video, err := w.store.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=sel-" + title,
		Title:      "Concert Night",
	})
	if err != nil {
		return err
	}

	start, _ := media.ParseTimestamp("0:10")
	end, _ := media.ParseTimestamp("1:30")
	job, selections, err := w.store.CreateJobWithSelections(ctx, video.ID, []media.TimeRange{
		{Start: start, End: end, Title: title},
	})
	if err != nil {
		return err
	}
	w.jobID = job.ID
	w.selectionID = selections[0].ID

	completed := media.StatusCompleted
	filename := media.OutputFilename(title)
	filePath := "/tmp/" + filename
	size := int64(1024)
	if _, err := w.store.UpdateSelection(ctx, w.selectionID, media.SelectionUpdate{
		Status:   &completed,
		Filename: &filename,
		FilePath: &filePath,
		FileSize: &size,
	}); err != nil {
		return err
	}
	progress := 100
	_, err = w.store.UpdateJob(ctx, w.jobID, media.JobUpdate{Status: &completed, Progress: &progress})
	return err
}

func (w *handshakeWorld) aSelectionThatHasNotFinishedProcessing() error {
	ctx := context.Background()
	video, err := w.store.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceYouTube,
		YouTubeURL: "https://youtube.com/watch?v=pending",
		Title:      "Work In Progress",
	})
	if err != nil {
		return err
	}
	start, _ := media.ParseTimestamp("0:00")
	end, _ := media.ParseTimestamp("0:30")
	_, selections, err := w.store.CreateJobWithSelections(ctx, video.ID, []media.TimeRange{
		{Start: start, End: end, Title: "unfinished"},
	})
	if err != nil {
		return err
	}
	w.otherSelID = selections[0].ID
	return nil
}

func (w *handshakeWorld) theHandshakeLifetimeIsVeryShort() error {
	w.build(20 * time.Millisecond)
	return w.createCompletedSelection(w.selectionTitle)
}

func (w *handshakeWorld) theHandshakeLifetimeHasElapsed() error {
	time.Sleep(w.ttl + 30*time.Millisecond)
	return nil
}

func (w *handshakeWorld) iInitiateARemoteUpload() error {
	w.authURL, w.initiateErr = w.svc.Initiate(context.Background(), w.selectionID)
	if w.initiateErr != nil {
		return nil
	}
	parsed, err := url.Parse(w.authURL)
	if err != nil {
		return err
	}
	w.state = parsed.Query().Get("state")
	return nil
}

func (w *handshakeWorld) iInitiateForTheUnfinishedSelection() error {
	_, w.initiateErr = w.svc.Initiate(context.Background(), w.otherSelID)
	return nil
}

func (w *handshakeWorld) iShouldReceiveAnAuthorizationURL() error {
	if w.initiateErr != nil {
		return fmt.Errorf("initiation failed: %w", w.initiateErr)
	}
	if w.state == "" {
		return fmt.Errorf("authorization URL %q carries no state", w.authURL)
	}
	return nil
}

func (w *handshakeWorld) theProviderCallsBackWithAValidCode() error {
	w.callbackErr = w.svc.Callback(context.Background(), "auth-code", w.state)
	return nil
}

func (w *handshakeWorld) theProviderUploadWillFailWith(message string) error {
	w.provider.mu.Lock()
	defer w.provider.mu.Unlock()
	w.provider.failErr = errors.New(message)
	return nil
}

func (w *handshakeWorld) theBackgroundUploadFinishes() error {
	if w.callbackErr != nil {
		return fmt.Errorf("callback failed: %w", w.callbackErr)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(w.pusher.sent()) > 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return errors.New("no notification arrived in time")
}

func (w *handshakeWorld) theProviderShouldHaveReceivedTheClip(fileName string) error {
	for _, name := range w.provider.uploadedFiles() {
		if name == fileName {
			return nil
		}
	}
	return fmt.Errorf("provider never received %q, got %v", fileName, w.provider.uploadedFiles())
}

func (w *handshakeWorld) aNotificationShouldBeSentForTheJob(event string) error {
	for _, e := range w.pusher.sent() {
		if e.event == event && e.jobID == w.jobID {
			return nil
		}
	}
	return fmt.Errorf("no %q notification for job %s, got %v", event, w.jobID, w.pusher.sent())
}

func (w *handshakeWorld) theCallbackShouldBeRejectedAsInvalid() error {
	if !errors.Is(w.callbackErr, distribution.ErrInvalidState) {
		return fmt.Errorf("expected invalid state error, got %v", w.callbackErr)
	}
	return nil
}

func (w *handshakeWorld) theInitiationShouldBeRejectedAsInvalid() error {
	if !errors.Is(w.initiateErr, media.ErrInvalidRequest) {
		return fmt.Errorf("expected invalid request error, got %v", w.initiateErr)
	}
	return nil
}

// InitializeHandshakeScenario registers the upload handshake steps
func InitializeHandshakeScenario(ctx *godog.ScenarioContext) {
	w := &handshakeWorld{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		w.build(10 * time.Minute)
		w.selectionTitle = ""
		return c, nil
	})

	ctx.Step(`^a completed selection titled "([^"]*)"$`, w.aCompletedSelectionTitled)
	ctx.Step(`^a selection that has not finished processing$`, w.aSelectionThatHasNotFinishedProcessing)
	ctx.Step(`^the handshake lifetime is very short$`, w.theHandshakeLifetimeIsVeryShort)
	ctx.Step(`^the handshake lifetime has elapsed$`, w.theHandshakeLifetimeHasElapsed)
	ctx.Step(`^I initiate a remote upload for the selection$`, w.iInitiateARemoteUpload)
	ctx.Step(`^I initiate a remote upload for that selection$`, w.iInitiateForTheUnfinishedSelection)
	ctx.Step(`^I should receive an authorization URL carrying the handshake state$`, w.iShouldReceiveAnAuthorizationURL)
	ctx.Step(`^the provider calls back with a valid code$`, w.theProviderCallsBackWithAValidCode)
	ctx.Step(`^the provider calls back again with the same state$`, w.theProviderCallsBackWithAValidCode)
	ctx.Step(`^the provider upload will fail with "([^"]*)"$`, w.theProviderUploadWillFailWith)
	ctx.Step(`^the background upload finishes$`, w.theBackgroundUploadFinishes)
	ctx.Step(`^the provider should have received the clip "([^"]*)"$`, w.theProviderShouldHaveReceivedTheClip)
	ctx.Step(`^an "([^"]*)" notification should be sent for the job$`, w.aNotificationShouldBeSentForTheJob)
	ctx.Step(`^the callback should be rejected as invalid$`, w.theCallbackShouldBeRejectedAsInvalid)
	ctx.Step(`^the initiation should be rejected as invalid$`, w.theInitiationShouldBeRejectedAsInvalid)
}
