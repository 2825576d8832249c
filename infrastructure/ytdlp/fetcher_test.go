package ytdlp

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// scriptedRunner answers Output with canned stdout and fails Run the first
// failRuns times, writing the expected output file on success
type scriptedRunner struct {
	stdout    string
	outputErr error

	failRuns int
	runs     [][]string
}

func (s *scriptedRunner) Run(ctx context.Context, name string, args ...string) error {
	s.runs = append(s.runs, append([]string{name}, args...))
	if s.failRuns > 0 {
		s.failRuns--
		return errors.New("download failed")
	}
	// the -o template is the argument after "-o"
	for i, a := range args {
		if a == "-o" && i+1 < len(args) {
			path := strings.Replace(args[i+1], ".%(ext)s", ".mp3", 1)
			return os.WriteFile(path, []byte("audio"), 0644)
		}
	}
	return nil
}

func (s *scriptedRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if s.outputErr != nil {
		return nil, s.outputErr
	}
	return []byte(s.stdout), nil
}

func TestValidate(t *testing.T) {
	ok := NewFetcher(WithCommandRunner(&scriptedRunner{stdout: "abc123\n"}))
	if !ok.Validate(context.Background(), "https://youtube.com/watch?v=abc123") {
		t.Error("expected URL to validate")
	}

	bad := NewFetcher(WithCommandRunner(&scriptedRunner{outputErr: errors.New("not found")}))
	if bad.Validate(context.Background(), "https://youtube.com/watch?v=missing") {
		t.Error("expected URL to fail validation")
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name      string
		stdout    string
		wantTitle string
		wantDur   int
		wantThumb string
		wantChan  string
		wantErr   bool
	}{
		{
			name:      "complete metadata",
			stdout:    "Concert Night|300|https://img.example/t.jpg|Some Channel\n",
			wantTitle: "Concert Night",
			wantDur:   300,
			wantThumb: "https://img.example/t.jpg",
			wantChan:  "Some Channel",
		},
		{
			name:      "missing optional fields",
			stdout:    "Concert Night|300|NA|NA\n",
			wantTitle: "Concert Night",
			wantDur:   300,
		},
		{
			name:      "missing title",
			stdout:    "NA|300|NA|NA\n",
			wantTitle: "Unknown Title",
			wantDur:   300,
		},
		{
			name:    "garbage output",
			stdout:  "nonsense\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(WithCommandRunner(&scriptedRunner{stdout: tt.stdout}))
			info, err := f.Describe(context.Background(), "https://youtube.com/watch?v=abc")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Describe: %v", err)
			}
			if info.Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", info.Title, tt.wantTitle)
			}
			if info.Duration != tt.wantDur {
				t.Errorf("duration = %d, want %d", info.Duration, tt.wantDur)
			}
			if info.Thumbnail != tt.wantThumb {
				t.Errorf("thumbnail = %q, want %q", info.Thumbnail, tt.wantThumb)
			}
			if info.Channel != tt.wantChan {
				t.Errorf("channel = %q, want %q", info.Channel, tt.wantChan)
			}
		})
	}
}

func TestFetchAudioFirstStrategyWins(t *testing.T) {
	runner := &scriptedRunner{}
	f := NewFetcher(WithCommandRunner(runner))

	path, err := f.FetchAudio(context.Background(), "https://youtube.com/watch?v=abc", t.TempDir())
	if err != nil {
		t.Fatalf("FetchAudio: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output file missing: %v", err)
	}
	if filepath.Ext(path) != ".mp3" {
		t.Errorf("output path %q should end in .mp3", path)
	}
	if len(runner.runs) != 1 {
		t.Errorf("expected 1 invocation, got %d", len(runner.runs))
	}
}

func TestFetchAudioFallsBack(t *testing.T) {
	runner := &scriptedRunner{failRuns: 1}
	f := NewFetcher(WithCommandRunner(runner))

	if _, err := f.FetchAudio(context.Background(), "https://youtube.com/watch?v=abc", t.TempDir()); err != nil {
		t.Fatalf("FetchAudio should succeed via fallback: %v", err)
	}
	if len(runner.runs) != 2 {
		t.Errorf("expected 2 invocations, got %d", len(runner.runs))
	}
}

func TestFetchAudioAllStrategiesFail(t *testing.T) {
	runner := &scriptedRunner{failRuns: 10}
	f := NewFetcher(WithCommandRunner(runner))

	if _, err := f.FetchAudio(context.Background(), "https://youtube.com/watch?v=abc", t.TempDir()); err == nil {
		t.Fatal("expected error once every strategy failed")
	}
}
