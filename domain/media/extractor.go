package media

import "context"

// Segment describes one time-range extraction from a local audio file
type Segment struct {
	InputPath    string
	OutputPath   string
	StartSeconds int
	EndSeconds   int
}

// SegmentExtractor cuts one time range out of a local audio file.
// This is a port that can be implemented by different infrastructure adapters.
type SegmentExtractor interface {
	// Extract writes the segment to seg.OutputPath and returns its byte size
	Extract(ctx context.Context, seg Segment) (int64, error)
}

// ArchiveEntry pairs a file on disk with the name it carries inside an
// archive. Outputs are stored under id-derived paths, so the outward name
// must travel separately.
type ArchiveEntry struct {
	Path string
	Name string
}

// Archiver bundles a set of output files into a single archive.
// This is a port that can be implemented by different infrastructure adapters.
type Archiver interface {
	// Bundle writes an archive containing the given entries to destPath
	Bundle(ctx context.Context, entries []ArchiveEntry, destPath string) error
}
