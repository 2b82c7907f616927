package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ScanWalk Phase = iota
	ScanIndex
	ScanArtwork
	ScanPrune
)

func (p Phase) String() string {
	switch p {
	case ScanWalk:
		return "scan_walk"
	case ScanIndex:
		return "scan_index"
	case ScanArtwork:
		return "scan_artwork"
	case ScanPrune:
		return "scan_prune"
	default:
		return ""
	}
}

// SendProgress sends a progress update through the channel without blocking.
// A nil channel, or one that is full, drops the update.
func SendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func WalkUpdate(found int, root string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanWalk,
		Step:    found,
		Total:   found,
		Message: fmt.Sprintf("Found %d audio files under %s", found, root),
	}
}

func IndexedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanIndex,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, path),
	}
}

func IndexFailedUpdate(step, total int, path string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanIndex,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, path, err),
		Data:    err,
	}
}

func ArtworkUpdate(albumID int64, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanArtwork,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Extracted artwork for album %d to %s", albumID, path),
		Data:    path,
	}
}

func PruneUpdate(removed int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanPrune,
		Step:    int(removed),
		Total:   int(removed),
		Message: fmt.Sprintf("Removed %d missing tracks", removed),
	}
}
