package tasks

import (
	"fmt"
	"path/filepath"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Validate Phase = iota
	Upload
	Save
	Export
	Complete
)

func (p Phase) String() string {
	switch p {
	case Validate:
		return "validate"
	case Upload:
		return "upload"
	case Save:
		return "save"
	case Export:
		return "export"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func queuedUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Validate,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Queued %s", step, total, filepath.Base(path)),
	}
}

func uploadingUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Upload,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Transcribing %s...", step, total, filepath.Base(path)),
	}
}

func savedUpdate(step, total int, res *FileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Save,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Saved %s as #%d", step, total, filepath.Base(res.Path), res.Transcription.Sequence()),
		Data:    res.Transcription,
	}
}

func completedUpdate(step, total int, res FileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, filepath.Base(res.Path), len(res.Files)),
		Data:    res,
	}
}

func failedUpdate(step, total int, res FileResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, filepath.Base(res.Path), res.Err.Message),
		Data:    res,
	}
}
