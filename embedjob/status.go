package embedjob

import (
	"fmt"

	"github.com/poiesic/recall/core"
)

// Status is a human-facing view of embedding completion for one owner.
type Status struct {
	Progress                  core.JobProgress
	EstimatedBatchesRemaining int
	StatusMessage             string
}

// StatusFor derives a Status from an embedding progress snapshot.
// batchSize <= 0 falls back to the default batch size.
func StatusFor(progress core.JobProgress, batchSize int) Status {
	if batchSize <= 0 {
		batchSize = DefaultConfig().BatchSize
	}

	remaining := progress.RecordsWithoutVector
	batches := (remaining + batchSize - 1) / batchSize

	var message string
	switch {
	case progress.PercentComplete == 100:
		message = "All commits have embeddings - ready for semantic search!"
	case progress.PercentComplete >= 75:
		message = fmt.Sprintf("Almost done! %d commits remaining", remaining)
	case progress.PercentComplete >= 50:
		message = fmt.Sprintf("Halfway there! %d commits remaining", remaining)
	case progress.PercentComplete > 0:
		message = fmt.Sprintf("In progress: %d commits remaining", remaining)
	default:
		message = fmt.Sprintf("Not started: %d commits need embeddings", remaining)
	}

	return Status{
		Progress:                  progress,
		EstimatedBatchesRemaining: batches,
		StatusMessage:             message,
	}
}
