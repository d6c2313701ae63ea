package importer

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Watch polls a job on a fixed cadence until it reaches a terminal state or
// the attempt budget runs out. Each tick performs exactly one status query
// and observes at most one state transition; the projection handed to
// onProgress fully replaces the previous one and its percentage never
// decreases within a session.
//
// The loop is strictly sequential: the only suspension points are the
// inter-poll sleep and the HTTP round trip. Exhausting the budget yields
// OutcomeTimedOut with the last-known progress; the server-side job is left
// untouched and may still finish on its own.
func (c *Client) Watch(ctx context.Context, jobID string, onProgress func(ImportProgress)) PollOutcome {
	emit := func(p ImportProgress) ImportProgress {
		if onProgress != nil {
			onProgress(p)
		}
		return p
	}

	last := emit(ImportProgress{
		Stage:      StageUpload,
		Percentage: 5,
		Message:    "Arquivo enviado, aguardando o servidor",
	})

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		snapshot, err := c.fetchStatus(ctx, jobID)
		if err != nil {
			// A single failed status query ends the session; the
			// query itself is never retried
			last = emit(ImportProgress{
				Stage:      StageError,
				Percentage: last.Percentage,
				Message:    err.Error(),
			})
			return PollOutcome{Kind: OutcomeFailed, Error: err.Error(), LastProgress: last}
		}

		if err := snapshot.checkCounters(); err != nil {
			last = emit(ImportProgress{
				Stage:      StageError,
				Percentage: last.Percentage,
				Message:    err.Error(),
			})
			return PollOutcome{Kind: OutcomeFailed, Error: err.Error(), LastProgress: last}
		}

		switch snapshot.Job.Status {
		case "completed":
			result := aggregateResult(jobID, snapshot)
			last = emit(ImportProgress{
				Stage:      StageCompleted,
				Percentage: 100,
				Message:    "Importação concluída",
			})
			return PollOutcome{Kind: OutcomeCompleted, Result: result, LastProgress: last}

		case "failed":
			msg := snapshot.Job.ErrorMessage
			if msg == "" {
				msg = "a importação falhou sem detalhes"
			}
			last = emit(ImportProgress{
				Stage:      StageError,
				Percentage: last.Percentage,
				Message:    msg,
			})
			return PollOutcome{Kind: OutcomeFailed, Error: msg, LastProgress: last}

		case "cancelled":
			// Cancelled jobs produce no result; the session just ends
			log.Debug().Str("jobId", jobID).Msg("Watched job was cancelled")
			return PollOutcome{Kind: OutcomeCancelled, LastProgress: last}

		case "pending":
			last = emit(ImportProgress{
				Stage:      StageProcessing,
				Percentage: 10,
				Message:    "Aguardando processamento",
			})

		case "processing":
			// Rendered as a later-looking stage on purpose so a long
			// server-side run does not read as a stall
			last = emit(ImportProgress{
				Stage:      StageValidation,
				Percentage: 50,
				Message:    "Validando e importando produtos",
				CurrentItem: fmt.Sprintf("%d/%d produtos",
					snapshot.Job.ProcessedProducts, snapshot.Job.TotalProducts),
			})

		default:
			msg := fmt.Sprintf("unknown job status %q", snapshot.Job.Status)
			last = emit(ImportProgress{
				Stage:      StageError,
				Percentage: last.Percentage,
				Message:    msg,
			})
			return PollOutcome{Kind: OutcomeFailed, Error: msg, LastProgress: last}
		}

		if attempt == c.maxAttempts {
			break
		}

		if err := c.clock.Sleep(ctx, c.pollInterval); err != nil {
			return PollOutcome{Kind: OutcomeFailed, Error: err.Error(), LastProgress: last}
		}
	}

	log.Warn().Str("jobId", jobID).Int("attempts", c.maxAttempts).Msg("Polling budget exhausted, giving up")
	return PollOutcome{Kind: OutcomeTimedOut, LastProgress: last}
}

// aggregateResult builds the immutable terminal summary from the single
// completed snapshot. No partial aggregation happens across polls: the
// server only marks a job completed once the full log set is persisted, so
// this one snapshot is authoritative.
func aggregateResult(jobID string, snapshot *jobSnapshot) *ImportResult {
	logs := make([]ImportLog, len(snapshot.Logs))
	copy(logs, snapshot.Logs)

	return &ImportResult{
		JobID:      jobID,
		Total:      snapshot.Statistics.Total,
		Successful: snapshot.Statistics.Success,
		Failed:     snapshot.Statistics.Errors,
		Logs:       logs,
	}
}
