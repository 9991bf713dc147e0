package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/settleops/settlement-engine/internal/domain"
	"github.com/settleops/settlement-engine/internal/observability"
	"github.com/settleops/settlement-engine/internal/repository"
	"go.uber.org/zap"
)

const defaultMatchBatchSize = 100

// RawUser is one row of worker input before filtering.
type RawUser struct {
	Username string  `json:"username"`
	Turnover float64 `json:"turnover"`
	Currency string  `json:"currency"`
}

// MatchInput is one filtered row ready for match creation.
type MatchInput struct {
	Username string  `json:"username"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// StatusUpdate is one submitted terminal status for a username.
type StatusUpdate struct {
	Username string
	Status   domain.MatchStatus
}

// RematchReport aggregates per-record outcomes of a rematch run.
type RematchReport struct {
	Resolved   int
	Unresolved int
}

// AccountBatch pairs a transfer account with the matches it can settle.
type AccountBatch struct {
	Account domain.TransferAccount `json:"account"`
	Matches []domain.Match         `json:"matches"`
}

// ResumePayload is what the external automation worker consumes next: per
// transfer account with at least one matched player, the matches in scope.
type ResumePayload struct {
	ProcessID string         `json:"process_id"`
	Accounts  []AccountBatch `json:"accounts"`
}

// NotifyAller is the async feedback channel of the engine. Unattended
// callers never receive errors; they receive notifications.
type NotifyAller interface {
	NotifyAll(ctx context.Context, actorID string, message string, typ domain.NotificationType)
}

// ProcessService is the transactional batch-mutation engine. It owns the
// process state machine: PROCESSING → {COMPLETED→FAILED-with-cleanup,
// SEM_COMPLETED, FAILED} via Update, anything → FAILED via Terminate.
type ProcessService struct {
	processes repository.ProcessRepository
	matches   repository.MatchRepository
	players   repository.PlayerRepository
	transfers repository.TransferRepository
	notifier  NotifyAller
	logger    *zap.Logger
	metrics   *observability.Metrics
	batchSize int
}

func NewProcessService(
	processes repository.ProcessRepository,
	matches repository.MatchRepository,
	players repository.PlayerRepository,
	transfers repository.TransferRepository,
	notifier NotifyAller,
	batchSize int,
	logger *zap.Logger,
) *ProcessService {
	if batchSize < 1 {
		batchSize = defaultMatchBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessService{
		processes: processes,
		matches:   matches,
		players:   players,
		transfers: transfers,
		notifier:  notifier,
		logger:    logger,
		batchSize: batchSize,
	}
}

func (s *ProcessService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Filter maps raw worker rows to match inputs. It never fails: a nil or
// empty input yields an empty list.
func (s *ProcessService) Filter(rawUsers []RawUser) []MatchInput {
	filtered := make([]MatchInput, 0, len(rawUsers))
	for _, raw := range rawUsers {
		if raw.Username == "" {
			continue
		}
		filtered = append(filtered, MatchInput{
			Username: raw.Username,
			Amount:   raw.Turnover,
			Currency: raw.Currency,
		})
	}
	return filtered
}

// Match deduplicates the input by username (last occurrence wins),
// resolves each username to an existing player where possible, and
// inserts match rows in one transaction per batch. A failing batch is
// skipped and reported; its siblings proceed. Feedback is delivered via
// notifications only.
func (s *ProcessService) Match(ctx context.Context, actorID string, users []MatchInput, processID string) {
	inserted, failedBatches, err := s.match(ctx, users, processID)
	if err != nil {
		s.logger.Error("match failed",
			zap.String("processId", processID),
			zap.Error(err),
		)
		s.observeBatchOp("match", "error")
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Matching failed: %v", err), domain.NotificationError)
		return
	}

	if failedBatches > 0 {
		s.observeBatchOp("match", "partial")
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Matching finished with %d matches created, %d batches failed", inserted, failedBatches),
			domain.NotificationWarning)
		return
	}

	s.observeBatchOp("match", "ok")
	s.notifier.NotifyAll(ctx, actorID,
		fmt.Sprintf("Matching finished with %d matches created", inserted),
		domain.NotificationSuccess)
}

func (s *ProcessService) match(ctx context.Context, users []MatchInput, processID string) (int, int, error) {
	deduped := dedupeByUsername(users)

	inserted := 0
	failedBatches := 0
	for start := 0; start < len(deduped); start += s.batchSize {
		end := min(start+s.batchSize, len(deduped))
		batch := deduped[start:end]

		usernames := make([]string, 0, len(batch))
		for _, user := range batch {
			usernames = append(usernames, user.Username)
		}

		playerIDs, err := s.players.GetIDsByUsernames(ctx, usernames)
		if err != nil {
			return inserted, failedBatches, fmt.Errorf("failed to resolve players: %w", err)
		}

		matches := make([]*domain.Match, 0, len(batch))
		now := time.Now().UTC()
		for _, user := range batch {
			match := &domain.Match{
				ID:        uuid.NewString(),
				ProcessID: processID,
				Username:  user.Username,
				Currency:  user.Currency,
				Amount:    user.Amount,
				Status:    domain.MatchPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if playerID, ok := playerIDs[user.Username]; ok {
				match.PlayerID = &playerID
			}
			matches = append(matches, match)
		}

		// One transaction per batch; a failed batch is not retried.
		if err := s.matches.CreateBatch(ctx, matches); err != nil {
			failedBatches++
			s.logger.Warn("match batch insert failed, continuing with next batch",
				zap.String("processId", processID),
				zap.Int("batchStart", start),
				zap.Int("batchSize", len(batch)),
				zap.Error(err),
			)
			continue
		}
		inserted += len(matches)
	}

	return inserted, failedBatches, nil
}

// dedupeByUsername keeps the last occurrence's values in first-seen order.
func dedupeByUsername(users []MatchInput) []MatchInput {
	index := make(map[string]int, len(users))
	deduped := make([]MatchInput, 0, len(users))
	for _, user := range users {
		if at, seen := index[user.Username]; seen {
			deduped[at] = user
			continue
		}
		index[user.Username] = len(deduped)
		deduped = append(deduped, user)
	}
	return deduped
}

// Rematch attempts to resolve a player for every playerless match. Each
// record succeeds or fails independently; the aggregate is reported as a
// notification.
func (s *ProcessService) Rematch(ctx context.Context, actorID string) {
	report, err := s.rematch(ctx)
	if err != nil {
		s.logger.Error("rematch failed", zap.Error(err))
		s.observeBatchOp("rematch", "error")
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Rematch failed: %v", err), domain.NotificationError)
		return
	}

	s.observeBatchOp("rematch", "ok")
	s.notifier.NotifyAll(ctx, actorID,
		fmt.Sprintf("Rematch finished: %d resolved, %d unresolved", report.Resolved, report.Unresolved),
		domain.NotificationInfo)
}

func (s *ProcessService) rematch(ctx context.Context) (RematchReport, error) {
	unmatched, err := s.matches.ListUnmatched(ctx)
	if err != nil {
		return RematchReport{}, fmt.Errorf("failed to list unmatched: %w", err)
	}

	var report RematchReport
	for _, match := range unmatched {
		player, err := s.players.GetByUsername(ctx, match.Username)
		if err != nil {
			report.Unresolved++
			continue
		}
		if err := s.matches.SetPlayer(ctx, match.ID, player.ID); err != nil {
			s.logger.Warn("failed to link player to match",
				zap.String("matchId", match.ID),
				zap.Error(err),
			)
			report.Unresolved++
			continue
		}
		report.Resolved++
	}

	return report, nil
}

// RematchSingleUser resolves one match's player. Not-found is reported
// via notification, never as an error.
func (s *ProcessService) RematchSingleUser(ctx context.Context, matchID string, actorID string) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Match %s not found", matchID), domain.NotificationError)
		return
	}

	player, err := s.players.GetByUsername(ctx, match.Username)
	if err != nil {
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("No player found for username %s", match.Username), domain.NotificationError)
		return
	}

	if err := s.matches.SetPlayer(ctx, matchID, player.ID); err != nil {
		s.logger.Error("failed to link player to match",
			zap.String("matchId", matchID),
			zap.Error(err),
		)
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Failed to link player for match %s", matchID), domain.NotificationError)
		return
	}

	s.notifier.NotifyAll(ctx, actorID,
		fmt.Sprintf("Match %s linked to player %s", matchID, player.Username),
		domain.NotificationSuccess)
}

// Resume assembles the pending workload the automation worker consumes
// next: per transfer account, the process's PENDING matches with a
// resolved player in a currency the account can settle. Read-only.
func (s *ProcessService) Resume(ctx context.Context, actorID string, processID string) (*ResumePayload, error) {
	return s.buildWorkerPayload(ctx, processID, domain.MatchPending)
}

// Restart is Resume scoped to FAILED matches: it re-drives only the
// failed subset.
func (s *ProcessService) Restart(ctx context.Context, actorID string, processID string) (*ResumePayload, error) {
	return s.buildWorkerPayload(ctx, processID, domain.MatchFailed)
}

func (s *ProcessService) buildWorkerPayload(ctx context.Context, processID string, status domain.MatchStatus) (*ResumePayload, error) {
	if _, err := s.processes.GetByID(ctx, processID); err != nil {
		return nil, err
	}

	matches, err := s.matches.ListMatched(ctx, processID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}

	byCurrency := make(map[string][]domain.Match)
	for _, match := range matches {
		byCurrency[match.Currency] = append(byCurrency[match.Currency], match)
	}

	accounts, err := s.transfers.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer accounts: %w", err)
	}

	payload := &ResumePayload{ProcessID: processID, Accounts: []AccountBatch{}}
	for _, account := range accounts {
		var scoped []domain.Match
		for _, currency := range account.Currencies {
			scoped = append(scoped, byCurrency[currency.Currency]...)
		}
		// Accounts with no matched player in scope are excluded.
		if len(scoped) == 0 {
			continue
		}
		payload.Accounts = append(payload.Accounts, AccountBatch{
			Account: account,
			Matches: scoped,
		})
	}

	return payload, nil
}

// Terminate deletes every match of the process and moves it to FAILED.
// Idempotent: a second call deletes zero rows and leaves FAILED in place.
// Used for explicit termination and as the cleanup step after a COMPLETED
// run.
func (s *ProcessService) Terminate(ctx context.Context, actorID string, processID string) {
	deleted, err := s.terminate(ctx, processID)
	if err != nil {
		s.logger.Error("terminate failed",
			zap.String("processId", processID),
			zap.Error(err),
		)
		s.observeBatchOp("terminate", "error")
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Termination failed: %v", err), domain.NotificationError)
		return
	}

	s.observeBatchOp("terminate", "ok")
	s.notifier.NotifyAll(ctx, actorID,
		fmt.Sprintf("Process terminated, %d matches removed", deleted),
		domain.NotificationInfo)
}

func (s *ProcessService) terminate(ctx context.Context, processID string) (int64, error) {
	deleted, err := s.matches.DeleteByProcess(ctx, processID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete matches: %w", err)
	}
	if err := s.processes.UpdateStatus(ctx, processID, domain.ProcessFailed); err != nil {
		return deleted, fmt.Errorf("failed to mark process failed: %w", err)
	}
	return deleted, nil
}

// Update is the terminal reconciliation: it applies submitted statuses in
// batches, each in its own transaction, then derives the process's final
// status from the full set of submitted statuses. Batch failures are
// tolerated; a top-level failure forces the process to FAILED as a
// best-effort safety net.
func (s *ProcessService) Update(ctx context.Context, actorID string, processID string, updates []StatusUpdate) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("update panicked, forcing process to FAILED",
				zap.String("processId", processID),
				zap.Any("panic", rec),
			)
			s.forceFail(ctx, processID)
			s.observeBatchOp("update", "error")
			s.notifier.NotifyAll(ctx, actorID,
				"Settlement update crashed; process marked as failed",
				domain.NotificationError)
		}
	}()

	failedBatches := 0
	for start := 0; start < len(updates); start += s.batchSize {
		end := min(start+s.batchSize, len(updates))
		batch := updates[start:end]

		repoUpdates := make([]repository.MatchStatusUpdate, 0, len(batch))
		for _, update := range batch {
			repoUpdates = append(repoUpdates, repository.MatchStatusUpdate{
				Username: update.Username,
				Status:   update.Status,
			})
		}

		if err := s.matches.ReconcileBatch(ctx, processID, repoUpdates); err != nil {
			failedBatches++
			s.logger.Warn("reconciliation batch failed, continuing with next batch",
				zap.String("processId", processID),
				zap.Int("batchStart", start),
				zap.Error(err),
			)
			s.notifier.NotifyAll(ctx, actorID,
				fmt.Sprintf("Settlement batch starting at %d failed and was skipped", start),
				domain.NotificationWarning)
		}
	}

	final := deriveFinalStatus(updates)
	if err := s.processes.UpdateStatus(ctx, processID, final); err != nil {
		s.logger.Error("failed to set final process status",
			zap.String("processId", processID),
			zap.String("status", final.String()),
			zap.Error(err),
		)
		s.forceFail(ctx, processID)
		s.observeBatchOp("update", "error")
		s.notifier.NotifyAll(ctx, actorID,
			"Settlement finished but the process status could not be written",
			domain.NotificationError)
		return
	}

	// COMPLETED is transient: a fully successful run is cleaned up
	// immediately, leaving SEM_COMPLETED as the only terminal
	// partial-success rest state.
	if final == domain.ProcessCompleted {
		deleted, err := s.terminate(ctx, processID)
		if err != nil {
			s.logger.Error("post-completion cleanup failed",
				zap.String("processId", processID),
				zap.Error(err),
			)
			s.observeBatchOp("update", "error")
			s.notifier.NotifyAll(ctx, actorID,
				fmt.Sprintf("Settlement completed but cleanup failed: %v", err),
				domain.NotificationError)
			return
		}
		s.observeBatchOp("update", "ok")
		s.notifier.NotifyAll(ctx, actorID,
			fmt.Sprintf("Settlement completed, %d matches cleaned up", deleted),
			domain.NotificationSuccess)
		return
	}

	outcome := "ok"
	typ := domain.NotificationSuccess
	if failedBatches > 0 || final == domain.ProcessFailed {
		outcome = "partial"
		typ = domain.NotificationWarning
	}
	s.observeBatchOp("update", outcome)
	s.notifier.NotifyAll(ctx, actorID,
		fmt.Sprintf("Settlement finished with status %s", final),
		typ)
}

// deriveFinalStatus aggregates the submitted statuses: any SUCCESS plus
// any FAILED is a partial success; only SUCCESS is a full completion; no
// SUCCESS at all (including empty input) is a failure.
func deriveFinalStatus(updates []StatusUpdate) domain.ProcessStatus {
	anySuccess := false
	anyFailed := false
	for _, update := range updates {
		switch update.Status {
		case domain.MatchSuccess:
			anySuccess = true
		case domain.MatchFailed:
			anyFailed = true
		}
	}

	switch {
	case anySuccess && anyFailed:
		return domain.ProcessSemCompleted
	case anySuccess:
		return domain.ProcessCompleted
	default:
		return domain.ProcessFailed
	}
}

// forceFail is the best-effort safety net; a failure to even write the
// fallback status is logged and swallowed.
func (s *ProcessService) forceFail(ctx context.Context, processID string) {
	if err := s.processes.UpdateStatus(ctx, processID, domain.ProcessFailed); err != nil {
		s.logger.Error("failed to write FAILED fallback status",
			zap.String("processId", processID),
			zap.Error(err),
		)
	}
}

func (s *ProcessService) observeBatchOp(op string, outcome string) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncBatchOperation(op, outcome)
}
