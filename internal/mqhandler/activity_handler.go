package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	mqcontracts "taskmanager/contracts/mq"
	"taskmanager/internal/model"
	"taskmanager/internal/repository"
	"taskmanager/pkg/logger"
	"taskmanager/pkg/util"
)

const activityHandlerName = "task_activity"

// ActivityHandler records task.status_changed events in the activity log.
type ActivityHandler struct {
	repo    repository.ActivityStore
	deduper *util.Deduper
	logger  *zap.Logger
}

func NewActivityHandler(repo repository.ActivityStore, deduper *util.Deduper, logger *zap.Logger) *ActivityHandler {
	return &ActivityHandler{repo: repo, deduper: deduper, logger: logger}
}

// EventKey identifies one status change independently of the broker message id,
// so a republished event is still recognised.
func EventKey(p mqcontracts.TaskStatusChangedPayload) string {
	return fmt.Sprintf("%d:%s:%d", p.TaskID, p.ToStatus, p.ChangedAt.UnixNano())
}

func (h *ActivityHandler) HandleStatusChanged(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.TaskStatusChangedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal status changed payload", zap.Error(err))
		return err
	}

	// a blank from comes from a row whose stored status was never set
	from := model.NormalizeStatus(p.FromStatus)
	to, ok := model.ParseStatus(p.ToStatus)
	if p.TaskID <= 0 || !ok {
		return fmt.Errorf("%w: malformed status change for task %d (%q -> %q)",
			util.ErrPermanent, p.TaskID, p.FromStatus, p.ToStatus)
	}

	key := EventKey(p)
	if !h.deduper.AcquireOnce(ctx, activityHandlerName, key) {
		return nil
	}

	entry := &model.Activity{
		TaskID:     p.TaskID,
		UserID:     p.UserID,
		FromStatus: from,
		ToStatus:   to,
		ChangedAt:  p.ChangedAt,
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		h.deduper.Release(ctx, activityHandlerName, key)
		log.Error("Failed to record activity",
			zap.Int64("task_id", p.TaskID),
			zap.String("user_id", p.UserID),
			zap.Error(err),
		)
		return err
	}

	log.Info("Activity recorded",
		zap.Int64("task_id", p.TaskID),
		zap.String("from", p.FromStatus),
		zap.String("to", p.ToStatus),
	)
	return nil
}
