package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskmanager/internal/board"
	"taskmanager/internal/model"
)

var ErrUnknownTask = errors.New("no such task on the board")

// Refresh reloads the user's tasks into st.
func (c *Client) Refresh(ctx context.Context, st *board.State, userID string, loc *time.Location) error {
	tasks, err := c.ListTasks(ctx, userID, "", "")
	if err != nil {
		return err
	}
	models, err := Models(tasks, loc)
	if err != nil {
		return err
	}
	st.Reload(models)
	return nil
}

// Move drops task id onto col. Rejected drops make no request. When the
// server refuses the change, st is re-fetched so it shows the stored status.
func (c *Client) Move(ctx context.Context, st *board.State, userID string, id int64, col board.Column, tr model.Transitions, loc *time.Location) (model.Status, error) {
	var current *model.Task
	for i := range st.All {
		if st.All[i].ID == id {
			current = &st.All[i]
			break
		}
	}
	if current == nil {
		return "", fmt.Errorf("task %d: %w", id, ErrUnknownTask)
	}

	next, changed, err := board.Drop(*current, col, tr)
	if err != nil {
		return "", err
	}
	if !changed {
		return next, nil
	}

	if err := c.UpdateStatus(ctx, id, string(next)); err != nil {
		if rerr := c.Refresh(ctx, st, userID, loc); rerr != nil {
			return "", fmt.Errorf("%w (refresh also failed: %v)", err, rerr)
		}
		return "", err
	}
	return next, c.Refresh(ctx, st, userID, loc)
}
