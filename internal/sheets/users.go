package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskmanager/internal/model"
	"taskmanager/internal/repository"
)

// Users columns.
const (
	colUserRowID = iota
	colFirstName
	colLastName
	colDOB
	colEmail
	colPhone
	colRegisteredAt
	colPassword
	colLastLogin
	colLastLogout
)

// userStore reads Users!A:J from row 1 so RowID is index+1. A header row, if
// present, never matches a real email or id.
type userStore struct{ c *Client }

func (s userStore) Create(ctx context.Context, u *model.User) error {
	row := []interface{}{
		u.ID,
		u.FirstName,
		u.LastName,
		u.DOB,
		u.Email,
		u.Phone,
		model.FormatTimestamp(&u.RegisteredAt),
		u.Password,
		model.FormatTimestamp(u.LastLoginAt),
		model.FormatTimestamp(u.LastLogoutAt),
	}
	rowID, err := s.c.appendRow(ctx, s.c.usersSheet+"!A:J", row)
	if err != nil {
		return err
	}
	u.RowID = rowID
	return nil
}

func (s userStore) ListByEmail(ctx context.Context, email string) ([]model.User, error) {
	return s.scan(ctx, func(row []interface{}) bool { return cell(row, colEmail) == email }, false)
}

func (s userStore) GetByID(ctx context.Context, userID string) (*model.User, error) {
	users, err := s.scan(ctx, func(row []interface{}) bool { return cell(row, colUserRowID) == userID }, true)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s: %w", userID, repository.ErrNotFound)
	}
	return &users[0], nil
}

func (s userStore) SetLastLogin(ctx context.Context, rowID int64, at time.Time) error {
	return s.c.writeCells(ctx, map[string]string{
		fmt.Sprintf("%s!I%d", s.c.usersSheet, rowID): model.FormatTimestamp(&at),
	})
}

func (s userStore) SetLastLogout(ctx context.Context, rowID int64, at time.Time) error {
	return s.c.writeCells(ctx, map[string]string{
		fmt.Sprintf("%s!J%d", s.c.usersSheet, rowID): model.FormatTimestamp(&at),
	})
}

func (s userStore) scan(ctx context.Context, match func([]interface{}) bool, first bool) ([]model.User, error) {
	values, err := s.c.get(ctx, s.c.usersSheet+"!A:J")
	if err != nil {
		return nil, err
	}
	var users []model.User
	for i, row := range values {
		if !match(row) {
			continue
		}
		users = append(users, parseUser(int64(i+1), row))
		if first {
			break
		}
	}
	return users, nil
}

// ExportUsers reads every user row in sheet order. A leading header row, recognised by
// an email cell without '@', is skipped.
func (c *Client) ExportUsers(ctx context.Context) ([]model.User, error) {
	values, err := c.get(ctx, c.usersSheet+"!A:J")
	if err != nil {
		return nil, err
	}
	var users []model.User
	for i, row := range values {
		email := cell(row, colEmail)
		if i == 0 && !strings.Contains(email, "@") {
			continue
		}
		if email == "" && cell(row, colUserRowID) == "" {
			continue
		}
		users = append(users, parseUser(int64(i+1), row))
	}
	return users, nil
}

func parseUser(rowID int64, row []interface{}) model.User {
	u := model.User{
		RowID:     rowID,
		ID:        cell(row, colUserRowID),
		FirstName: cell(row, colFirstName),
		LastName:  cell(row, colLastName),
		DOB:       cell(row, colDOB),
		Email:     cell(row, colEmail),
		Phone:     cell(row, colPhone),
		Password:  cell(row, colPassword),
	}
	if t, err := model.ParseTime(cell(row, colRegisteredAt), time.UTC); err == nil {
		u.RegisteredAt = t
	}
	u.LastLoginAt, _ = model.ParseOptionalTime(cell(row, colLastLogin), time.UTC)
	u.LastLogoutAt, _ = model.ParseOptionalTime(cell(row, colLastLogout), time.UTC)
	return u
}
