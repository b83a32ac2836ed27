// Package sheets stores tasks and users in a Google spreadsheet using the
// positional layout Users!A:J and Sheet1!A2:J. A task's id is its sheet row.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"taskmanager/internal/repository"
	"taskmanager/pkg/circuitbreaker"
	"taskmanager/pkg/config"
	"taskmanager/pkg/metrics"
)

const valueInputOption = "USER_ENTERED"

// Client is a spreadsheet-backed record store. Tasks and Users return its
// TaskStore and UserStore views.
type Client struct {
	srv           *sheets.Service
	spreadsheetID string
	usersSheet    string
	tasksSheet    string
	loc           *time.Location
	breaker       *circuitbreaker.CircuitBreaker
	logger        *zap.Logger
}

// NewService builds a Sheets API service from the configured service account credentials.
func NewService(ctx context.Context, cfg config.SheetsConfig) (*sheets.Service, error) {
	data := []byte(cfg.CredentialsJSON)
	if len(data) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, errors.New("sheets: no credentials configured")
		}
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read credentials file %s: %w", cfg.CredentialsFile, err)
		}
		data = b
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	return srv, nil
}

// NewClient wraps srv. loc is the zone creation times are written and read in.
func NewClient(srv *sheets.Service, cfg config.SheetsConfig, loc *time.Location, logger *zap.Logger) *Client {
	if loc == nil {
		loc = time.Local
	}
	usersSheet, tasksSheet := cfg.UsersSheet, cfg.TasksSheet
	if usersSheet == "" {
		usersSheet = "Users"
	}
	if tasksSheet == "" {
		tasksSheet = "Sheet1"
	}

	breakerCfg := circuitbreaker.DefaultConfig("sheets")
	if cfg.BreakerFailures > 0 {
		breakerCfg.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerTimeout > 0 {
		breakerCfg.Timeout = cfg.BreakerTimeout
	}

	return &Client{
		srv:           srv,
		spreadsheetID: cfg.SpreadsheetID,
		usersSheet:    usersSheet,
		tasksSheet:    tasksSheet,
		loc:           loc,
		breaker: circuitbreaker.NewCircuitBreaker(breakerCfg, logger, func(err error) bool {
			return errors.Is(err, repository.ErrNotFound)
		}),
		logger: logger,
	}
}

func (c *Client) Tasks() repository.TaskStore { return taskStore{c} }

func (c *Client) Users() repository.UserStore { return userStore{c} }

// Ping reads the spreadsheet metadata.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", func() error {
		_, err := c.srv.Spreadsheets.Get(c.spreadsheetID).Fields("spreadsheetId").Context(ctx).Do()
		return err
	})
}

// call runs fn behind the breaker and translates Google API errors.
func (c *Client) call(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := c.breaker.Execute(func() error {
		return translate(fn())
	})
	metrics.RecordStoreCall("sheets", operation, err, time.Since(start))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		c.logger.Error("Sheets call failed",
			zap.String("operation", operation),
			zap.String("breaker", c.breaker.State()),
			zap.Error(err),
		)
	}
	return err
}

func translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", apiErr.Message, repository.ErrNotFound)
	}
	return err
}

func (c *Client) get(ctx context.Context, rng string) ([][]interface{}, error) {
	var values [][]interface{}
	err := c.call(ctx, "get", func() error {
		resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = resp.Values
		return nil
	})
	return values, err
}

// appendRow appends one row and returns the sheet row number it landed on.
func (c *Client) appendRow(ctx context.Context, rng string, row []interface{}) (int64, error) {
	var updated string
	err := c.call(ctx, "append", func() error {
		resp, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, rng, &sheets.ValueRange{
			Values: [][]interface{}{row},
		}).ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			updated = resp.Updates.UpdatedRange
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return rowFromRange(updated)
}

// writeCells writes single-cell ranges in one batch request.
func (c *Client) writeCells(ctx context.Context, cells map[string]string) error {
	data := make([]*sheets.ValueRange, 0, len(cells))
	for rng, v := range cells {
		data = append(data, &sheets.ValueRange{
			Range:  rng,
			Values: [][]interface{}{{v}},
		})
	}
	return c.call(ctx, "batch_update", func() error {
		_, err := c.srv.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, &sheets.BatchUpdateValuesRequest{
			ValueInputOption: valueInputOption,
			Data:             data,
		}).Context(ctx).Do()
		return err
	})
}

var rowPattern = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the first row number from an A1 range like "Sheet1!A7:J7".
func rowFromRange(rng string) (int64, error) {
	m := rowPattern.FindStringSubmatch(rng)
	if m == nil {
		return 0, fmt.Errorf("sheets: cannot read row from range %q", rng)
	}
	return strconv.ParseInt(m[1], 10, 64)
}

func cell(row []interface{}, i int) string {
	if i >= len(row) || row[i] == nil {
		return ""
	}
	if s, ok := row[i].(string); ok {
		return s
	}
	return fmt.Sprint(row[i])
}
