// Package sheets stores contact submissions as rows of a Google Sheets
// spreadsheet through the Sheets v4 API.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/kataria/backend/internal/model"
)

const (
	// SheetName is the tab submissions are appended to.
	SheetName   = "Contact Submissions"
	// DataRange covers every column of model.SheetHeader.
	DataRange   = SheetName + "!A:J"
	headerRange = SheetName + "!A1:J1"
)

// ErrNotConfigured は spreadsheet ID が空の場合のエラー
var ErrNotConfigured = errors.New("sheets: not configured")

// Client appends and reads submission rows.
type Client struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewClient builds a Sheets client. Pass option.WithCredentialsFile for a
// service account; tests pass option.WithEndpoint and WithoutAuthentication.
func NewClient(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithScopes(gsheets.SpreadsheetsScope)}, opts...)
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets: new service: %w", err)
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (c *Client) Name() string     { return "sheets" }
func (c *Client) Configured() bool { return c.svc != nil && c.spreadsheetID != "" }

// Write appends one row. RAW input keeps phone numbers as text.
func (c *Client) Write(ctx context.Context, s *model.ContactSubmission) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{s.Row()}}
	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, DataRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("sheets: append: %w", err)
	}
	return nil
}

// EnsureHeader writes model.SheetHeader into the first row when it is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, headerRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: read header: %w", err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}
	header := make([]interface{}, len(model.SheetHeader))
	for i, h := range model.SheetHeader {
		header[i] = h
	}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, headerRange, &gsheets.ValueRange{
		Values: [][]interface{}{header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets: write header: %w", err)
	}
	return nil
}

// Ping reads the first two header cells to confirm access.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}
	_, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, SheetName+"!A1:B1").Context(ctx).Do()
	return err
}

// List returns the sheet's rows, newest first. The header row is skipped.
func (c *Client) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.ContactSubmission, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, DataRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets: read rows: %w", err)
	}
	all := make([]*model.ContactSubmission, 0, len(resp.Values))
	for i := len(resp.Values) - 1; i >= 0; i-- {
		row := cells(resp.Values[i])
		if i == 0 && len(row) > 0 && row[0] == model.SheetHeader[0] {
			continue
		}
		all = append(all, model.SubmissionFromRow(row))
	}
	return model.Paginate(all, opts), nil
}

func cells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = fmt.Sprint(v)
	}
	return out
}
