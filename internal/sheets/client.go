// Package sheets is the primary candidate store: a Google spreadsheet read
// with an API key and appended to with a service account.
package sheets

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"

	apperrors "candidate-portal/internal/common/errors"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client is the tabular remote store surface.
type Client interface {
	Read(ctx context.Context, rangeA1 string) ([][]string, error)
	Append(ctx context.Context, rangeA1 string, rows [][]string) error
	IsReady(ctx context.Context) error
}

// Factory builds a read client from an API key.
type Factory func(ctx context.Context, apiKey string) (Client, error)

type GoogleClient struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// New builds a client for one spreadsheet. Auth comes from opts.
func New(ctx context.Context, spreadsheetID string, opts ...option.ClientOption) (*GoogleClient, error) {
	svc, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return &GoogleClient{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// NewReader authenticates with an API key. The spreadsheet must be shared
// for link viewing.
func NewReader(ctx context.Context, spreadsheetID, apiKey string, opts ...option.ClientOption) (*GoogleClient, error) {
	return New(ctx, spreadsheetID, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
}

// NewWriter authenticates with a service-account JSON file.
func NewWriter(ctx context.Context, spreadsheetID, credentialsFile string, opts ...option.ClientOption) (*GoogleClient, error) {
	base := []option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	}
	return New(ctx, spreadsheetID, append(base, opts...)...)
}

// ReaderFactory returns a Factory bound to spreadsheetID.
func ReaderFactory(spreadsheetID string, opts ...option.ClientOption) Factory {
	return func(ctx context.Context, apiKey string) (Client, error) {
		return NewReader(ctx, spreadsheetID, apiKey, opts...)
	}
}

func (c *GoogleClient) Read(ctx context.Context, rangeA1 string) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rangeA1).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify(err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			if cell != nil {
				row[i] = fmt.Sprint(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *GoogleClient) Append(ctx context.Context, rangeA1 string, rows [][]string) error {
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		values[i] = cells
	}

	_, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rangeA1, &gsheets.ValueRange{
		MajorDimension: "ROWS",
		Values:         values,
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

// IsReady fetches only the spreadsheet id, confirming the key and sharing.
func (c *GoogleClient) IsReady(ctx context.Context) error {
	_, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).
		Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

// classify maps transport and API failures onto the shared taxonomy.
func classify(err error) error {
	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		reason := ""
		if len(apiErr.Errors) > 0 {
			reason = apiErr.Errors[0].Reason
		}
		return apperrors.FromHTTPStatus(apiErr.Code, reason, err).
			WithMetadata("httpStatus", apiErr.Code)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError("sheets request", err)
	}
	var netErr net.Error
	var urlErr *url.Error
	if stderrors.As(err, &netErr) || stderrors.As(err, &urlErr) {
		return apperrors.NewNetworkError(err)
	}
	return err
}
