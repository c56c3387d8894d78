package sheets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

const (
	// Reservation rows span columns A..F: timestamp, group, user, seat, name, id.
	columnRange = "A:F"

	valueInputUserEntered = "USER_ENTERED"
	insertRows    = "INSERT_ROWS"
)

var (
	// ErrTabNotFound reports a read against a tab that does not exist yet.
	ErrTabNotFound = errors.New("sheets: tab not found")

	errMissingService       = errors.New("sheets service required")
	errMissingSpreadsheetID = errors.New("spreadsheet id required")
	ErrInvalidClientConfig  = errors.New("sheets: invalid client config")
)

// ClientConfig bundles the dependencies required to instantiate a Client.
type ClientConfig struct {
	SpreadsheetID string
	Service       *sheetsv4.Service
	Logger        *zap.Logger
}

// Client reads and appends reservation rows in a single Google spreadsheet.
// Tab existence is cached in-process; row data never is, every read goes to
// the remote store.
type Client struct {
	spreadsheetID string
	service       *sheetsv4.Service
	logger        *zap.Logger
	tabs          *tabCache
}

// NewService builds a Sheets API service from a base64-encoded service
// account JSON document.
func NewService(ctx context.Context, credentialsB64 string, opts ...option.ClientOption) (*sheetsv4.Service, error) {
	credentials, err := base64.StdEncoding.DecodeString(strings.TrimSpace(credentialsB64))
	if err != nil {
		return nil, fmt.Errorf("decode service account credentials: %w", err)
	}
	clientOptions := append([]option.ClientOption{option.WithCredentialsJSON(credentials)}, opts...)
	return sheetsv4.NewService(ctx, clientOptions...)
}

// NewClient constructs a Client with validated configuration.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingService)
	}
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientConfig, errMissingSpreadsheetID)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		spreadsheetID: cfg.SpreadsheetID,
		service:       cfg.Service,
		logger:        logger,
		tabs:          &tabCache{names: make(map[string]struct{})},
	}, nil
}

// EnsureTab creates the named tab if it does not exist. It is idempotent and
// safe to call before every write: the existence check precedes creation, and
// a concurrent creation by another process is treated as success.
func (c *Client) EnsureTab(ctx context.Context, title string) error {
	if c.tabs.has(title) {
		return nil
	}

	spreadsheet, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("fetch spreadsheet metadata: %w", err)
	}

	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties == nil {
			continue
		}
		c.tabs.add(sheet.Properties.Title)
	}
	if c.tabs.has(title) {
		return nil
	}

	request := &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{
				Properties: &sheetsv4.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, request).Context(ctx).Do(); err != nil {
		if isAlreadyExists(err) {
			c.tabs.add(title)
			return nil
		}
		return fmt.Errorf("create tab %q: %w", title, err)
	}

	c.logger.Info("created spreadsheet tab", zap.String("tab", title))
	c.tabs.add(title)
	return nil
}

// AppendRow appends one row to the named tab without overwriting existing rows.
func (c *Client) AppendRow(ctx context.Context, title string, row []string) error {
	values := make([]interface{}, len(row))
	for i, cell := range row {
		values[i] = cell
	}

	_, err := c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, tabRange(title), &sheetsv4.ValueRange{Values: [][]interface{}{values}}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row to %q: %w", title, err)
	}
	return nil
}

// Rows returns every row in the named tab's reservation column range, in
// sheet order. Reading a tab that has never been created reports
// ErrTabNotFound rather than an upstream error.
func (c *Client) Rows(ctx context.Context, title string) ([][]string, error) {
	response, err := c.service.Spreadsheets.Values.
		Get(c.spreadsheetID, tabRange(title)).
		Context(ctx).
		Do()
	if err != nil {
		if isMissingRange(err) {
			return nil, fmt.Errorf("%w: %s", ErrTabNotFound, title)
		}
		return nil, fmt.Errorf("read rows from %q: %w", title, err)
	}

	rows := make([][]string, 0, len(response.Values))
	for _, rawRow := range response.Values {
		row := make([]string, len(rawRow))
		for i, cell := range rawRow {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func tabRange(title string) string {
	escaped := strings.ReplaceAll(title, "'", "''")
	return "'" + escaped + "'!" + columnRange
}

// isAlreadyExists matches the API error returned when a tab with the
// requested title was created between our existence check and the update.
func isAlreadyExists(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "already exists")
}

// isMissingRange matches the API error returned when the range references a
// tab that does not exist.
func isMissingRange(err error) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusBadRequest && strings.Contains(apiErr.Message, "Unable to parse range")
}

type tabCache struct {
	mu    sync.Mutex
	names map[string]struct{}
}

func (c *tabCache) has(title string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.names[title]
	return ok
}

func (c *tabCache) add(title string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[title] = struct{}{}
}
