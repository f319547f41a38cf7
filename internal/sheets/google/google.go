package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	ports "bookkeeping/internal/sheets"

	"golang.org/x/oauth2"
	oauthgoogle "golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// scopes requested for the service account.
var scopes = []string{gsheet.SpreadsheetsScope, drive.DriveReadonlyScope}

// New worksheets get the same grid the spreadsheet UI would give them.
const (
	defaultRowCount    = 100
	defaultColumnCount = 10
)

// Client is a ports.Store backed by Google Sheets: a store is a spreadsheet,
// a ledger is a worksheet inside it.
type Client struct {
	svc *gsheet.Service
	// store name -> spreadsheet ID
	spreadsheets map[string]string
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// Config selects the spreadsheets and the service account used to reach them.
type Config struct {
	// Spreadsheets maps store names to spreadsheet IDs.
	Spreadsheets map[string]string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON []byte
	CredentialsFile string
	// Timeout bounds every API round trip. Zero means 60s.
	Timeout time.Duration
}

// NewFromConfig builds an authenticated client. When neither credential is
// set, GOOGLE_APPLICATION_CREDENTIALS is consulted.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if len(cfg.Spreadsheets) == 0 {
		return nil, errors.New("no spreadsheets configured")
	}
	httpClient, err := newAuthorizedClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.Spreadsheets, goption.WithHTTPClient(httpClient))
}

// New creates a client with caller supplied transport options.
func New(ctx context.Context, spreadsheets map[string]string, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	ids := make(map[string]string, len(spreadsheets))
	for name, id := range spreadsheets {
		ids[strings.TrimSpace(name)] = strings.TrimSpace(id)
	}
	return &Client{svc: svc, spreadsheets: ids}, nil
}

// newAuthorizedClient reads the service account key once and wraps a pooled
// transport with an oauth2 token source.
func newAuthorizedClient(ctx context.Context, cfg Config) (*http.Client, error) {
	credentialsJSON := cfg.CredentialsJSON
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
		slog.InfoContext(ctx, "Checking GOOGLE_APPLICATION_CREDENTIALS", "path", file)
	}

	switch {
	case len(credentialsJSON) > 0:
		slog.InfoContext(ctx, "Using inline JSON credentials")
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	creds, err := oauthgoogle.CredentialsFromJSON(ctx, credentialsJSON, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{
		Transport: &oauth2.Transport{Source: creds.TokenSource, Base: newPooledTransport()},
		Timeout:   timeout,
	}, nil
}

// newPooledTransport is tuned for a single API host with keep-alive.
func newPooledTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
}

func (c *Client) spreadsheetID(store string) (string, error) {
	id, ok := c.spreadsheets[store]
	if !ok || id == "" {
		return "", fmt.Errorf("no spreadsheet configured for %q: %w", store, ports.ErrStoreNotFound)
	}
	return id, nil
}

// Open looks the worksheet up by title.
func (c *Client) Open(ctx context.Context, store, ledger string) (ports.Table, error) {
	id, err := c.spreadsheetID(store)
	if err != nil {
		return ports.Table{}, err
	}
	ss, err := c.svc.Spreadsheets.Get(id).Fields(googleapi.Field("sheets.properties")).Context(ctx).Do()
	if err != nil {
		return ports.Table{}, fmt.Errorf("open spreadsheet %q: %w", store, translate(err))
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == ledger {
			return ports.Table{Store: store, Ledger: ledger, Ref: id}, nil
		}
	}
	return ports.Table{}, fmt.Errorf("%s/%s: %w", store, ledger, ports.ErrLedgerNotFound)
}

// Create adds a worksheet and appends header as its first row.
func (c *Client) Create(ctx context.Context, store, ledger string, header []string) (ports.Table, error) {
	id, err := c.spreadsheetID(store)
	if err != nil {
		return ports.Table{}, err
	}
	cols := int64(defaultColumnCount)
	if n := int64(len(header)); n > cols {
		cols = n
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{
					Title:          ledger,
					GridProperties: &gsheet.GridProperties{RowCount: defaultRowCount, ColumnCount: cols},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return ports.Table{}, fmt.Errorf("add worksheet %s/%s: %w", store, ledger, translate(err))
	}
	t := ports.Table{Store: store, Ledger: ledger, Ref: id}
	if err := c.AppendRow(ctx, t, header); err != nil {
		return ports.Table{}, fmt.Errorf("write header %s/%s: %w", store, ledger, err)
	}
	return t, nil
}

// AppendRow appends values after the last non-empty row. Values are written
// RAW so that what is read back is exactly what was written.
func (c *Client) AppendRow(ctx context.Context, t ports.Table, values []string) error {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	_, err := c.svc.Spreadsheets.Values.Append(t.Ref, anchor(t.Ledger), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s/%s: %w", t.Store, t.Ledger, translate(err))
	}
	return nil
}

// ReadAllRows reads the whole worksheet. The API drops trailing empty cells,
// so rows may be shorter than the header.
func (c *Client) ReadAllRows(ctx context.Context, t ports.Table) ([][]string, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(t.Ref, quoteTitle(t.Ledger)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s/%s: %w", t.Store, t.Ledger, translate(err))
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = toStrings(row)
	}
	return out, nil
}

// toStrings keeps cells verbatim; the ledger schema decides what to trim.
func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

// quoteTitle renders a worksheet title as an A1 sheet reference.
func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func anchor(title string) string {
	return quoteTitle(title) + "!A1"
}

// translate maps API failures onto the port's error vocabulary, keeping the
// original error in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound, gerr.Code == http.StatusForbidden:
			return fmt.Errorf("%w: %w", ports.ErrStoreNotFound, err)
		case gerr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(gerr.Message), "already exists"):
			return fmt.Errorf("%w: %w", ports.ErrLedgerExists, err)
		case gerr.Code == http.StatusTooManyRequests, gerr.Code >= 500:
			return fmt.Errorf("%w: %w", ports.ErrTransient, err)
		}
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ports.ErrTransient, err)
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return fmt.Errorf("%w: %w", ports.ErrTransient, err)
	}
	return err
}
