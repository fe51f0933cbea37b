// Package sheets reads and appends rows of Google spreadsheets, mapping them
// onto typed structs by header name.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// ErrNoWorksheets is returned when a spreadsheet has no sheets.
var ErrNoWorksheets = errors.New("spreadsheet has no worksheets")

// Worksheet is a single tab of a spreadsheet. The first row is the header.
type Worksheet interface {
	Title() string
	// Values returns every row, header included.
	Values(ctx context.Context) ([][]string, error)
	Header(ctx context.Context) ([]string, error)
	AppendValues(ctx context.Context, values []interface{}) error
}

// Workbook opens the first worksheet of a spreadsheet.
type Workbook interface {
	Open(ctx context.Context, spreadsheetID string) (Worksheet, error)
}

// Options configures Service.
type Options struct {
	// Endpoint overrides the Sheets API base URL (tests, proxies).
	Endpoint string
	// ValueInputOption for appends; defaults to USER_ENTERED.
	ValueInputOption string
}

// Service is a Workbook backed by the Google Sheets API.
type Service struct {
	api    *gsheets.Service
	opts   Options
	logger *zap.Logger
}

// NewService creates a Sheets API client authenticated by ts.
func NewService(ctx context.Context, ts oauth2.TokenSource, opts Options, logger *zap.Logger) (*Service, error) {
	clientOpts := []option.ClientOption{option.WithTokenSource(ts)}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}
	api, err := gsheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.ValueInputOption == "" {
		opts.ValueInputOption = "USER_ENTERED"
	}
	return &Service{api: api, opts: opts, logger: logger}, nil
}

// Open loads spreadsheet metadata and returns its first worksheet.
func (s *Service) Open(ctx context.Context, spreadsheetID string) (Worksheet, error) {
	doc, err := s.api.Spreadsheets.Get(spreadsheetID).Fields("spreadsheetId,sheets.properties").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("load spreadsheet %s: %w", spreadsheetID, err)
	}
	var first *gsheets.SheetProperties
	for _, sh := range doc.Sheets {
		if sh == nil || sh.Properties == nil {
			continue
		}
		if first == nil || sh.Properties.Index < first.Index {
			first = sh.Properties
		}
	}
	if first == nil {
		return nil, fmt.Errorf("load spreadsheet %s: %w", spreadsheetID, ErrNoWorksheets)
	}
	s.logger.Debug("spreadsheet opened", zap.String("spreadsheet_id", spreadsheetID), zap.String("sheet", first.Title))
	return &worksheet{svc: s, spreadsheetID: spreadsheetID, title: first.Title}, nil
}

type worksheet struct {
	svc           *Service
	spreadsheetID string
	title         string
}

func (w *worksheet) Title() string { return w.title }

// a1 quotes the sheet title for use in an A1 range.
func (w *worksheet) a1(suffix string) string {
	return "'" + strings.ReplaceAll(w.title, "'", "''") + "'" + suffix
}

func (w *worksheet) Values(ctx context.Context) ([][]string, error) {
	return w.get(ctx, w.a1(""))
}

func (w *worksheet) Header(ctx context.Context) ([]string, error) {
	rows, err := w.get(ctx, w.a1("!1:1"))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (w *worksheet) get(ctx context.Context, rng string) ([][]string, error) {
	vr, err := w.svc.api.Spreadsheets.Values.Get(w.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([][]string, len(vr.Values))
	for i, row := range vr.Values {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell != nil {
				cells[j] = fmt.Sprint(cell)
			}
		}
		out[i] = cells
	}
	return out, nil
}

func (w *worksheet) AppendValues(ctx context.Context, values []interface{}) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{values}}
	_, err := w.svc.api.Spreadsheets.Values.Append(w.spreadsheetID, w.a1(""), vr).
		ValueInputOption(w.svc.opts.ValueInputOption).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", w.title, err)
	}
	return nil
}
