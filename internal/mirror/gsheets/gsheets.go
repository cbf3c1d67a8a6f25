// Package gsheets is the Google Sheets backend of the mirror. Spreadsheets
// are opened through the Sheets API; display names are looked up in Drive.
package gsheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/atinyakov/accountvault/internal/mirror"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

var (
	_ mirror.Dialer = Dial
	_ mirror.Opener = (*Opener)(nil)
	_ mirror.Sheet  = (*Sheet)(nil)
)

// Opener resolves spreadsheets by id or title.
type Opener struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewOpener wraps already configured API services.
func NewOpener(sheetsSvc *sheets.Service, driveSvc *drive.Service) *Opener {
	return &Opener{sheets: sheetsSvc, drive: driveSvc}
}

// Dial authenticates with service-account credentials. It satisfies
// mirror.Dialer.
func Dial(ctx context.Context, credentials []byte) (mirror.Opener, error) {
	// The services outlive the call that resolves them; their token source
	// must not be tied to a request deadline.
	ctx = context.WithoutCancel(ctx)

	sheetsSvc, err := sheets.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	driveSvc, err := drive.NewService(ctx,
		option.WithCredentialsJSON(credentials),
		option.WithScopes(drive.DriveMetadataReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return NewOpener(sheetsSvc, driveSvc), nil
}

// OpenByID fetches the spreadsheet metadata and selects its first worksheet.
func (o *Opener) OpenByID(ctx context.Context, id string) (mirror.Sheet, error) {
	ss, err := o.sheets.Spreadsheets.Get(id).
		Fields("spreadsheetId", "sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("open %q: %w", id, mirror.ErrTargetNotFound)
		}
		return nil, err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return nil, fmt.Errorf("spreadsheet %s has no worksheets", ss.SpreadsheetId)
	}
	return &Sheet{
		svc:   o.sheets,
		id:    ss.SpreadsheetId,
		title: ss.Sheets[0].Properties.Title,
	}, nil
}

// OpenByName finds a spreadsheet the account can see by exact title. When
// several share the title the most recently modified one is used.
func (o *Opener) OpenByName(ctx context.Context, name string) (mirror.Sheet, error) {
	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		escapeQuery(name), spreadsheetMimeType)
	list, err := o.drive.Files.List().
		Q(q).
		OrderBy("modifiedTime desc").
		PageSize(1).
		Fields("files(id, name)").
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("find %q: %w", name, mirror.ErrTargetNotFound)
		}
		return nil, err
	}
	if len(list.Files) == 0 {
		return nil, fmt.Errorf("find %q: %w", name, mirror.ErrTargetNotFound)
	}
	return o.OpenByID(ctx, list.Files[0].Id)
}

// Sheet is one worksheet of a spreadsheet.
type Sheet struct {
	svc   *sheets.Service
	id    string
	title string
}

func (s *Sheet) SpreadsheetID() string { return s.id }

func (s *Sheet) Title() string { return s.title }

func (s *Sheet) FirstRow(ctx context.Context) ([]string, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.id, s.a1("1:1")).
		MajorDimension("ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(resp.Values) == 0 {
		return []string{}, nil
	}
	row := make([]string, len(resp.Values[0]))
	for i, v := range resp.Values[0] {
		row[i] = fmt.Sprint(v)
	}
	return row, nil
}

func (s *Sheet) WriteRange(ctx context.Context, a1 string, values []string) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.id, s.a1(a1), valueRange(values)).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (s *Sheet) AppendRow(ctx context.Context, values []string) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.id, s.a1("A1"), valueRange(values)).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (s *Sheet) a1(r string) string {
	return quoteSheetTitle(s.title) + "!" + r
}

func valueRange(values []string) *sheets.ValueRange {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return &sheets.ValueRange{MajorDimension: "ROWS", Values: [][]interface{}{cells}}
}

// quoteSheetTitle quotes a worksheet title for use in A1 notation.
func quoteSheetTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// escapeQuery escapes a literal for a Drive search query.
func escapeQuery(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
