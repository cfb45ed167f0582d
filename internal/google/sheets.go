package google

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"livey-backend/internal/errs"
	"livey-backend/internal/models"
)

const (
	OrdersSheet = "Orders"

	appendRange = OrdersSheet + "!A:J"
	headerRange = OrdersSheet + "!A1:J1"
)

// Header is the fixed, order-significant column layout of the orders sheet.
var Header = []interface{}{
	"Order ID", "Date/Time", "Customer Name", "Phone", "Full Address",
	"Product Name", "Price", "Quantity", "Total", "Status",
}

var updatedRowRe = regexp.MustCompile(`!A(\d+):`)

type Spreadsheet struct {
	ID  string
	URL string
}

type SheetsClient struct {
	loc     *time.Location
	timeout time.Duration
	opts    []option.ClientOption
	log     *zap.Logger
}

// NewSheetsClient renders row timestamps in loc. Extra options are appended
// after the per-call token source; tests use them to point at a fake server.
func NewSheetsClient(loc *time.Location, timeout time.Duration, log *zap.Logger, opts ...option.ClientOption) *SheetsClient {
	if loc == nil {
		loc = time.UTC
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SheetsClient{loc: loc, timeout: timeout, opts: opts, log: log}
}

func (c *SheetsClient) service(ctx context.Context, accessToken string) (*sheets.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, c.opts...)
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, errs.External(errs.KindTransient, "create sheets service", err)
	}
	return srv, nil
}

// CreateSpreadsheet creates a spreadsheet with a single frozen, bold, shaded header row.
func (c *SheetsClient) CreateSpreadsheet(ctx context.Context, accessToken, title string) (*Spreadsheet, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	created, err := srv.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: title},
		Sheets: []*sheets.Sheet{{
			Properties: &sheets.SheetProperties{
				Title:          OrdersSheet,
				GridProperties: &sheets.GridProperties{FrozenRowCount: 1},
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classifySheetsError("create spreadsheet", err)
	}

	var sheetID int64
	if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
		sheetID = created.Sheets[0].Properties.SheetId
	}

	_, err = srv.Spreadsheets.Values.Update(created.SpreadsheetId, headerRange, &sheets.ValueRange{
		Values: [][]interface{}{Header},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return nil, classifySheetsError("write header", err)
	}

	_, err = srv.Spreadsheets.BatchUpdate(created.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:         sheetID,
					StartRowIndex:   0,
					EndRowIndex:     1,
					ForceSendFields: []string{"SheetId", "StartRowIndex"},
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor: &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9},
						TextFormat:      &sheets.TextFormat{Bold: true},
					},
				},
				Fields: "userEnteredFormat(backgroundColor,textFormat)",
			},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classifySheetsError("format header", err)
	}

	url := created.SpreadsheetUrl
	if url == "" {
		url = "https://docs.google.com/spreadsheets/d/" + created.SpreadsheetId
	}
	return &Spreadsheet{ID: created.SpreadsheetId, URL: url}, nil
}

// AppendOrderRow appends one row for o and returns its 1-based row number,
// or 0 when the response does not say where the row landed.
func (c *SheetsClient) AppendOrderRow(ctx context.Context, accessToken, spreadsheetID string, o *models.Order) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return 0, err
	}

	resp, err := srv.Spreadsheets.Values.Append(spreadsheetID, appendRange, &sheets.ValueRange{
		Values: [][]interface{}{OrderRow(o, c.loc)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return 0, classifySheetsError("append order row", err)
	}

	var row int
	if resp.Updates != nil {
		row = parseRowNumber(resp.Updates.UpdatedRange)
	}
	if row == 0 {
		c.log.Warn("append response without row number", zap.String("spreadsheet_id", spreadsheetID))
	}
	return row, nil
}

// TestConnection reads the spreadsheet title to prove the sheet is reachable.
func (c *SheetsClient) TestConnection(ctx context.Context, accessToken, spreadsheetID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	srv, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}

	ss, err := srv.Spreadsheets.Get(spreadsheetID).Fields("properties.title").Context(ctx).Do()
	if err != nil {
		return "", classifySheetsError("test connection", err)
	}
	if ss.Properties == nil {
		return "", nil
	}
	return ss.Properties.Title, nil
}

// OrderRow formats o in sheet column order.
func OrderRow(o *models.Order, loc *time.Location) []interface{} {
	id := o.OrderNumber
	if id == "" {
		id = o.ID.String()
	}
	return []interface{}{
		id,
		o.CreatedAt.In(loc).Format("02/01/2006, 15:04:05"),
		o.CustomerName,
		o.CustomerPhone,
		o.CustomerAddress,
		o.ProductName,
		o.ProductPrice,
		o.Quantity,
		o.TotalPrice,
		o.Status.Capitalized(),
	}
}

func parseRowNumber(updatedRange string) int {
	m := updatedRowRe.FindStringSubmatch(updatedRange)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func classifySheetsError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return errs.External(errs.KindNotFound, op, err)
		case http.StatusTooManyRequests:
			return errs.External(errs.KindQuota, op, err)
		case http.StatusForbidden:
			for _, item := range gerr.Errors {
				switch item.Reason {
				case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded":
					return errs.External(errs.KindQuota, op, err)
				}
			}
		}
	}
	return errs.External(errs.KindTransient, op, err)
}
