// Package sheets is the Google Sheets persistence adapter: it finds or
// creates the user's tracker spreadsheet and reads/writes the raw cell grid.
// It knows nothing about the grid's meaning; encoding and decoding live in
// the habits package.
package sheets

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	// SpreadsheetName is the Drive file name the adapter looks up.
	SpreadsheetName = "My habits tracker"
	sheetTitle      = "Habits Data"
)

// ErrTokenExpired signals that the Google access token was rejected; the
// caller should refresh the session or re-authenticate.
var ErrTokenExpired = errors.New("google access token expired")

// ErrSpreadsheetNotFound is returned by Find when no tracker sheet exists.
var ErrSpreadsheetNotFound = errors.New("spreadsheet not found")

// SpreadsheetInfo identifies a located or created spreadsheet.
type SpreadsheetInfo struct {
	ID  string
	URL string
}

// Client wraps the Sheets and Drive services for one user's token source.
type Client struct {
	sheets *sheets.Service
	drive  *drive.Service
}

// NewClient builds a client around an oauth2 token source (typically an
// auto-refreshing one seeded from the stored refresh token).
func NewClient(ctx context.Context, ts oauth2.TokenSource) (*Client, error) {
	sheetsSvc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Client{sheets: sheetsSvc, drive: driveSvc}, nil
}

// Find locates the tracker spreadsheet by name via the Drive API.
func (c *Client) Find(ctx context.Context) (SpreadsheetInfo, error) {
	query := fmt.Sprintf("name='%s' and mimeType='application/vnd.google-apps.spreadsheet' and trashed=false", SpreadsheetName)
	list, err := c.drive.Files.List().
		Q(query).
		Fields("files(id,name,webViewLink)").
		Context(ctx).
		Do()
	if err != nil {
		return SpreadsheetInfo{}, wrapGoogleErr("drive search", err)
	}
	if len(list.Files) == 0 {
		return SpreadsheetInfo{}, ErrSpreadsheetNotFound
	}
	return SpreadsheetInfo{ID: list.Files[0].Id, URL: list.Files[0].WebViewLink}, nil
}

// Create makes a new tracker spreadsheet and writes the initial grid.
func (c *Client) Create(ctx context.Context, grid [][]string) (SpreadsheetInfo, error) {
	created, err := c.sheets.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{Title: SpreadsheetName},
		Sheets: []*sheets.Sheet{
			{Properties: &sheets.SheetProperties{Title: sheetTitle}},
		},
	}).Context(ctx).Do()
	if err != nil {
		return SpreadsheetInfo{}, wrapGoogleErr("create spreadsheet", err)
	}

	info := SpreadsheetInfo{ID: created.SpreadsheetId, URL: created.SpreadsheetUrl}
	if err := c.WriteGrid(ctx, info.ID, grid); err != nil {
		return SpreadsheetInfo{}, err
	}
	return info, nil
}

// ReadGrid fetches the data region as strings. A spreadsheet with no values
// yet yields nil.
func (c *Client) ReadGrid(ctx context.Context, spreadsheetID string) ([][]string, error) {
	resp, err := c.sheets.Spreadsheets.Values.Get(spreadsheetID, sheetTitle).Context(ctx).Do()
	if err != nil {
		return nil, wrapGoogleErr("read values", err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}

	grid := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		cells := make([]string, len(row))
		for j, v := range row {
			if s, ok := v.(string); ok {
				cells[j] = s
			} else {
				cells[j] = fmt.Sprint(v)
			}
		}
		grid[i] = cells
	}
	return grid, nil
}

// WriteGrid replaces the whole data region and reapplies the header
// formatting, borders and frozen panes the tracker sheet carries.
func (c *Client) WriteGrid(ctx context.Context, spreadsheetID string, grid [][]string) error {
	meta, err := c.sheets.Spreadsheets.Get(spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return wrapGoogleErr("read spreadsheet metadata", err)
	}
	if len(meta.Sheets) == 0 {
		return errors.New("spreadsheet has no sheets")
	}
	sheetID := meta.Sheets[0].Properties.SheetId

	numRows := int64(len(grid))
	numCols := int64(0)
	if numRows > 0 {
		numCols = int64(len(grid[0]))
	}

	rows := make([]*sheets.RowData, len(grid))
	for i, row := range grid {
		values := make([]*sheets.CellData, len(row))
		for j := range row {
			cell := row[j]
			values[j] = &sheets.CellData{
				UserEnteredValue: &sheets.ExtendedValue{StringValue: &cell},
			}
		}
		rows[i] = &sheets.RowData{Values: values}
	}

	grey := &sheets.Color{Red: 0.8, Green: 0.8, Blue: 0.8}
	lightGrey := &sheets.Color{Red: 0.9, Green: 0.9, Blue: 0.9}
	white := &sheets.Color{Red: 1, Green: 1, Blue: 1}
	solid := func(color *sheets.Color) *sheets.Border {
		return &sheets.Border{Style: "SOLID", Width: 1, Color: color}
	}

	requests := []*sheets.Request{
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						RowCount:    max64(numRows+10, 100),
						ColumnCount: max64(numCols+5, 26),
					},
				},
				Fields: "gridProperties.rowCount,gridProperties.columnCount",
			},
		},
		{
			UpdateCells: &sheets.UpdateCellsRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    0,
					EndRowIndex:      numRows,
					StartColumnIndex: 0,
					EndColumnIndex:   numCols,
				},
				Rows:   rows,
				Fields: "userEnteredValue",
			},
		},
		// Category header: dark background.
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: 1, StartColumnIndex: 0, EndColumnIndex: numCols},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor:     &sheets.Color{Red: 0.3, Green: 0.3, Blue: 0.3},
						TextFormat:          &sheets.TextFormat{ForegroundColor: white, FontSize: 14, Bold: true},
						HorizontalAlignment: "CENTER",
						VerticalAlignment:   "MIDDLE",
					},
				},
				Fields: "userEnteredFormat",
			},
		},
		// Column names header: blue background.
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 1, EndRowIndex: 2, StartColumnIndex: 0, EndColumnIndex: numCols},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						BackgroundColor:     &sheets.Color{Red: 0.2, Green: 0.4, Blue: 0.8},
						TextFormat:          &sheets.TextFormat{ForegroundColor: white, FontSize: 12, Bold: true},
						HorizontalAlignment: "CENTER",
						VerticalAlignment:   "MIDDLE",
					},
				},
				Fields: "userEnteredFormat",
			},
		},
		// Data rows.
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{SheetId: sheetID, StartRowIndex: 2, EndRowIndex: numRows, StartColumnIndex: 0, EndColumnIndex: numCols},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						TextFormat:          &sheets.TextFormat{FontSize: 10},
						HorizontalAlignment: "CENTER",
						VerticalAlignment:   "MIDDLE",
					},
				},
				Fields: "userEnteredFormat",
			},
		},
		{
			UpdateBorders: &sheets.UpdateBordersRequest{
				Range:           &sheets.GridRange{SheetId: sheetID, StartRowIndex: 0, EndRowIndex: numRows, StartColumnIndex: 0, EndColumnIndex: numCols},
				Top:             solid(grey),
				Bottom:          solid(grey),
				Left:            solid(grey),
				Right:           solid(grey),
				InnerHorizontal: solid(lightGrey),
				InnerVertical:   solid(lightGrey),
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   numCols,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId: sheetID,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount:    2,
						FrozenColumnCount: 1,
					},
				},
				Fields: "gridProperties.frozenRowCount,gridProperties.frozenColumnCount",
			},
		},
	}

	_, err = c.sheets.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return wrapGoogleErr("batch update", err)
	}
	return nil
}

func wrapGoogleErr(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 401 {
		return ErrTokenExpired
	}
	return fmt.Errorf("%s: %w", op, err)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
