package reps

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	apperrors "github.com/regsalud/reps-sync/pkg/errors"
)

// Row is one data row of an export file, keyed by column name. Values are
// raw strings; nothing here is trusted until it passes normalization and
// validation.
type Row map[string]string

// Table is the parsed content of one export file. The whole file is small
// enough to buffer, so rows are held in memory and iteration is restartable.
type Table struct {
	Headers []string
	Rows    []Row
}

// ReadTable parses a REPS export. The portal serves HTML tables saved with
// a spreadsheet extension, so the file is parsed as HTML and the first
// table is used. The portal does not emit <th> reliably: the real column
// headers sit in the first content row, which is promoted to the header
// list and dropped from the data. Entirely empty rows are removed.
func ReadTable(r io.Reader) (*Table, error) {
	decoded, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, apperrors.NewParsing("failed to decode file content", err)
	}

	doc, err := goquery.NewDocumentFromReader(decoded)
	if err != nil {
		return nil, apperrors.NewParsing("file is not parseable as HTML", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, apperrors.NewParsing("no table found in file", nil)
	}

	var rawRows [][]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var cells []string
		tr.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		if len(cells) > 0 {
			rawRows = append(rawRows, cells)
		}
	})

	if len(rawRows) == 0 {
		return nil, apperrors.NewParsing("table contains no rows", nil)
	}

	headers := normalizeHeaders(rawRows[0])
	if len(headers) == 0 {
		return nil, apperrors.NewParsing("table contains no columns", nil)
	}

	rows := make([]Row, 0, len(rawRows)-1)
	for _, cells := range rawRows[1:] {
		row := make(Row, len(headers))
		empty := true
		for i, h := range headers {
			var v string
			if i < len(cells) {
				v = cells[i]
			}
			if v != "" {
				empty = false
			}
			row[h] = v
		}
		if !empty {
			rows = append(rows, row)
		}
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// normalizeHeaders lowercases header names and collapses inner whitespace
// to underscores so lookups are stable across export revisions.
func normalizeHeaders(cells []string) []string {
	headers := make([]string, 0, len(cells))
	for i, c := range cells {
		h := strings.ToLower(strings.TrimSpace(c))
		h = strings.Join(strings.Fields(h), "_")
		if h == "" {
			h = fmt.Sprintf("column_%d", i)
		}
		headers = append(headers, h)
	}
	// a header row of generated names only means the first row was blank
	allGenerated := true
	for i, h := range headers {
		if h != fmt.Sprintf("column_%d", i) {
			allGenerated = false
			break
		}
	}
	if allGenerated {
		return nil
	}
	return headers
}
