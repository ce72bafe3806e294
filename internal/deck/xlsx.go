package deck

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/starford/lexa/internal/apperr"
)

// parseXLSX reads the first sheet: column A terms, column B translations.
// A first row reading "term"/"translation" is treated as a header.
func parseXLSX(data []byte) (*Deck, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: open spreadsheet: %v", apperr.ErrInvalidInput, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return &Deck{}, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}

	d := &Deck{}
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		if len(row) < 2 {
			continue
		}
		term, tr := strings.TrimSpace(row[0]), strings.TrimSpace(row[1])
		if term == "" || tr == "" {
			continue
		}
		d.Pairs = append(d.Pairs, Pair{Term: term, Translation: tr, Line: i + 1})
	}
	return d, nil
}

func isHeader(row []string) bool {
	return len(row) >= 2 &&
		strings.EqualFold(strings.TrimSpace(row[0]), "term") &&
		strings.EqualFold(strings.TrimSpace(row[1]), "translation")
}
