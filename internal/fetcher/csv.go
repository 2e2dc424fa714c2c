package fetcher

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// CSVOptions configures the CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
	Latin1     bool // decode ISO 8859-1 input to UTF-8
}

// CSVTable is a fully parsed CSV file: one header row plus data rows.
type CSVTable struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (t *CSVTable) Len() int { return len(t.Rows) }

// ReadCSV parses a CSV stream into a header row and data rows.
// Rows may have fewer fields than the header (variable-length records are kept).
func ReadCSV(r io.Reader, opts CSVOptions) (*CSVTable, error) {
	if opts.Latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	reader := csv.NewReader(r)
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	if opts.Comment != 0 {
		reader.Comment = opts.Comment
	}
	reader.LazyQuotes = opts.LazyQuotes
	reader.FieldsPerRecord = -1 // allow variable fields

	table := &CSVTable{}
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		if opts.TrimSpace {
			for i, field := range record {
				record[i] = strings.TrimSpace(field)
			}
		}

		if first {
			first = false
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}
