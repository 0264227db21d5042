package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

var ErrEmptyFile = errors.New("arquivo está vazio")

// DetectFormat picks the format from the file name, falling back to the zip
// signature every xlsx file starts with.
func DetectFormat(name string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".csv", ".txt":
		return FormatCSV
	}
	if bytes.HasPrefix(head, []byte("PK\x03\x04")) {
		return FormatXLSX
	}
	return FormatCSV
}

// Table is a header row plus data rows. Headers are lowercased and trimmed.
// Lines holds the 1-based source line of each row in Rows.
type Table struct {
	Header []string
	Rows   [][]string
	Lines  []int
}

// Line reports the source line of row i.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// ReadTable reads the whole input in the given format.
func ReadTable(r io.Reader, format Format) (*Table, error) {
	var (
		records [][]string
		lines   []int
		err     error
	)
	switch format {
	case FormatXLSX:
		records, lines, err = readXLSX(r)
	default:
		records, lines, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}

	records, lines = dropBlankRows(records, lines)
	if len(records) < 2 {
		return nil, ErrEmptyFile
	}

	t := &Table{Header: make([]string, len(records[0])), Rows: records[1:], Lines: lines[1:]}
	for i, h := range records[0] {
		t.Header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	return t, nil
}

func readCSV(r io.Reader) ([][]string, []int, error) {
	br := bufio.NewReader(r)
	first, err := br.Peek(4096)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, nil, fmt.Errorf("failed to read csv: %w", err)
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	// encoding/csv skips empty lines, so the line comes from FieldPos.
	var (
		records [][]string
		lines   []int
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("erro ao processar CSV: %w", err)
		}
		line, _ := cr.FieldPos(0)
		records = append(records, rec)
		lines = append(lines, line)
	}
	return records, lines, nil
}

// detectDelimiter compares ';' and ',' on the header line. Spreadsheet
// exports in pt-BR locales use ';' because ',' is the decimal separator.
func detectDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(r io.Reader) ([][]string, []int, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, ErrEmptyFile
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	lines := make([]int, len(rows))
	for i := range rows {
		lines[i] = i + 1
	}
	return rows, lines, nil
}

// dropBlankRows removes rows without content and keeps the source line of
// each remaining row alongside it.
func dropBlankRows(records [][]string, lines []int) ([][]string, []int) {
	out := records[:0]
	outLines := lines[:0]
	for i, rec := range records {
		for _, cell := range rec {
			if strings.TrimSpace(cell) != "" {
				out = append(out, rec)
				outLines = append(outLines, lines[i])
				break
			}
		}
	}
	return out, outLines
}

// Record returns row i as a column-name keyed map. Short rows yield "".
func (t *Table) Record(i int) map[string]string {
	row := t.Rows[i]
	m := make(map[string]string, len(t.Header))
	for col, name := range t.Header {
		if name == "" {
			continue
		}
		if col < len(row) {
			m[name] = strings.TrimSpace(row[col])
		} else {
			m[name] = ""
		}
	}
	return m
}
