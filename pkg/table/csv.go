package table

import (
	"bufio"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/guregu/null.v3"

	"github.com/agentstation/ppmi500/pkg/constants"
	"github.com/agentstation/ppmi500/pkg/errors"
)

// naValues are the markers read as a missing value in the release CSV exports.
var naValues = map[string]bool{
	"":         true,
	"#N/A":     true,
	"#N/A N/A": true,
	"#NA":      true,
	"-1.#IND":  true,
	"-1.#QNAN": true,
	"-NaN":     true,
	"-nan":     true,
	"1.#IND":   true,
	"1.#QNAN":  true,
	"<NA>":     true,
	"N/A":      true,
	"NA":       true,
	"NULL":     true,
	"NaN":      true,
	"None":     true,
	"n/a":      true,
	"nan":      true,
	"null":     true,
}

// IsNA reports whether a raw CSV cell denotes a missing value.
func IsNA(s string) bool {
	return naValues[s]
}

// ReadCSV parses a headed CSV stream. Repeated header names are made unique
// by appending ".1", ".2" and so on. Short records are padded with null;
// records longer than the header are a parse error.
func ReadCSV(r io.Reader, name string) (*Table, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		_, _ = br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if stderrors.Is(err, io.EOF) {
		return newShape(name, nil), nil
	}
	if err != nil {
		return nil, parseError(name, err)
	}
	cols := uniqueHeader(header)

	out := newShape(name, cols)
	for {
		rec, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, parseError(name, err)
		}
		if len(rec) > len(cols) {
			line, _ := cr.FieldPos(0)
			return nil, &errors.ParseError{
				Format:  "csv",
				File:    name,
				Line:    line,
				Message: fmt.Sprintf("expected %d fields, found %d", len(cols), len(rec)),
			}
		}
		row := make([]null.String, len(cols))
		for j, s := range rec {
			row[j] = Cell(s)
		}
		out.rows = append(out.rows, row)
	}
	return out, nil
}

// WriteCSV writes the header and rows. Null cells are written empty.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records()); err != nil {
		return err
	}
	return cw.Error()
}

// ReadFile reads a CSV file from fs. The base file name labels the table.
func ReadFile(fs afero.Fs, path string) (*Table, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer func() { _ = f.Close() }()

	t, err := ReadCSV(f, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WriteFile writes t as CSV to path on fs, creating parent directories.
func WriteFile(fs afero.Fs, path string, t *Table) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, constants.DirPermissions); err != nil {
			return errors.WrapIO("mkdir", dir, err)
		}
	}
	f, err := fs.Create(path)
	if err != nil {
		return errors.WrapIO("create", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.WrapIO("close", path, cerr)
		}
	}()
	if err := WriteCSV(f, t); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}

func uniqueHeader(header []string) []string {
	seen := make(map[string]bool, len(header))
	counts := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		name := h
		for seen[name] {
			counts[h]++
			name = h + "." + strconv.Itoa(counts[h])
		}
		seen[name] = true
		out[i] = name
	}
	return out
}

func parseError(name string, err error) error {
	var pe *csv.ParseError
	if stderrors.As(err, &pe) {
		return &errors.ParseError{
			Format:  "csv",
			File:    name,
			Line:    pe.Line,
			Message: strings.TrimSpace(pe.Err.Error()),
			Err:     err,
		}
	}
	return errors.WrapParse("csv", name, err)
}
