// Package parser reads the semicolon separated engineering and archive exports.
package parser

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Separator splits the columns of every export.
const Separator = ';'

// Flag is the cell content meaning true in boolean columns.
const Flag = "X"

// Row is one split line. Missing trailing columns read as empty.
type Row []string

func (r Row) Field(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return strings.TrimSpace(r[i])
}

// Int reads column i, zero when it is empty or malformed.
func (r Row) Int(i int) int {
	n, err := strconv.Atoi(r.Field(i))
	if err != nil {
		return 0
	}
	return n
}

func (r Row) Int64(i int) int64 {
	n, err := strconv.ParseInt(r.Field(i), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (r Row) Float(i int) float64 {
	f, err := strconv.ParseFloat(r.Field(i), 64)
	if err != nil {
		return 0
	}
	return f
}

// Flag reports whether column i holds the X marker.
func (r Row) Flag(i int) bool {
	return r.Field(i) == Flag
}

// LineFilter decides whether a row is converted. A nil filter keeps every row.
type LineFilter func(Row) bool

// Each streams the rows of r after the header line through filter and hands the
// kept ones to fn. Lines are split on Separator only; quotes are ordinary
// characters. Blank lines are skipped.
func Each(r io.Reader, filter LineFilter, fn func(Row) error) error {
	br := bufio.NewReader(r)
	header := true
	for line := 1; ; line++ {
		text, err := br.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("line %d: read error: %w", line, err)
		}
		text = strings.TrimRight(text, "\r\n")

		switch {
		case header:
			header = false
		case strings.TrimSpace(text) != "":
			row := Row(strings.Split(text, string(Separator)))
			if filter == nil || filter(row) {
				if ferr := fn(row); ferr != nil {
					return fmt.Errorf("line %d: %w", line, ferr)
				}
			}
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
	}
}
