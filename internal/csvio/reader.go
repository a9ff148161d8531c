package csvio

import (
	"encoding/csv"
	"io"
	"strings"
)

// Reader streams CSV records as header-keyed maps. The header row is read on
// the first call, so constructing a Reader never touches the input.
type Reader struct {
	cr      *csv.Reader
	header  []string
	err     error
	started bool
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	// Rows may be ragged; short rows simply leave trailing columns unset.
	cr.FieldsPerRecord = -1
	return &Reader{cr: cr}
}

// Header returns the column names, reading them from the input if needed.
func (r *Reader) Header() ([]string, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	return r.header, nil
}

func (r *Reader) init() error {
	if r.started {
		return r.err
	}
	r.started = true
	for {
		rec, err := r.cr.Read()
		if err != nil {
			// io.EOF here means the payload had no rows at all.
			r.err = err
			return r.err
		}
		rec[0] = strings.TrimPrefix(rec[0], "\uFEFF")
		if !blank(rec) {
			r.header = rec
			return nil
		}
	}
}

// blank reports whether every cell is empty or whitespace, like the padding
// lines some senders put above the header row.
func blank(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Next returns the following record keyed by header name. Cells beyond the
// header width are dropped and missing trailing cells leave their keys
// absent. io.EOF signals the end of the input.
func (r *Reader) Next() (map[string]string, error) {
	if err := r.init(); err != nil {
		return nil, err
	}
	rec, err := r.cr.Read()
	if err != nil {
		return nil, err
	}
	row := make(map[string]string, len(r.header))
	for i, name := range r.header {
		if i >= len(rec) {
			break
		}
		row[name] = rec[i]
	}
	return row, nil
}
