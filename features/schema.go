package features

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Schema is the ordered column list a model was fit against.
type Schema struct {
	columns []string
	index   map[string]int
}

// NewSchema validates and captures an expected-columns list. Names are NFC
// normalised so composed and decomposed spellings compare equal.
func NewSchema(columns []string) (Schema, error) {
	if len(columns) == 0 {
		return Schema{}, errors.New("schema has no columns")
	}
	s := Schema{
		columns: make([]string, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		name := normalize(c)
		if strings.TrimSpace(name) == "" {
			return Schema{}, fmt.Errorf("schema column %d is empty", i)
		}
		if prev, ok := s.index[name]; ok {
			return Schema{}, fmt.Errorf("schema column %q repeated at positions %d and %d", name, prev, i)
		}
		s.columns[i] = name
		s.index[name] = i
	}
	return s, nil
}

// Columns returns a copy of the column order.
func (s Schema) Columns() []string {
	return append([]string(nil), s.columns...)
}

// Len is the number of columns.
func (s Schema) Len() int {
	return len(s.columns)
}

// Has reports whether the column is part of the schema.
func (s Schema) Has(column string) bool {
	_, ok := s.index[normalize(column)]
	return ok
}

func normalize(name string) string {
	return norm.NFC.String(name)
}
