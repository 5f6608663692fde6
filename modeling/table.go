/*
Copyright © 2026 the AgriField authors.
This file is part of AgriField.

AgriField is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

AgriField is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with AgriField.  If not, see <http://www.gnu.org/licenses/>.
*/

// Package modeling fits and compares regression models of acre-level yield
// against nitrogen, weather, location, and soil predictors.
package modeling

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
)

// A Table is an acre-level dataset loaded from a prepared CSV file: one
// row per acre, columns addressed by name.
type Table struct {
	cols map[string]int
	head []string
	rows [][]string
}

// LoadTable reads an acre-level dataset written by the preparation
// pipeline.
func LoadTable(filename string) (*Table, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("modeling: opening dataset: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("modeling: reading dataset %s: %v", filename, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("modeling: dataset %s is empty", filename)
	}
	t := &Table{
		head: records[0],
		rows: records[1:],
		cols: make(map[string]int),
	}
	for i, name := range t.head {
		t.cols[name] = i
	}
	log.WithFields(log.Fields{
		"file":    filename,
		"rows":    len(t.rows),
		"columns": len(t.head),
	}).Info("loaded dataset")
	return t, nil
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// HasColumn reports whether the dataset carries the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Float returns the named column as numbers. Empty and unparseable values
// become NaN.
func (t *Table) Float(name string) []float64 {
	j, ok := t.cols[name]
	if !ok {
		return nil
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		v, err := strconv.ParseFloat(row[j], 64)
		if err != nil {
			v = math.NaN()
		}
		out[i] = v
	}
	return out
}

// Strings returns the named column as text.
func (t *Table) Strings(name string) []string {
	j, ok := t.cols[name]
	if !ok {
		return nil
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out
}
