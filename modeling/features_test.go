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

package modeling

import (
	"reflect"
	"testing"
)

func newTestTable(head []string, rows [][]string) *Table {
	t := &Table{head: head, rows: rows, cols: make(map[string]int)}
	for i, name := range head {
		t.cols[name] = i
	}
	return t
}

func TestFeatureMatrix(t *testing.T) {
	tbl := newTestTable(
		[]string{"acre_id", "mean_yield_bu_ac", "mean_nitrogen_lb_ac", "rainfall_in", "lat", "lon", "soil_musym"},
		[][]string{
			{"00000", "180", "120", "20.5", "40.0", "-93.0", "55B"},
			{"00001", "190", "130", "20.5", "40.1", "-93.1", "55B"},
			{"00002", "170", "110", "20.5", "40.2", "-93.2", "62A"},
			{"00003", "", "140", "20.5", "40.3", "-93.3", "55B"},   // no yield: dropped
			{"00004", "160", "", "20.5", "40.4", "-93.4", "62A"},   // missing predictor: dropped
			{"00005", "150", "100", "20.5", "40.5", "-93.5", ""},   // unknown soil
		},
	)
	d, err := FeatureMatrix(tbl, true)
	if err != nil {
		t.Fatal(err)
	}
	// Soil levels sorted: 55B (baseline, dropped), 62A, UNK.
	wantNames := []string{
		"mean_nitrogen_lb_ac", "rainfall_in", "lat", "lon",
		"soil_musym_62A", "soil_musym_UNK",
	}
	if !reflect.DeepEqual(d.Names, wantNames) {
		t.Errorf("feature names: got %v, want %v", d.Names, wantNames)
	}
	if d.Rows() != 4 {
		t.Fatalf("rows: got %d, want 4", d.Rows())
	}
	if !reflect.DeepEqual(d.Y, []float64{180, 190, 170, 150}) {
		t.Errorf("target: got %v", d.Y)
	}
	// Row 2 is soil 62A, row 3 (acre 00005) is UNK.
	if d.X.At(2, 4) != 1 || d.X.At(0, 4) != 0 {
		t.Error("62A dummy column is wrong")
	}
	if d.X.At(3, 5) != 1 || d.X.At(2, 5) != 0 {
		t.Error("UNK dummy column is wrong")
	}
}

func TestFeatureMatrixNoCoords(t *testing.T) {
	tbl := newTestTable(
		[]string{"mean_yield_bu_ac", "mean_nitrogen_lb_ac", "lat", "lon"},
		[][]string{
			{"180", "120", "40.0", "-93.0"},
			{"190", "130", "40.1", "-93.1"},
		},
	)
	d, err := FeatureMatrix(tbl, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Names, []string{"mean_nitrogen_lb_ac"}) {
		t.Errorf("feature names: got %v, want nitrogen only", d.Names)
	}
}

func TestFeatureMatrixDropsEmptyColumns(t *testing.T) {
	// rainfall is entirely missing; the column is dropped instead of
	// dropping every row.
	tbl := newTestTable(
		[]string{"mean_yield_bu_ac", "mean_nitrogen_lb_ac", "rainfall_in"},
		[][]string{
			{"180", "120", ""},
			{"190", "130", ""},
		},
	)
	d, err := FeatureMatrix(tbl, false)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Names, []string{"mean_nitrogen_lb_ac"}) {
		t.Errorf("feature names: got %v, want nitrogen only", d.Names)
	}
	if d.Rows() != 2 {
		t.Errorf("rows: got %d, want 2", d.Rows())
	}
}

func TestQuadraticNSoilMatrix(t *testing.T) {
	tbl := newTestTable(
		[]string{"mean_yield_bu_ac", "mean_nitrogen_lb_ac", "soil_musym"},
		[][]string{
			{"180", "120", "55B"},
			{"190", "130", "62A"},
		},
	)
	d, err := QuadraticNSoilMatrix(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(d.Names, []string{"N", "N2", "soil_musym_62A"}) {
		t.Errorf("feature names: got %v", d.Names)
	}
	if d.X.At(0, 1) != 120*120 {
		t.Errorf("N2: got %g, want %g", d.X.At(0, 1), 120.0*120.0)
	}
}
