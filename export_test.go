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

package agrifield

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom/encoding/shp"
	"github.com/tealeg/xlsx"
)

func testGrid(t *testing.T) *Grid {
	t.Helper()
	points := []PointObs{pt(0, 0, 100), pt(20, 10, 200)}
	g, err := NewGrid(points, 10, nil, "Smith", "North40", "meters")
	if err != nil {
		t.Fatal(err)
	}
	g.Assign(points)
	return g
}

func TestOutputCSV(t *testing.T) {
	g := testGrid(t)
	fname := filepath.Join(t.TempDir(), "acres.csv")
	o, err := NewOutputter(fname, map[string]string{
		"yld2": "mean_yield_bu_ac * 2",
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 3 {
		t.Fatalf("row count: got %d, want 3 (header + 2 cells)", len(records))
	}

	header := records[0]
	wantHeader := append(append([]string{}, BaseVars...), "yld2")
	if len(header) != len(wantHeader) {
		t.Fatalf("column count: got %d, want %d", len(header), len(wantHeader))
	}
	col := make(map[string]int)
	for i, name := range header {
		if name != wantHeader[i] {
			t.Errorf("column %d: got %s, want %s", i, name, wantHeader[i])
		}
		col[name] = i
	}

	for i, want := range []struct {
		acreID, yield, yld2 string
	}{
		{"00000", "100", "200"},
		{"00001", "200", "400"},
	} {
		row := records[i+1]
		if row[col["acre_id"]] != want.acreID {
			t.Errorf("row %d acre_id: got %s, want %s", i, row[col["acre_id"]], want.acreID)
		}
		if row[col["mean_yield_bu_ac"]] != want.yield {
			t.Errorf("row %d yield: got %s, want %s", i, row[col["mean_yield_bu_ac"]], want.yield)
		}
		if row[col["yld2"]] != want.yld2 {
			t.Errorf("row %d yld2: got %s, want %s", i, row[col["yld2"]], want.yld2)
		}
		// Covariates were never attached, so their NaN values come out as
		// empty fields.
		if row[col["mean_nitrogen_lb_ac"]] != "" {
			t.Errorf("row %d nitrogen: got %q, want empty", i, row[col["mean_nitrogen_lb_ac"]])
		}
		if row[col["farm"]] != "Smith" || row[col["field"]] != "North40" {
			t.Errorf("row %d provenance: got %s/%s", i, row[col["farm"]], row[col["field"]])
		}
	}
}

func TestOutputShapefile(t *testing.T) {
	g := testGrid(t)
	fname := filepath.Join(t.TempDir(), "acres.shp")
	o, err := NewOutputter(fname, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	o.Proj = `PROJCS["test"]`
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}

	d, err := shp.NewDecoder(fname)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	if d.AttributeCount() != 2 {
		t.Fatalf("shapefile row count: got %d, want 2", d.AttributeCount())
	}
	_, fields, more := d.DecodeRowFields("acre_id", "yld_bu_ac")
	if !more {
		t.Fatal("shapefile has no rows")
	}
	if fields["acre_id"] != "00000" {
		t.Errorf("acre_id: got %s, want 00000", fields["acre_id"])
	}
	if err := d.Error(); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(filepath.Join(filepath.Dir(fname), "acres.prj")); err != nil {
		t.Errorf("missing .prj sidecar: %v", err)
	}
}

func TestOutputXLSX(t *testing.T) {
	g := testGrid(t)
	fname := filepath.Join(t.TempDir(), "acres.xlsx")
	o, err := NewOutputter(fname, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.Output(g); err != nil {
		t.Fatal(err)
	}

	f, err := xlsx.OpenFile(fname)
	if err != nil {
		t.Fatal(err)
	}
	sheet := f.Sheets[0]
	if len(sheet.Rows) != 3 {
		t.Fatalf("sheet row count: got %d, want 3", len(sheet.Rows))
	}
	if got := sheet.Rows[0].Cells[0].String(); got != "farm" {
		t.Errorf("first header cell: got %s, want farm", got)
	}
}

func TestNewOutputterErrors(t *testing.T) {
	if _, err := NewOutputter("out.json", nil, nil); err == nil {
		t.Error("expected an error for an unsupported file type")
	}
	if _, err := NewOutputter("out.csv", map[string]string{"bad": "no_such_var + 1"}, nil); err == nil {
		t.Error("expected an error for an undefined variable reference")
	}
	if _, err := NewOutputter("out.csv", map[string]string{"lat": "lon"}, nil); err == nil {
		t.Error("expected an error for shadowing a base variable")
	}
	if _, err := NewOutputter("out.csv", map[string]string{"bad": "mean_yield_bu_ac +"}, nil); err == nil {
		t.Error("expected an error for an expression that does not compile")
	}
	if _, err := NewOutputter("out.shp", map[string]string{"much_too_long_name": "lat"}, nil); err == nil {
		t.Error("expected an error for a shapefile field name over 10 characters")
	}
}
