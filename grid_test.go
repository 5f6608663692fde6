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
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/ctessum/geom"
)

func pt(x, y, v float64) PointObs {
	return PointObs{Point: geom.Point{X: x, Y: y}, V: v}
}

func TestNewGridSingleCell(t *testing.T) {
	points := []PointObs{pt(0, 0, 100), pt(10, 0, 200), pt(0, 10, 300), pt(10, 10, 400)}
	g, err := NewGrid(points, 10, nil, "TestFarm", "TestField", "meters")
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx != 1 || g.Ny != 1 || len(g.Cells) != 1 {
		t.Fatalf("expected a 1x1 grid, got %dx%d with %d cells", g.Nx, g.Ny, len(g.Cells))
	}
	c := g.Cells[0]
	b := c.Bounds()
	want := &geom.Bounds{Min: geom.Point{X: 0, Y: 0}, Max: geom.Point{X: 10, Y: 10}}
	if !reflect.DeepEqual(b, want) {
		t.Errorf("cell bounds: got %+v, want %+v", b, want)
	}
	if c.AcreID != "00000" {
		t.Errorf("acre id: got %s, want 00000", c.AcreID)
	}

	// All 4 points land in the single cell, including the points exactly
	// on the cell's closed max edges.
	unassigned := g.Assign(points)
	if unassigned != 0 {
		t.Errorf("unassigned: got %d, want 0", unassigned)
	}
	if c.NPoints != 4 {
		t.Errorf("n points: got %d, want 4", c.NPoints)
	}
	if c.MeanYield != 250 {
		t.Errorf("mean yield: got %g, want 250", c.MeanYield)
	}
}

func TestNewGridCoverage(t *testing.T) {
	// An extent that is an exact multiple of the cell size produces
	// exactly (W/s)*(H/s) cells.
	points := []PointObs{pt(0, 0, 1), pt(50, 30, 1)}
	g, err := NewGrid(points, 10, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx != 5 || g.Ny != 3 {
		t.Fatalf("grid dimensions: got %dx%d, want 5x3", g.Nx, g.Ny)
	}
	if len(g.Cells) != 15 {
		t.Fatalf("cell count: got %d, want 15", len(g.Cells))
	}
	// Raster-scan order: rows outer, columns inner.
	for i, c := range g.Cells {
		if c.Row != i/5 || c.Col != i%5 {
			t.Errorf("cell %d: got row %d col %d, want row %d col %d",
				i, c.Row, c.Col, i/5, i%5)
		}
	}
}

func TestNewGridTruncation(t *testing.T) {
	// Column origins step while strictly less than the max coordinate, so
	// a 25-unit extent with 10-unit cells gets origins at 0, 10, and 20;
	// the last column only partially covers its data.
	points := []PointObs{pt(0, 0, 1), pt(25, 25, 1)}
	g, err := NewGrid(points, 10, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	if g.Nx != 3 || g.Ny != 3 {
		t.Fatalf("grid dimensions: got %dx%d, want 3x3", g.Nx, g.Ny)
	}
}

func TestNewGridDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	points := make([]PointObs, 200)
	for i := range points {
		points[i] = pt(rng.Float64()*500, rng.Float64()*300, rng.Float64()*100)
	}
	g1, err := NewGrid(points, 63.6, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	g2, err := NewGrid(points, 63.6, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	if len(g1.Cells) != len(g2.Cells) {
		t.Fatalf("cell counts differ: %d != %d", len(g1.Cells), len(g2.Cells))
	}
	for i, c1 := range g1.Cells {
		c2 := g2.Cells[i]
		if c1.AcreID != c2.AcreID || !reflect.DeepEqual(c1.Bounds(), c2.Bounds()) {
			t.Fatalf("cell %d differs between builds: %s %+v != %s %+v",
				i, c1.AcreID, c1.Bounds(), c2.AcreID, c2.Bounds())
		}
	}
}

func TestNewGridErrors(t *testing.T) {
	if _, err := NewGrid(nil, 10, nil, "f", "f", "meters"); err == nil {
		t.Error("expected an error for an empty point set")
	}
	if _, err := NewGrid([]PointObs{pt(0, 0, 1)}, 0, nil, "f", "f", "meters"); err == nil {
		t.Error("expected an error for a zero cell size")
	}
	if _, err := NewGrid([]PointObs{pt(math.NaN(), 0, 1)}, 10, nil, "f", "f", "meters"); err == nil {
		t.Error("expected an error for a non-finite extent")
	}
}

func TestNewGridDegenerateExtent(t *testing.T) {
	// A point set with zero spread in either dimension cannot be tiled;
	// it must fail loudly rather than produce a zero-cell grid.
	cases := map[string][]PointObs{
		"single point":      {pt(5, 5, 1)},
		"coincident points": {pt(5, 5, 1), pt(5, 5, 2), pt(5, 5, 3)},
		"horizontal line":   {pt(0, 5, 1), pt(50, 5, 2)},
		"vertical line":     {pt(5, 0, 1), pt(5, 50, 2)},
	}
	for name, points := range cases {
		if _, err := NewGrid(points, 10, nil, "f", "f", "meters"); err == nil {
			t.Errorf("%s: expected a degenerate extent error", name)
		}
	}
}

func TestAssignConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := []PointObs{pt(0, 0, 1), pt(500, 300, 1)} // pin the extent
	for i := 0; i < 500; i++ {
		points = append(points, pt(rng.Float64()*499, rng.Float64()*299, rng.Float64()*100))
	}
	g, err := NewGrid(points, 10, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	unassigned := g.Assign(points)
	total := 0
	for _, c := range g.Cells {
		total += c.NPoints
	}
	if total+unassigned != len(points) {
		t.Errorf("conservation: %d assigned + %d unassigned != %d points",
			total, unassigned, len(points))
	}
	// The extent is an exact multiple of the cell size, so even the point
	// at the max corner falls in the outermost cell.
	if unassigned != 0 {
		t.Errorf("unassigned: got %d, want 0", unassigned)
	}
}

func TestAssignEmptyCells(t *testing.T) {
	// Two diagonal clusters leave the off-diagonal cells empty.
	points := []PointObs{
		pt(5, 5, 100), pt(6, 5, 200),
		pt(15, 15, 300),
		pt(0, 0, 1), pt(20, 20, 1), // pin a 2x2 extent
	}
	g, err := NewGrid(points, 10, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	if unassigned := g.Assign(points); unassigned != 0 {
		t.Errorf("unassigned: got %d, want 0", unassigned)
	}
	for _, c := range g.Cells {
		switch {
		case c.Row == 0 && c.Col == 0:
			if c.NPoints != 3 { // includes the (0,0) extent pin
				t.Errorf("cell (0,0): got %d points, want 3", c.NPoints)
			}
			wantMean := (100.0 + 200.0 + 1.0) / 3.0
			if math.Abs(c.MeanYield-wantMean) > 1e-12 {
				t.Errorf("cell (0,0): got mean %g, want %g", c.MeanYield, wantMean)
			}
		case c.Row == 1 && c.Col == 1:
			// Includes the (20,20) extent pin on the closed outer edge.
			if c.NPoints != 2 || c.MeanYield != (300.0+1.0)/2.0 {
				t.Errorf("cell (1,1): got %d points mean %g, want 2 points mean 150.5",
					c.NPoints, c.MeanYield)
			}
		default:
			if c.NPoints != 0 || !math.IsNaN(c.MeanYield) {
				t.Errorf("cell (%d,%d): got %d points mean %g, want empty",
					c.Row, c.Col, c.NPoints, c.MeanYield)
			}
		}
	}
}

func TestCellAt(t *testing.T) {
	points := []PointObs{pt(0, 0, 1), pt(30, 20, 1)}
	g, err := NewGrid(points, 10, nil, "f", "f", "meters")
	if err != nil {
		t.Fatal(err)
	}
	c := g.CellAt(geom.Point{X: 15, Y: 5})
	if c == nil {
		t.Fatal("expected a cell at (15, 5)")
	}
	if c.Row != 0 || c.Col != 1 {
		t.Errorf("got cell (%d,%d), want (0,1)", c.Row, c.Col)
	}
	if g.CellAt(geom.Point{X: -5, Y: 5}) != nil {
		t.Error("expected no cell outside the grid")
	}
}
