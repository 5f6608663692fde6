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

// Package agrifield rasterizes precision-agriculture point observations onto
// a regular acre-sized grid and attaches yield, nitrogen, weather, and soil
// attributes to each grid cell.
package agrifield

import (
	"fmt"
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
)

// Version gives the version number of this version of AgriField.
const Version = "0.1.0"

// PointObs is a single geolocated scalar observation—for example one
// yield-monitor reading or one nitrogen application point—in a projected,
// locally-flat coordinate system.
type PointObs struct {
	geom.Point
	V float64 // measurement value
}

// A Cell is one tile of a regular rectangular partition of a field, sized to
// approximate one acre.
type Cell struct {
	geom.Polygonal

	// Row and Col give the cell's integer position in the grid, captured
	// when the grid is generated so that bucketing a cell never needs to
	// re-derive its position from floating-point coordinates.
	Row, Col int

	// AcreID is a stable zero-padded identifier assigned in raster-scan
	// order (rows outer, columns inner).
	AcreID string

	MeanYield    float64 // mean yield of the points assigned to this cell [bu/ac]
	NPoints      int     // number of yield points assigned to this cell
	MeanNitrogen float64 // mean applied nitrogen rate [lb/ac]

	RainfallIn            float64 // growing-season rainfall [in]
	Lat, Lon              float64
	SoilMusym, SoilMuname string // SSURGO map unit symbol and name
}

// Center returns the cell's midpoint.
func (c *Cell) Center() geom.Point {
	b := c.Bounds()
	return geom.Point{X: (b.Min.X + b.Max.X) / 2, Y: (b.Min.Y + b.Max.Y) / 2}
}

// Grid is a regular rectangular tiling of a field's extent. The grid's
// geometry—origin, cell size, and dimensions—is part of its identity: every
// bucketing operation uses these recorded values, so a layer merged onto the
// grid can never be keyed against a different geometry than the one the grid
// was built with.
type Grid struct {
	Farm, Field, Units string

	Dx     float64 // cell edge length
	X0, Y0 float64 // lower-left corner of the grid
	Nx, Ny int     // number of columns and rows

	// SR is the spatial reference of the grid coordinates.
	SR *proj.SR

	Cells []*Cell

	index *rtree.Rtree
}

// NewGrid creates a regular grid covering the extent of points, with square
// cells of edge length cellSize. Column origins are laid out at
// X0 + k*cellSize for every k such that the origin is strictly less than the
// maximum point x coordinate, and symmetrically for rows; an extent that is
// not an exact multiple of cellSize is truncated rather than padded, so
// boundary slivers narrower than a cell are dropped. Cells are generated in
// raster-scan order (rows outer, columns inner) with sequential zero-padded
// acre identifiers, making grid construction deterministic for a given
// point set and cell size.
func NewGrid(points []PointObs, cellSize float64, sr *proj.SR, farm, field, units string) (*Grid, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("agrifield: no points to grid")
	}
	if !(cellSize > 0) {
		return nil, fmt.Errorf("agrifield: invalid cell size %g", cellSize)
	}
	b := geom.NewBounds()
	for _, p := range points {
		b.Extend(geom.NewBoundsPoint(p.Point))
	}
	for _, v := range []float64{b.Min.X, b.Min.Y, b.Max.X, b.Max.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("agrifield: non-finite field extent [%g, %g] x [%g, %g]",
				b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
		}
	}
	if b.Max.X == b.Min.X || b.Max.Y == b.Min.Y {
		return nil, fmt.Errorf("agrifield: degenerate field extent [%g, %g] x [%g, %g]: "+
			"the points span zero distance in at least one dimension",
			b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
	}
	g := &Grid{
		Farm:  farm,
		Field: field,
		Units: units,
		Dx:    cellSize,
		X0:    b.Min.X,
		Y0:    b.Min.Y,
		SR:    sr,
	}
	for g.X0+float64(g.Nx)*cellSize < b.Max.X {
		g.Nx++
	}
	for g.Y0+float64(g.Ny)*cellSize < b.Max.Y {
		g.Ny++
	}
	g.Cells = make([]*Cell, 0, g.Nx*g.Ny)
	g.index = rtree.NewTree(25, 50)
	for iy := 0; iy < g.Ny; iy++ {
		for ix := 0; ix < g.Nx; ix++ {
			x := g.X0 + float64(ix)*cellSize
			y := g.Y0 + float64(iy)*cellSize
			c := &Cell{
				Row:          iy,
				Col:          ix,
				AcreID:       fmt.Sprintf("%05d", len(g.Cells)),
				MeanYield:    math.NaN(),
				MeanNitrogen: math.NaN(),
				RainfallIn:   math.NaN(),
				Lat:          math.NaN(),
				Lon:          math.NaN(),
				Polygonal: geom.Polygon([]geom.Path{{
					{X: x, Y: y}, {X: x + cellSize, Y: y},
					{X: x + cellSize, Y: y + cellSize},
					{X: x, Y: y + cellSize}, {X: x, Y: y}}}),
			}
			g.index.Insert(c)
			g.Cells = append(g.Cells, c)
		}
	}
	return g, nil
}

// bucket returns the row and column of the grid position containing p, and
// whether that position falls within the grid.
func (g *Grid) bucket(p geom.Point) (row, col int, ok bool) {
	if math.IsNaN(p.X) || math.IsNaN(p.Y) {
		return 0, 0, false
	}
	col = int(math.Floor((p.X - g.X0) / g.Dx))
	row = int(math.Floor((p.Y - g.Y0) / g.Dx))
	// Cell bounding boxes are closed, so a point exactly on the grid's
	// outer edge belongs to the outermost cell.
	if col == g.Nx && p.X == g.X0+float64(g.Nx)*g.Dx {
		col--
	}
	if row == g.Ny && p.Y == g.Y0+float64(g.Ny)*g.Dx {
		row--
	}
	ok = col >= 0 && col < g.Nx && row >= 0 && row < g.Ny
	return row, col, ok
}

// key encodes a grid position as a single integer join key.
func (g *Grid) key(row, col int) int { return row*g.Nx + col }

// CellAt returns the cell whose bounds contain p, or nil if p is outside
// the grid or the cell at that position has been filtered away. Points on
// a shared edge between two cells belong to the cell with the greater row
// or column, matching the bucketing used by Assign.
func (g *Grid) CellAt(p geom.Point) *Cell {
	row, col, ok := g.bucket(p)
	if !ok {
		return nil
	}
	for _, cI := range g.index.SearchIntersect(geom.NewBoundsPoint(p)) {
		c := cI.(*Cell)
		if c.Row == row && c.Col == col {
			return c
		}
	}
	return nil
}

// withCells returns a grid with the same geometry and provenance as g but
// containing only the given cells.
func (g *Grid) withCells(cells []*Cell) *Grid {
	o := &Grid{
		Farm:  g.Farm,
		Field: g.Field,
		Units: g.Units,
		Dx:    g.Dx,
		X0:    g.X0,
		Y0:    g.Y0,
		Nx:    g.Nx,
		Ny:    g.Ny,
		SR:    g.SR,
		Cells: cells,
		index: rtree.NewTree(25, 50),
	}
	for _, c := range cells {
		o.index.Insert(c)
	}
	return o
}
