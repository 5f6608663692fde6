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

import "math"

// MergeLayer aggregates a secondary observation layer—for example nitrogen
// application points—onto the grid using the same bucketing scheme as
// Assign, keyed against the geometry recorded in the grid itself. It
// returns the per-cell mean of the layer values, aligned with g.Cells;
// cells that receive no layer points get NaN. Points outside the grid are
// ignored.
func (g *Grid) MergeLayer(points []PointObs) []float64 {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, p := range points {
		row, col, ok := g.bucket(p.Point)
		if !ok {
			continue
		}
		k := g.key(row, col)
		sums[k] += p.V
		counts[k]++
	}
	vals := make([]float64, len(g.Cells))
	for i, c := range g.Cells {
		k := g.key(c.Row, c.Col)
		if n := counts[k]; n > 0 {
			vals[i] = sums[k] / float64(n)
		} else {
			vals[i] = math.NaN()
		}
	}
	return vals
}

// MergeNitrogen stores the per-cell mean nitrogen application rate computed
// by MergeLayer onto the grid's cells.
func (g *Grid) MergeNitrogen(points []PointObs) {
	for i, v := range g.MergeLayer(points) {
		g.Cells[i].MeanNitrogen = v
	}
}
