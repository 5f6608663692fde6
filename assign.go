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

// Assign buckets yield observations into the grid's cells and stores the
// per-cell mean and count. A point lands in the cell whose position is
// floor((x-X0)/Dx), floor((y-Y0)/Dx) against the grid's own recorded
// origin. Cells that receive no points keep NPoints == 0 and a NaN mean.
// The sum of NPoints over all cells equals the number of in-range input
// points; the number of points falling outside the grid is returned so
// callers can flag a geometry mismatch between the grid and the point set.
func (g *Grid) Assign(points []PointObs) (unassigned int) {
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, p := range points {
		row, col, ok := g.bucket(p.Point)
		if !ok {
			unassigned++
			continue
		}
		k := g.key(row, col)
		sums[k] += p.V
		counts[k]++
	}
	for _, c := range g.Cells {
		k := g.key(c.Row, c.Col)
		if n := counts[k]; n > 0 {
			c.MeanYield = sums[k] / float64(n)
			c.NPoints = n
		} else {
			c.MeanYield = math.NaN()
			c.NPoints = 0
		}
	}
	return unassigned
}
