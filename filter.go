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

import "sort"

// DefaultMinDensityFraction is the default phantom-acre cutoff: cells with
// fewer yield points than this fraction of the median cell count are
// presumed to be field-boundary artifacts.
const DefaultMinDensityFraction = 0.15

// FilterSparse returns a grid without sparsely-sampled "phantom" cells.
// The cutoff is the median per-cell point count multiplied by
// minDensityFraction; cells whose count is at least the cutoff are kept.
// Edge cells of an irregular field boundary receive few passes from the
// harvesting vehicle and are outliers, not representative acres. An empty
// grid is returned unchanged, and a second application is a no-op because
// the surviving cells already satisfy the cutoff.
func (g *Grid) FilterSparse(minDensityFraction float64) *Grid {
	if len(g.Cells) == 0 {
		return g
	}
	counts := make([]float64, len(g.Cells))
	for i, c := range g.Cells {
		counts[i] = float64(c.NPoints)
	}
	sort.Float64s(counts)
	cutoff := median(counts) * minDensityFraction

	keep := make([]*Cell, 0, len(g.Cells))
	for _, c := range g.Cells {
		if float64(c.NPoints) >= cutoff {
			keep = append(keep, c)
		}
	}
	return g.withCells(keep)
}

// median returns the linearly interpolated median of sorted: the middle
// value for an odd count, the mean of the two middle values for an even
// count.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// DropEmpty returns a grid containing only the cells that received at least
// one yield point.
func (g *Grid) DropEmpty() *Grid {
	keep := make([]*Cell, 0, len(g.Cells))
	for _, c := range g.Cells {
		if c.NPoints > 0 {
			keep = append(keep, c)
		}
	}
	return g.withCells(keep)
}
