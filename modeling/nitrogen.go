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
	"fmt"
	"math"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// FitQuadraticNitrogen fits the agronomic nitrogen response curve
// yield = b0 + b1*N + b2*N² over acres with both yield and nitrogen data.
func FitQuadraticNitrogen(t *Table) (b0, b1, b2 float64, err error) {
	if !t.HasColumn(yieldCol) || !t.HasColumn(nitrogenCol) {
		return 0, 0, 0, fmt.Errorf("modeling: dataset is missing %s or %s", yieldCol, nitrogenCol)
	}
	nCol := t.Float(nitrogenCol)
	yCol := t.Float(yieldCol)
	var n, y []float64
	for i := range nCol {
		if math.IsNaN(nCol[i]) || math.IsNaN(yCol[i]) {
			continue
		}
		n = append(n, nCol[i])
		y = append(y, yCol[i])
	}
	if len(n) < 3 {
		return 0, 0, 0, fmt.Errorf("modeling: only %d acres with both yield and nitrogen", len(n))
	}
	x := mat.NewDense(len(n), 2, nil)
	for i, v := range n {
		x.Set(i, 0, v)
		x.Set(i, 1, v*v)
	}
	m := &LinearRegression{}
	if err := m.Fit(x, y); err != nil {
		return 0, 0, 0, err
	}
	b0 = m.Intercept()
	b1 = m.Coefficients()[0]
	b2 = m.Coefficients()[1]
	log.WithFields(log.Fields{
		"b0": b0,
		"b1": b1,
		"b2": b2,
	}).Info("fitted quadratic nitrogen response")
	return b0, b1, b2, nil
}

// OptimalNRate returns the nitrogen rate at the vertex of the fitted
// response curve. ok is false when the parabola does not bend downward,
// in which case the data show no interior optimum.
func OptimalNRate(b1, b2 float64) (nOpt float64, ok bool) {
	if b2 >= 0 {
		log.Warn("nitrogen response curve does not bend downward; no interior optimum")
		return math.NaN(), false
	}
	return -b1 / (2 * b2), true
}
