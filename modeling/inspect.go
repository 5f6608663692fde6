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
	"math"

	"github.com/GaryBoone/GoStats/stats"
)

// PredictorColumns lists the numeric predictor columns summarized by
// InspectPredictors, in reporting order.
var PredictorColumns = []string{
	nitrogenCol,
	"mean_irrigation_in",
	"rainfall_in",
	"lat",
	"lon",
}

// A PredictorSummary describes the distribution of one predictor column.
type PredictorSummary struct {
	Column         string
	Count, Missing int
	Mean, StdDev   float64
	Min, Max       float64
}

// InspectPredictors summarizes every predictor column the dataset
// carries, counting missing values separately.
func InspectPredictors(t *Table) []PredictorSummary {
	var out []PredictorSummary
	for _, col := range PredictorColumns {
		if !t.HasColumn(col) {
			continue
		}
		var s stats.Stats
		missing := 0
		for _, v := range t.Float(col) {
			if math.IsNaN(v) {
				missing++
				continue
			}
			s.Update(v)
		}
		sum := PredictorSummary{
			Column:  col,
			Count:   s.Count(),
			Missing: missing,
			Mean:    math.NaN(),
			StdDev:  math.NaN(),
			Min:     math.NaN(),
			Max:     math.NaN(),
		}
		if s.Count() > 0 {
			sum.Mean = s.Mean()
			sum.Min = s.Min()
			sum.Max = s.Max()
		}
		if s.Count() > 1 {
			sum.StdDev = s.SampleStandardDeviation()
		}
		out = append(out, sum)
	}
	return out
}
