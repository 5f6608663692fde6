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
	"sort"

	log "github.com/sirupsen/logrus"
)

// Registry returns the models to evaluate in a comparison run, unfitted.
func Registry() []Regressor {
	return []Regressor{
		&LinearRegression{},
		&Ridge{Alpha: 1.0},
		&Lasso{Alpha: 0.1},
		&KNN{K: 5},
	}
}

// quadBaselineName labels the quadratic nitrogen-response baseline in
// comparison results.
const quadBaselineName = "Quadratic_N+Soil"

// RunComparison evaluates every registered model on the standard feature
// matrix, plus a quadratic nitrogen-response baseline, all with the same
// split seed. Results are sorted by test R², best first. The baseline is
// skipped with a warning when the dataset has no nitrogen column.
func RunComparison(t *Table, useCoords bool, seed int64) ([]Result, error) {
	d, err := FeatureMatrix(t, useCoords)
	if err != nil {
		return nil, err
	}

	var results []Result
	if dq, err := QuadraticNSoilMatrix(t); err != nil {
		log.WithFields(log.Fields{"err": err}).Warn("skipping quadratic nitrogen baseline")
	} else {
		res, err := FitAndEvaluate(dq, &LinearRegression{}, seed)
		if err != nil {
			return nil, err
		}
		res.Model = quadBaselineName
		results = append(results, res)
	}

	for _, m := range Registry() {
		res, err := FitAndEvaluate(d, m, seed)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].TestR2 > results[j].TestR2 })
	for _, res := range results {
		log.WithFields(log.Fields{
			"model":   res.Model,
			"test_r2": res.TestR2,
			"cv_r2":   res.CVR2,
		}).Info("model evaluated")
	}
	return results, nil
}
