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
	"sort"

	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Column names of the prepared acre-level dataset used in modeling.
const (
	yieldCol    = "mean_yield_bu_ac"
	nitrogenCol = "mean_nitrogen_lb_ac"
)

// numericPredictors lists the candidate numeric predictor columns in the
// order they enter the feature matrix when present.
var numericPredictors = []string{nitrogenCol, "mean_irrigation_in", "rainfall_in"}

// coordPredictors are the location predictors, included only when the
// caller wants coordinates in the model.
var coordPredictors = []string{"lat", "lon"}

// soilCol is dummy-coded into one indicator column per soil type.
const soilCol = "soil_musym"

// soilUnknown stands in for acres with no soil survey information when
// dummy-coding.
const soilUnknown = "UNK"

// A Dataset is a model-ready feature matrix and target vector: no missing
// values, soil types dummy-coded, one row per usable acre.
type Dataset struct {
	Names []string // feature column names
	X     *mat.Dense
	Y     []float64
}

// Rows returns the number of observations.
func (d *Dataset) Rows() int { r, _ := d.X.Dims(); return r }

// FeatureMatrix builds the standard feature matrix and yield target from
// an acre dataset: the numeric predictors the dataset carries, optionally
// latitude/longitude, and dummy-coded soil type. Acres without a yield
// value are dropped, predictor columns with no data at all are dropped,
// and remaining acres with any missing predictor are dropped.
func FeatureMatrix(t *Table, useCoords bool) (*Dataset, error) {
	if !t.HasColumn(yieldCol) {
		return nil, fmt.Errorf("modeling: dataset has no %s column", yieldCol)
	}
	cand := append([]string{}, numericPredictors...)
	if useCoords {
		cand = append(cand, coordPredictors...)
	}
	var names []string
	var cols [][]float64
	for _, name := range cand {
		if !t.HasColumn(name) {
			continue
		}
		col := t.Float(name)
		if allNaN(col) {
			log.WithFields(log.Fields{"column": name}).Info("dropping all-missing predictor")
			continue
		}
		names = append(names, name)
		cols = append(cols, col)
	}
	if t.HasColumn(soilCol) {
		soilNames, soilCols := soilDummies(t.Strings(soilCol))
		names = append(names, soilNames...)
		cols = append(cols, soilCols...)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("modeling: dataset has no usable predictors")
	}
	return assemble(names, cols, t.Float(yieldCol))
}

// QuadraticNSoilMatrix builds the quadratic nitrogen-response baseline
// matrix: N, N², and dummy-coded soil type.
func QuadraticNSoilMatrix(t *Table) (*Dataset, error) {
	if !t.HasColumn(yieldCol) || !t.HasColumn(nitrogenCol) {
		return nil, fmt.Errorf("modeling: dataset is missing %s or %s", yieldCol, nitrogenCol)
	}
	n := t.Float(nitrogenCol)
	n2 := make([]float64, len(n))
	for i, v := range n {
		n2[i] = v * v
	}
	names := []string{"N", "N2"}
	cols := [][]float64{n, n2}
	if t.HasColumn(soilCol) {
		soilNames, soilCols := soilDummies(t.Strings(soilCol))
		names = append(names, soilNames...)
		cols = append(cols, soilCols...)
	}
	return assemble(names, cols, t.Float(yieldCol))
}

// soilDummies dummy-codes soil types into indicator columns, one per
// distinct type except the first (alphabetically), which becomes the
// baseline. Acres without soil information get the placeholder type.
func soilDummies(soil []string) (names []string, cols [][]float64) {
	levels := make(map[string]bool)
	for i, s := range soil {
		if s == "" {
			soil[i] = soilUnknown
			s = soilUnknown
		}
		levels[s] = true
	}
	distinct := make([]string, 0, len(levels))
	for s := range levels {
		distinct = append(distinct, s)
	}
	sort.Strings(distinct)
	for _, level := range distinct[1:] { // drop first as baseline
		col := make([]float64, len(soil))
		for i, s := range soil {
			if s == level {
				col[i] = 1
			}
		}
		names = append(names, soilCol+"_"+level)
		cols = append(cols, col)
	}
	return names, cols
}

// assemble packs feature columns and a target into a Dataset, dropping
// rows where the target or any feature is missing.
func assemble(names []string, cols [][]float64, y []float64) (*Dataset, error) {
	var keep []int
rows:
	for i := range y {
		if math.IsNaN(y[i]) {
			continue
		}
		for _, col := range cols {
			if math.IsNaN(col[i]) {
				continue rows
			}
		}
		keep = append(keep, i)
	}
	if len(keep) == 0 {
		return nil, fmt.Errorf("modeling: no rows with complete predictors and yield")
	}
	x := mat.NewDense(len(keep), len(cols), nil)
	yOut := make([]float64, len(keep))
	for r, i := range keep {
		for c, col := range cols {
			x.Set(r, c, col[i])
		}
		yOut[r] = y[i]
	}
	log.WithFields(log.Fields{
		"rows":     len(keep),
		"dropped":  len(y) - len(keep),
		"features": len(names),
	}).Info("built feature matrix")
	return &Dataset{Names: names, X: x, Y: yOut}, nil
}

func allNaN(v []float64) bool {
	for _, x := range v {
		if !math.IsNaN(x) {
			return false
		}
	}
	return true
}
