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
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	testFraction = 0.2
	cvFolds      = 5
)

// A Result holds the evaluation metrics of one fitted model.
type Result struct {
	Model               string
	TrainR2, TestR2     float64
	CVR2                float64 // mean R² over cross-validation folds
	TrainRMSE, TestRMSE float64
}

// FitAndEvaluate fits a model on a seeded 80/20 train/test split of the
// dataset and reports R² and RMSE on both partitions, plus the mean R²
// of 5-fold cross-validation on fresh clones. The same seed always
// produces the same splits, so model comparisons are reproducible.
func FitAndEvaluate(d *Dataset, m Regressor, seed int64) (Result, error) {
	n := d.Rows()
	if n < cvFolds {
		return Result{}, fmt.Errorf("modeling: %d rows is too few to evaluate (need at least %d)", n, cvFolds)
	}
	rng := rand.New(rand.NewSource(seed))

	perm := rng.Perm(n)
	nTest := int(float64(n) * testFraction)
	if nTest == 0 {
		nTest = 1
	}
	testIdx, trainIdx := perm[:nTest], perm[nTest:]
	xTrain, yTrain := d.subset(trainIdx)
	xTest, yTest := d.subset(testIdx)

	if err := m.Fit(xTrain, yTrain); err != nil {
		return Result{}, err
	}
	res := Result{Model: m.Name()}
	res.TrainR2 = stat.RSquaredFrom(m.Predict(xTrain), yTrain, nil)
	res.TrainRMSE = rmse(m.Predict(xTrain), yTrain)
	res.TestR2 = stat.RSquaredFrom(m.Predict(xTest), yTest, nil)
	res.TestRMSE = rmse(m.Predict(xTest), yTest)

	cvPerm := rng.Perm(n)
	r2s := make([]float64, 0, cvFolds)
	for f := 0; f < cvFolds; f++ {
		lo, hi := f*n/cvFolds, (f+1)*n/cvFolds
		val := cvPerm[lo:hi]
		train := append(append([]int{}, cvPerm[:lo]...), cvPerm[hi:]...)
		xTr, yTr := d.subset(train)
		xVal, yVal := d.subset(val)
		fold := m.Clone()
		if err := fold.Fit(xTr, yTr); err != nil {
			return Result{}, fmt.Errorf("modeling: cross-validation fold %d: %v", f, err)
		}
		r2s = append(r2s, stat.RSquaredFrom(fold.Predict(xVal), yVal, nil))
	}
	res.CVR2 = stat.Mean(r2s, nil)
	return res, nil
}

// subset extracts the given rows of the dataset.
func (d *Dataset) subset(idx []int) (*mat.Dense, []float64) {
	_, c := d.X.Dims()
	x := mat.NewDense(len(idx), c, nil)
	y := make([]float64, len(idx))
	for r, i := range idx {
		for j := 0; j < c; j++ {
			x.Set(r, j, d.X.At(i, j))
		}
		y[r] = d.Y[i]
	}
	return x, y
}

func rmse(pred, obs []float64) float64 {
	var sum float64
	for i := range obs {
		d := pred[i] - obs[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(obs)))
}
