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

// A Regressor predicts yield from a feature matrix. Fit must be called
// before Predict; Clone returns an unfitted copy with the same
// hyperparameters so that cross-validation folds do not share state.
type Regressor interface {
	Name() string
	Fit(x *mat.Dense, y []float64) error
	Predict(x *mat.Dense) []float64
	Clone() Regressor
}

// leastSquares solves the normal system b = argmin ||a*b - y||. Collinear
// predictors are routine in acre datasets—rainfall is a single value per
// field, and latitude and longitude within one field are nearly collinear—
// so an ill-conditioned system is an advisory, not a failure: the computed
// solution is kept and the condition number is logged.
func leastSquares(name string, a, b mat.Matrix) (*mat.Dense, error) {
	var out mat.Dense
	if err := out.Solve(a, b); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			return nil, fmt.Errorf("modeling: fitting %s: %v", name, err)
		}
		log.WithFields(log.Fields{
			"model": name,
			"cond":  err.Error(),
		}).Debug("ill-conditioned design matrix")
	}
	return &out, nil
}

// intercepted returns the design matrix with a leading column of ones.
func intercepted(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	a := mat.NewDense(r, c+1, nil)
	for i := 0; i < r; i++ {
		a.Set(i, 0, 1)
		for j := 0; j < c; j++ {
			a.Set(i, j+1, x.At(i, j))
		}
	}
	return a
}

// LinearRegression is ordinary least squares with an intercept.
type LinearRegression struct {
	beta []float64 // intercept followed by coefficients
}

func (m *LinearRegression) Name() string { return "LinearRegression" }

func (m *LinearRegression) Fit(x *mat.Dense, y []float64) error {
	a := intercepted(x)
	_, c := a.Dims()
	beta, err := leastSquares(m.Name(), a, mat.NewVecDense(len(y), y))
	if err != nil {
		return err
	}
	m.beta = make([]float64, c)
	for j := 0; j < c; j++ {
		m.beta[j] = beta.At(j, 0)
	}
	return nil
}

func (m *LinearRegression) Predict(x *mat.Dense) []float64 {
	r, c := x.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		v := m.beta[0]
		for j := 0; j < c; j++ {
			v += m.beta[j+1] * x.At(i, j)
		}
		out[i] = v
	}
	return out
}

func (m *LinearRegression) Clone() Regressor { return &LinearRegression{} }

// Intercept returns the fitted intercept.
func (m *LinearRegression) Intercept() float64 { return m.beta[0] }

// Coefficients returns the fitted feature coefficients.
func (m *LinearRegression) Coefficients() []float64 { return m.beta[1:] }

// Ridge is L2-regularized least squares. The intercept is not penalized.
type Ridge struct {
	Alpha float64

	beta []float64
}

func (m *Ridge) Name() string { return fmt.Sprintf("Ridge(alpha=%g)", m.Alpha) }

func (m *Ridge) Fit(x *mat.Dense, y []float64) error {
	a := intercepted(x)
	_, c := a.Dims()
	var ata mat.Dense
	ata.Mul(a.T(), a)
	for j := 1; j < c; j++ { // leave the intercept unpenalized
		ata.Set(j, j, ata.At(j, j)+m.Alpha)
	}
	var aty mat.Dense
	aty.Mul(a.T(), mat.NewVecDense(len(y), y))
	beta, err := leastSquares(m.Name(), &ata, &aty)
	if err != nil {
		return err
	}
	m.beta = make([]float64, c)
	for j := 0; j < c; j++ {
		m.beta[j] = beta.At(j, 0)
	}
	return nil
}

func (m *Ridge) Predict(x *mat.Dense) []float64 {
	return (&LinearRegression{beta: m.beta}).Predict(x)
}

func (m *Ridge) Clone() Regressor { return &Ridge{Alpha: m.Alpha} }

// Lasso is L1-regularized least squares, fit by cyclic coordinate descent
// on centered data. The intercept is recovered from the column means and
// is not penalized.
type Lasso struct {
	Alpha   float64
	MaxIter int     // default 1000
	Tol     float64 // default 1e-6

	intercept float64
	w         []float64
}

func (m *Lasso) Name() string { return fmt.Sprintf("Lasso(alpha=%g)", m.Alpha) }

func (m *Lasso) Fit(x *mat.Dense, y []float64) error {
	n, p := x.Dims()
	if n == 0 {
		return fmt.Errorf("modeling: fitting %s: no observations", m.Name())
	}
	maxIter := m.MaxIter
	if maxIter == 0 {
		maxIter = 1000
	}
	tol := m.Tol
	if tol == 0 {
		tol = 1e-6
	}

	xm := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			xm[j] += x.At(i, j)
		}
		xm[j] /= float64(n)
	}
	var ym float64
	for _, v := range y {
		ym += v
	}
	ym /= float64(n)

	xc := mat.NewDense(n, p, nil)
	z := make([]float64, p) // per-column sums of squares
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			v := x.At(i, j) - xm[j]
			xc.Set(i, j, v)
			z[j] += v * v
		}
	}

	w := make([]float64, p)
	resid := make([]float64, n)
	for i := 0; i < n; i++ {
		resid[i] = y[i] - ym
	}
	thresh := m.Alpha * float64(n)
	for iter := 0; iter < maxIter; iter++ {
		var maxDelta float64
		for j := 0; j < p; j++ {
			if z[j] == 0 {
				continue
			}
			rho := w[j] * z[j]
			for i := 0; i < n; i++ {
				rho += xc.At(i, j) * resid[i]
			}
			wNew := softThreshold(rho, thresh) / z[j]
			if d := wNew - w[j]; d != 0 {
				for i := 0; i < n; i++ {
					resid[i] -= d * xc.At(i, j)
				}
				if math.Abs(d) > maxDelta {
					maxDelta = math.Abs(d)
				}
				w[j] = wNew
			}
		}
		if maxDelta < tol {
			break
		}
	}

	m.w = w
	m.intercept = ym
	for j := 0; j < p; j++ {
		m.intercept -= w[j] * xm[j]
	}
	return nil
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}

func (m *Lasso) Predict(x *mat.Dense) []float64 {
	r, c := x.Dims()
	out := make([]float64, r)
	for i := 0; i < r; i++ {
		v := m.intercept
		for j := 0; j < c; j++ {
			v += m.w[j] * x.At(i, j)
		}
		out[i] = v
	}
	return out
}

func (m *Lasso) Clone() Regressor {
	return &Lasso{Alpha: m.Alpha, MaxIter: m.MaxIter, Tol: m.Tol}
}

// KNN predicts the mean yield of the K nearest training acres in feature
// space.
type KNN struct {
	K int // default 5

	x *mat.Dense
	y []float64
}

func (m *KNN) Name() string { return fmt.Sprintf("KNN(k=%d)", m.k()) }

func (m *KNN) k() int {
	if m.K == 0 {
		return 5
	}
	return m.K
}

func (m *KNN) Fit(x *mat.Dense, y []float64) error {
	if len(y) == 0 {
		return fmt.Errorf("modeling: fitting %s: no observations", m.Name())
	}
	m.x = mat.DenseCopyOf(x)
	m.y = append([]float64{}, y...)
	return nil
}

func (m *KNN) Predict(x *mat.Dense) []float64 {
	r, c := x.Dims()
	n, _ := m.x.Dims()
	k := m.k()
	if k > n {
		k = n
	}
	out := make([]float64, r)
	dists := make([]struct {
		d float64
		i int
	}, n)
	for i := 0; i < r; i++ {
		for t := 0; t < n; t++ {
			var d float64
			for j := 0; j < c; j++ {
				diff := x.At(i, j) - m.x.At(t, j)
				d += diff * diff
			}
			dists[t].d = d
			dists[t].i = t
		}
		sort.Slice(dists, func(a, b int) bool { return dists[a].d < dists[b].d })
		var sum float64
		for t := 0; t < k; t++ {
			sum += m.y[dists[t].i]
		}
		out[i] = sum / float64(k)
	}
	return out
}

func (m *KNN) Clone() Regressor { return &KNN{K: m.K} }
