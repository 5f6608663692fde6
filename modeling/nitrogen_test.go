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
	"testing"
)

func TestFitQuadraticNitrogen(t *testing.T) {
	// Noise-free quadratic: yield = 50 + N - 0.004*N².
	tbl := newTestTable(
		[]string{"mean_yield_bu_ac", "mean_nitrogen_lb_ac"},
		rowsOf(21, func(i int) []string {
			n := float64(i) * 10
			return []string{floatStr(50 + n - 0.004*n*n), floatStr(n)}
		}),
	)
	b0, b1, b2, err := FitQuadraticNitrogen(tbl)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(b0-50) > 1e-6 || math.Abs(b1-1) > 1e-6 || math.Abs(b2+0.004) > 1e-8 {
		t.Errorf("coefficients: got (%g, %g, %g), want (50, 1, -0.004)", b0, b1, b2)
	}
	nOpt, ok := OptimalNRate(b1, b2)
	if !ok {
		t.Fatal("expected an interior optimum")
	}
	// Vertex of 1*N - 0.004*N² is at N = 125.
	if math.Abs(nOpt-125) > 1e-6 {
		t.Errorf("optimal rate: got %g, want 125", nOpt)
	}
}

func TestOptimalNRateUpwardCurve(t *testing.T) {
	if _, ok := OptimalNRate(1, 0.002); ok {
		t.Error("expected no optimum for an upward-bending curve")
	}
}

func TestFitQuadraticNitrogenMissingColumn(t *testing.T) {
	tbl := newTestTable([]string{"mean_yield_bu_ac"}, [][]string{{"180"}})
	if _, _, _, err := FitQuadraticNitrogen(tbl); err == nil {
		t.Error("expected an error without a nitrogen column")
	}
}

func TestInspectPredictors(t *testing.T) {
	tbl := newTestTable(
		[]string{"mean_yield_bu_ac", "mean_nitrogen_lb_ac", "rainfall_in"},
		[][]string{
			{"180", "100", "20"},
			{"190", "200", "20"},
			{"170", "", "20"},
		},
	)
	sums := InspectPredictors(tbl)
	if len(sums) != 2 {
		t.Fatalf("summaries: got %d, want 2 (nitrogen and rainfall)", len(sums))
	}
	n := sums[0]
	if n.Column != "mean_nitrogen_lb_ac" {
		t.Fatalf("first summary: got %s", n.Column)
	}
	if n.Count != 2 || n.Missing != 1 {
		t.Errorf("nitrogen counts: got %d present %d missing, want 2 and 1", n.Count, n.Missing)
	}
	if n.Mean != 150 || n.Min != 100 || n.Max != 200 {
		t.Errorf("nitrogen stats: mean %g min %g max %g", n.Mean, n.Min, n.Max)
	}
	rain := sums[1]
	if rain.StdDev != 0 {
		t.Errorf("rainfall stddev: got %g, want 0 for a constant column", rain.StdDev)
	}
}
