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

package agriutil

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/agrimodel/agrifield"
	"github.com/agrimodel/agrifield/covariate"
	"github.com/agrimodel/agrifield/ingest"
	"github.com/agrimodel/agrifield/modeling"
	"github.com/ctessum/geom/proj"
	log "github.com/sirupsen/logrus"
)

// Prepare runs the data preparation pipeline for one field: it loads and
// cleans the yield points, builds the acre grid, removes phantom acres,
// enriches the surviving acres with rainfall, geographic coordinates, and
// soil attributes, merges nitrogen, and writes the dataset to
// spec.OutputFile. Rainfall and soil enrichment degrade gracefully: a
// failed covariate lookup leaves the affected attributes unset and the
// pipeline continues. If rain or soil is nil, a default client is used.
func Prepare(ctx context.Context, spec *FieldSpec, rain *covariate.RainfallClient, soil *covariate.SoilClient) (*agrifield.Grid, error) {
	if rain == nil {
		rain = &covariate.RainfallClient{}
	}
	if soil == nil {
		soil = &covariate.SoilClient{}
	}

	workSR, err := proj.Parse(spec.GridProj)
	if err != nil {
		return nil, fmt.Errorf("agrifield: parsing grid projection: %v", err)
	}

	log.WithFields(log.Fields{
		"farm":  spec.FarmName,
		"field": spec.FieldName,
		"file":  spec.HarvestShapefile,
	}).Info("loading yield points")
	points, srcSR, err := ingest.LoadYieldPoints(spec.HarvestShapefile, ingest.DefaultCleanConfig())
	if err != nil {
		return nil, err
	}
	points, err = ingest.ReprojectPoints(points, srcSR, workSR)
	if err != nil {
		return nil, err
	}

	grid, err := agrifield.NewGrid(points, spec.CellSize, workSR,
		spec.FarmName, spec.FieldName, spec.Units)
	if err != nil {
		return nil, err
	}
	if unassigned := grid.Assign(points); unassigned > 0 {
		log.WithField("points", unassigned).Warn("yield points fell outside the grid")
	}
	grid = grid.DropEmpty().FilterSparse(spec.MinDensityFraction)
	log.WithFields(log.Fields{
		"cells":    len(grid.Cells),
		"columns":  grid.Nx,
		"rows":     grid.Ny,
		"cellSize": grid.Dx,
	}).Info("built acre grid")

	addRainfall(ctx, spec, rain, grid)

	if err := grid.AddLatLon(); err != nil {
		return nil, err
	}

	if err := soil.AnnotateGrid(ctx, grid); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		log.WithError(err).Warn("soil annotation is incomplete")
	}

	if err := mergeNitrogen(spec, workSR, grid); err != nil {
		return nil, err
	}

	o, err := agrifield.NewOutputter(spec.OutputFile, spec.OutputVariables, nil)
	if err != nil {
		return nil, err
	}
	o.Proj = spec.GridProj
	if err := o.Output(grid); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"file": spec.OutputFile,
		"rows": len(grid.Cells),
	}).Info("saved acre-level dataset")
	return grid, nil
}

// addRainfall attaches the field's cumulative growing-season rainfall to
// every cell. The whole field gets a single value, looked up at the field
// centroid. Missing season dates or a failed lookup leave the rainfall
// attribute unset.
func addRainfall(ctx context.Context, spec *FieldSpec, rain *covariate.RainfallClient, grid *agrifield.Grid) {
	if spec.SeasonStart == "" || spec.SeasonEnd == "" {
		log.Info("no season dates provided; skipping rainfall")
		return
	}
	lat, lon, err := ingest.FieldCentroidLatLon(spec.HarvestShapefile)
	if err != nil {
		log.WithError(err).Warn("could not locate the field centroid; skipping rainfall")
		return
	}
	in, err := rain.SeasonRainfallIn(ctx, lat, lon, spec.SeasonStart, spec.SeasonEnd)
	if err != nil {
		log.WithError(err).Warn("rainfall lookup failed; continuing without rainfall")
		return
	}
	log.WithFields(log.Fields{
		"start":    spec.SeasonStart,
		"end":      spec.SeasonEnd,
		"rainfall": in,
	}).Info("adding growing-season rainfall")
	for _, c := range grid.Cells {
		c.RainfallIn = in
	}
}

// mergeNitrogen loads each as-applied nitrogen shapefile, sums overlapping
// application passes per location, and merges the result onto the grid.
// Files without a recognized rate column are skipped with a warning.
func mergeNitrogen(spec *FieldSpec, workSR *proj.SR, grid *agrifield.Grid) error {
	if len(spec.NitrogenShapefiles) == 0 {
		log.Info("no nitrogen shapefiles provided; skipping nitrogen merge")
		return nil
	}
	var passes [][]agrifield.PointObs
	for _, fname := range spec.NitrogenShapefiles {
		pts, srcSR, err := ingest.LoadNitrogenPoints(fname)
		if err != nil {
			if errors.Is(err, ingest.ErrNoRateColumn) {
				log.WithField("file", fname).Warn("no nitrogen rate column; skipping file")
				continue
			}
			return err
		}
		pts, err = ingest.ReprojectPoints(pts, srcSR, workSR)
		if err != nil {
			return err
		}
		passes = append(passes, pts)
	}
	if len(passes) == 0 {
		return nil
	}
	combined := ingest.CombinePasses(passes...)
	grid.MergeNitrogen(combined)
	log.WithFields(log.Fields{
		"files":  len(passes),
		"points": len(combined),
	}).Info("merged nitrogen applications")
	return nil
}

// Model compares the registered regression models on a prepared dataset
// and writes a report to w. When the dataset includes nitrogen rates, the
// report also gives the agronomic optimum rate implied by a quadratic
// yield-response fit. If comparisonFile is non-empty, the comparison table
// is additionally written there as CSV.
func Model(dataset string, useCoords bool, seed int64, comparisonFile string, w io.Writer) error {
	tbl, err := modeling.LoadTable(dataset)
	if err != nil {
		return err
	}
	results, err := modeling.RunComparison(tbl, useCoords, seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Model comparison (use_coords=%v):\n", useCoords)
	fmt.Fprintf(w, "%-25s %10s %10s %10s %12s %12s\n",
		"model", "train R2", "test R2", "CV R2", "train RMSE", "test RMSE")
	for _, r := range results {
		fmt.Fprintf(w, "%-25s %10.4f %10.4f %10.4f %12.4f %12.4f\n",
			r.Model, r.TrainR2, r.TestR2, r.CVR2, r.TrainRMSE, r.TestRMSE)
	}
	if comparisonFile != "" {
		if err := writeComparisonCSV(comparisonFile, results); err != nil {
			return err
		}
		fmt.Fprintf(w, "Saved results to %s\n", comparisonFile)
	}
	reportOptimalN(tbl, w)
	return nil
}

func writeComparisonCSV(fname string, results []modeling.Result) error {
	f, err := os.Create(fname)
	if err != nil {
		return fmt.Errorf("agrifield: creating comparison file: %v", err)
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	cw.Write([]string{"model", "train_r2", "test_r2", "cv_r2", "train_rmse", "test_rmse"})
	for _, r := range results {
		cw.Write([]string{
			r.Model,
			strconv.FormatFloat(r.TrainR2, 'g', -1, 64),
			strconv.FormatFloat(r.TestR2, 'g', -1, 64),
			strconv.FormatFloat(r.CVR2, 'g', -1, 64),
			strconv.FormatFloat(r.TrainRMSE, 'g', -1, 64),
			strconv.FormatFloat(r.TestRMSE, 'g', -1, 64),
		})
	}
	cw.Flush()
	return cw.Error()
}

// reportOptimalN prints the quadratic nitrogen-response fit when the
// dataset supports one.
func reportOptimalN(tbl *modeling.Table, w io.Writer) {
	b0, b1, b2, err := modeling.FitQuadraticNitrogen(tbl)
	if err != nil {
		log.WithError(err).Info("skipping the nitrogen-response fit")
		return
	}
	fmt.Fprintf(w, "Quadratic nitrogen response: yield = %.3f + %.4f*N + %.6f*N^2\n", b0, b1, b2)
	if nOpt, ok := modeling.OptimalNRate(b1, b2); ok {
		fmt.Fprintf(w, "Estimated agronomic optimum nitrogen rate: %.1f lb/ac\n", nOpt)
	} else {
		fmt.Fprintln(w, "The fitted response curve has no interior optimum.")
	}
}

// Inspect writes count, missing-value count, and distribution summaries
// for each predictor column in a prepared dataset to w.
func Inspect(dataset string, w io.Writer) error {
	tbl, err := modeling.LoadTable(dataset)
	if err != nil {
		return err
	}
	sums := modeling.InspectPredictors(tbl)
	if len(sums) == 0 {
		fmt.Fprintln(w, "The dataset contains no recognized predictor columns.")
		return nil
	}
	for _, s := range sums {
		fmt.Fprintf(w, "======== %s ========\n", s.Column)
		fmt.Fprintf(w, "  count:   %d\n", s.Count)
		fmt.Fprintf(w, "  missing: %d\n", s.Missing)
		fmt.Fprintf(w, "  mean:    %g\n", s.Mean)
		fmt.Fprintf(w, "  std:     %g\n", s.StdDev)
		fmt.Fprintf(w, "  min:     %g\n", s.Min)
		fmt.Fprintf(w, "  max:     %g\n", s.Max)
	}
	return nil
}
