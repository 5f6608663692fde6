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

package ingest

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	log "github.com/sirupsen/logrus"

	"github.com/agrimodel/agrifield"
)

// NitrogenRateColumns lists the attribute columns that different
// application-controller vendors use for the applied nitrogen rate, in
// preference order.
var NitrogenRateColumns = []string{
	"AppliedRate",
	"AppliedRate_1",
	"APPRATE",
	"PRODUCT1RATE",
	"RATE_N",
	"Nrate",
	"RX_N",
	"VRSOURCE1RATE",
	"AMTRATE1",
	"ControlRate",
}

// ErrNoRateColumn is returned by LoadNitrogenPoints when a shapefile has
// none of the recognized nitrogen rate columns.
var ErrNoRateColumn = errors.New("ingest: no recognized nitrogen rate column")

// LoadNitrogenPoints reads one nitrogen application pass from a shapefile,
// returning the applied-rate observations in the shapefile's native
// coordinates along with the shapefile's spatial reference. The rate is
// taken from the first column in NitrogenRateColumns that the file carries;
// if there is none the error wraps ErrNoRateColumn.
func LoadNitrogenPoints(filename string) ([]agrifield.PointObs, *proj.SR, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: opening nitrogen shapefile %s: %v", filename, err)
	}
	defer d.Close()
	sr := decoderSR(d, filename)

	cols := fieldNames(d)
	var rateCol string
	for _, c := range NitrogenRateColumns {
		if hasField(cols, c) {
			rateCol = c
			break
		}
	}
	if rateCol == "" {
		return nil, nil, fmt.Errorf("%w in %s (columns: %s)",
			ErrNoRateColumn, filename, strings.Join(cols, ", "))
	}
	log.WithFields(log.Fields{
		"file":   filename,
		"column": rateCol,
	}).Info("reading nitrogen shapefile")

	var points []agrifield.PointObs
	n := 0
	for {
		g, fields, more := d.DecodeRowFields(rateCol)
		if !more {
			break
		}
		n++
		p, err := pointCoords(g)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: nitrogen shapefile %s row %d: %v", filename, n, err)
		}
		v := parseFloat(fields[rateCol])
		if math.IsNaN(v) {
			continue
		}
		points = append(points, agrifield.PointObs{Point: p, V: v})
	}
	if err := d.Error(); err != nil {
		return nil, nil, fmt.Errorf("ingest: reading nitrogen shapefile %s: %v", filename, err)
	}
	return points, sr, nil
}

// CombinePasses merges nitrogen application passes that may overlap: the
// coordinates of every point are rounded to 0.1 working units to absorb
// floating-point and GPS jitter between passes, and rates applied at the
// same rounded location are summed. Each distinct location contributes one
// point to the result, sorted by coordinates so that combination order
// does not depend on pass order.
func CombinePasses(passes ...[]agrifield.PointObs) []agrifield.PointObs {
	type loc struct{ x, y float64 }
	sums := make(map[loc]float64)
	for _, pass := range passes {
		for _, p := range pass {
			l := loc{x: math.Round(p.X*10) / 10, y: math.Round(p.Y*10) / 10}
			sums[l] += p.V
		}
	}
	out := make([]agrifield.PointObs, 0, len(sums))
	for l, v := range sums {
		out = append(out, agrifield.PointObs{Point: geom.Point{X: l.x, Y: l.y}, V: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	log.WithFields(log.Fields{
		"passes": len(passes),
		"points": len(out),
	}).Info("combined nitrogen passes")
	return out
}
