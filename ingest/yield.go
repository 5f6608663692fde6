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

// Package ingest loads yield-monitor and nitrogen-application shapefiles
// and prepares their point observations for gridding.
package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	log "github.com/sirupsen/logrus"

	"github.com/agrimodel/agrifield"
)

// Attribute columns of John Deere yield-monitor shapefiles.
const (
	yieldCol     = "VRYIELDVOL"
	speedCol     = "VEHICLSPEED"
	dryMatterCol = "DRYMATTER"
	moistureCol  = "Moisture"
)

// CleanConfig holds the thresholds used to discard unreliable yield-monitor
// readings.
type CleanConfig struct {
	// YieldMin and YieldMax bound the plausible yield range [bu/ac];
	// readings outside it are sensor artifacts.
	YieldMin, YieldMax float64

	// SpeedThreshold is the minimum vehicle speed [m/s]. Readings taken
	// while the harvester is (nearly) stopped double-count grain.
	SpeedThreshold float64

	// DryMatterMax flags dry-matter sensor failures.
	DryMatterMax float64

	// MoistureMax is the maximum plausible grain moisture percentage.
	MoistureMax float64
}

// DefaultCleanConfig returns the standard cleaning thresholds for corn
// yield data.
func DefaultCleanConfig() CleanConfig {
	return CleanConfig{
		YieldMin:       50,
		YieldMax:       350,
		SpeedThreshold: 0.2235, // 0.5 mph
		DryMatterMax:   100,
		MoistureMax:    40,
	}
}

// LoadYieldPoints reads a yield-monitor shapefile and returns the cleaned
// yield observations in the shapefile's native coordinates, along with the
// shapefile's spatial reference. Files without a .prj sidecar are assumed
// to hold WGS84 longitude/latitude coordinates.
func LoadYieldPoints(filename string, cfg CleanConfig) ([]agrifield.PointObs, *proj.SR, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("ingest: opening yield shapefile %s: %v", filename, err)
	}
	defer d.Close()
	sr := decoderSR(d, filename)

	cols := fieldNames(d)
	log.WithFields(log.Fields{
		"file":    filename,
		"columns": cols,
	}).Info("reading yield shapefile")
	if !hasField(cols, yieldCol) {
		return nil, nil, fmt.Errorf("ingest: yield shapefile %s has no %s column (columns: %s)",
			filename, yieldCol, strings.Join(cols, ", "))
	}
	want := []string{yieldCol}
	for _, c := range []string{speedCol, dryMatterCol, moistureCol} {
		if hasField(cols, c) {
			want = append(want, c)
		}
	}

	var points []agrifield.PointObs
	total := 0
	for {
		g, fields, more := d.DecodeRowFields(want...)
		if !more {
			break
		}
		total++
		p, err := pointCoords(g)
		if err != nil {
			return nil, nil, fmt.Errorf("ingest: yield shapefile %s row %d: %v", filename, total, err)
		}
		v := parseFloat(fields[yieldCol])
		if !keepYieldRow(v, fields, cfg) {
			continue
		}
		points = append(points, agrifield.PointObs{Point: p, V: v})
	}
	if err := d.Error(); err != nil {
		return nil, nil, fmt.Errorf("ingest: reading yield shapefile %s: %v", filename, err)
	}
	log.WithFields(log.Fields{
		"file": filename,
		"rows": total,
		"kept": len(points),
	}).Info("cleaned yield points")
	return points, sr, nil
}

// keepYieldRow reports whether one yield-monitor reading passes the
// cleaning thresholds. The speed, dry-matter, and moisture filters only
// apply when the shapefile carries those columns.
func keepYieldRow(v float64, fields map[string]string, cfg CleanConfig) bool {
	if !(v > 0) || v < cfg.YieldMin || v > cfg.YieldMax {
		return false
	}
	if s, ok := fields[speedCol]; ok && !(parseFloat(s) > cfg.SpeedThreshold) {
		return false
	}
	if s, ok := fields[dryMatterCol]; ok && !(parseFloat(s) < cfg.DryMatterMax) {
		return false
	}
	if s, ok := fields[moistureCol]; ok && !(parseFloat(s) <= cfg.MoistureMax) {
		return false
	}
	return true
}

// ReprojectPoints transforms points from one spatial reference to another,
// for example from a shapefile's native longitude/latitude into the
// projected working coordinate system used for gridding.
func ReprojectPoints(points []agrifield.PointObs, from, to *proj.SR) ([]agrifield.PointObs, error) {
	ct, err := from.NewTransform(to)
	if err != nil {
		return nil, fmt.Errorf("ingest: creating coordinate transform: %v", err)
	}
	out := make([]agrifield.PointObs, len(points))
	for i, p := range points {
		x, y, err := ct(p.X, p.Y)
		if err != nil {
			return nil, fmt.Errorf("ingest: reprojecting point %d: %v", i, err)
		}
		out[i] = agrifield.PointObs{Point: geom.Point{X: x, Y: y}, V: p.V}
	}
	return out, nil
}

// FieldCentroidLatLon returns the WGS84 latitude and longitude of the
// centroid of all points in a shapefile. The single rainfall query for a
// field is made at this location.
func FieldCentroidLatLon(filename string) (lat, lon float64, err error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: opening shapefile %s: %v", filename, err)
	}
	defer d.Close()
	sr := decoderSR(d, filename)

	var sumX, sumY float64
	n := 0
	for {
		g, _, more := d.DecodeRowFields()
		if !more {
			break
		}
		p, err := pointCoords(g)
		if err != nil {
			return 0, 0, fmt.Errorf("ingest: shapefile %s row %d: %v", filename, n+1, err)
		}
		sumX += p.X
		sumY += p.Y
		n++
	}
	if err := d.Error(); err != nil {
		return 0, 0, fmt.Errorf("ingest: reading shapefile %s: %v", filename, err)
	}
	if n == 0 {
		return 0, 0, fmt.Errorf("ingest: shapefile %s has no rows", filename)
	}

	longlat, err := proj.Parse(agrifield.LongLatProj)
	if err != nil {
		panic(err)
	}
	ct, err := sr.NewTransform(longlat)
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: creating centroid transform: %v", err)
	}
	lon, lat, err = ct(sumX/float64(n), sumY/float64(n))
	if err != nil {
		return 0, 0, fmt.Errorf("ingest: reprojecting centroid: %v", err)
	}
	log.WithFields(log.Fields{"lat": lat, "lon": lon}).Info("field centroid")
	return lat, lon, nil
}

// decoderSR returns the spatial reference of a shapefile, falling back to
// WGS84 longitude/latitude when there is no readable .prj sidecar.
func decoderSR(d *shp.Decoder, filename string) *proj.SR {
	sr, err := d.SR()
	if err != nil {
		log.WithFields(log.Fields{
			"file": filename,
			"err":  err,
		}).Warn("no usable projection info; assuming WGS84 longitude/latitude")
		sr, err = proj.Parse(agrifield.LongLatProj)
		if err != nil {
			panic(err)
		}
	}
	return sr
}

// fieldNames lists the attribute columns of a shapefile.
func fieldNames(d *shp.Decoder) []string {
	fields := d.Reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.String()
	}
	return names
}

func hasField(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// pointCoords extracts planar coordinates from a shapefile geometry.
// Yield monitors and application controllers log point records; anything
// else in the file is a format error.
func pointCoords(g geom.Geom) (geom.Point, error) {
	switch g := g.(type) {
	case geom.Point:
		return g, nil
	case *geom.Point:
		return *g, nil
	default:
		return geom.Point{}, fmt.Errorf("expected point geometry but got %T", g)
	}
}

// parseFloat converts a shapefile attribute value to a number. Empty and
// placeholder values decode as NaN so that the cleaning thresholds discard
// the row.
func parseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "*") {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
