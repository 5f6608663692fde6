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

package agrifield

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/tealeg/xlsx"
)

// BaseVars lists the per-cell output variables in their contractual column
// order. Downstream modeling code matches columns by these fixed names.
var BaseVars = []string{
	"farm", "field", "acre_id",
	"x_min", "x_max", "y_min", "y_max", "x_center", "y_center", "units",
	"mean_yield_bu_ac", "n_points", "mean_nitrogen_lb_ac",
	"rainfall_in", "lat", "lon", "soil_musym", "soil_muname",
}

// stringVars marks the base variables that hold text rather than numbers.
var stringVars = map[string]bool{
	"farm":        true,
	"field":       true,
	"acre_id":     true,
	"units":       true,
	"soil_musym":  true,
	"soil_muname": true,
}

// shpVarNames maps output variable names to aliases short enough for
// shapefile attribute fields.
var shpVarNames = map[string]string{
	"x_center":            "x_ctr",
	"y_center":            "y_ctr",
	"mean_yield_bu_ac":    "yld_bu_ac",
	"mean_nitrogen_lb_ac": "n_lb_ac",
	"rainfall_in":         "rain_in",
	"soil_musym":          "musym",
	"soil_muname":         "muname",
}

// cellVars returns the values of the base output variables for one cell.
func (g *Grid) cellVars(c *Cell) map[string]interface{} {
	b := c.Bounds()
	ctr := c.Center()
	return map[string]interface{}{
		"farm":                g.Farm,
		"field":               g.Field,
		"acre_id":             c.AcreID,
		"x_min":               b.Min.X,
		"x_max":               b.Max.X,
		"y_min":               b.Min.Y,
		"y_max":               b.Max.Y,
		"x_center":            ctr.X,
		"y_center":            ctr.Y,
		"units":               g.Units,
		"mean_yield_bu_ac":    c.MeanYield,
		"n_points":            float64(c.NPoints),
		"mean_nitrogen_lb_ac": c.MeanNitrogen,
		"rainfall_in":         c.RainfallIn,
		"lat":                 c.Lat,
		"lon":                 c.Lon,
		"soil_musym":          c.SoilMusym,
		"soil_muname":         c.SoilMuname,
	}
}

// Outputter writes the contents of a grid to a tabular file with one row
// per cell. The output format is chosen by the file extension: .csv, .shp
// (polygon shapefile), or .xlsx.
//
// outputVariables maps additional column names to expressions over the base
// per-cell variables, evaluated per cell; for example
// {"yield_per_lb_n": "mean_yield_bu_ac / mean_nitrogen_lb_ac"}. Expressions
// may use the functions defined in outputFunctions plus the defaults 'exp',
// 'log', and 'sqrt'.
type Outputter struct {
	// Proj, if non-empty, is written as a .prj sidecar when the output
	// format is a shapefile.
	Proj string

	fileName        string
	outputVariables map[string]string
	derived         []string
	exprs           map[string]*govaluate.EvaluableExpression
}

// NewOutputter initializes a new Outputter for the given file. It returns
// an error if the file extension is unsupported, an expression does not
// compile, or an expression references an unknown variable.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	switch filepath.Ext(fileName) {
	case ".csv", ".shp", ".xlsx":
	default:
		return nil, fmt.Errorf("agrifield: unsupported output file type %q; valid types are .csv, .shp and .xlsx", filepath.Ext(fileName))
	}

	funcs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("agrifield: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return math.Exp(arg[0].(float64)), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("agrifield: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return math.Log(arg[0].(float64)), nil
		},
		"sqrt": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("agrifield: got %d arguments for function 'sqrt', but needs 1", len(arg))
			}
			return math.Sqrt(arg[0].(float64)), nil
		},
	}
	for name, f := range outputFunctions {
		funcs[name] = f
	}

	base := make(map[string]bool)
	for _, v := range BaseVars {
		base[v] = true
	}

	o := &Outputter{
		fileName:        fileName,
		outputVariables: outputVariables,
		exprs:           make(map[string]*govaluate.EvaluableExpression),
	}
	for name, exprStr := range outputVariables {
		if base[name] {
			return nil, fmt.Errorf("agrifield: output variable '%s' shadows a base variable", name)
		}
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(exprStr, funcs)
		if err != nil {
			return nil, fmt.Errorf("agrifield: output variable '%s': %v", name, err)
		}
		for _, v := range expr.Vars() {
			if !base[v] {
				return nil, fmt.Errorf("agrifield: output variable '%s' references undefined variable '%s'", name, v)
			}
		}
		o.exprs[name] = expr
		o.derived = append(o.derived, name)
	}
	sort.Strings(o.derived)

	if filepath.Ext(fileName) == ".shp" {
		if err := checkOutputNames(o.derived); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// checkOutputNames checks that output variable names fit within the
// 10-character limit of shapefile attribute fields and contain only
// supported characters.
func checkOutputNames(names []string) error {
	for _, name := range names {
		ok, err := regexp.MatchString(`^[A-Za-z]\w*$`, name)
		if err != nil {
			panic(err)
		}
		if len(name) > 10 {
			return fmt.Errorf("agrifield: output variable name '%s' exceeds 10 characters", name)
		} else if !ok {
			return fmt.Errorf("agrifield: output variable name '%s' includes unsupported characters", name)
		}
	}
	return nil
}

// columns gives the full ordered output column set.
func (o *Outputter) columns() []string {
	return append(append([]string{}, BaseVars...), o.derived...)
}

// rows evaluates the base and derived variables for every cell.
func (o *Outputter) rows(g *Grid) ([]map[string]interface{}, error) {
	out := make([]map[string]interface{}, len(g.Cells))
	for i, c := range g.Cells {
		vars := g.cellVars(c)
		for name, expr := range o.exprs {
			v, err := expr.Evaluate(vars)
			if err != nil {
				return nil, fmt.Errorf("agrifield: evaluating output variable '%s' for cell %s: %v", name, c.AcreID, err)
			}
			vars[name] = v
		}
		out[i] = vars
	}
	return out, nil
}

// Output writes the grid to the output file.
func (o *Outputter) Output(g *Grid) error {
	rows, err := o.rows(g)
	if err != nil {
		return err
	}
	switch filepath.Ext(o.fileName) {
	case ".csv":
		return o.writeCSV(rows)
	case ".shp":
		return o.writeShapefile(g, rows)
	case ".xlsx":
		return o.writeXLSX(rows)
	}
	panic("unreachable: file type is validated in NewOutputter")
}

// formatValue renders one output value for CSV or xlsx output. NaN becomes
// an empty field so that spreadsheet tools and pandas read it as missing.
func formatValue(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (o *Outputter) writeCSV(rows []map[string]interface{}) error {
	f, err := os.Create(o.fileName)
	if err != nil {
		return fmt.Errorf("agrifield: creating output file: %v", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	cols := o.columns()
	if err := w.Write(cols); err != nil {
		return err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, col := range cols {
			record[i] = formatValue(row[col])
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (o *Outputter) writeShapefile(g *Grid, rows []map[string]interface{}) error {
	cols := o.columns()
	fields := make([]goshp.Field, len(cols))
	for i, col := range cols {
		name := col
		if short, ok := shpVarNames[col]; ok {
			name = short
		}
		if stringVars[col] {
			fields[i] = goshp.StringField(name, 50)
		} else {
			fields[i] = goshp.FloatField(name, 14, 8)
		}
	}
	e, err := shp.NewEncoderFromFields(o.fileName, goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("agrifield: creating output shapefile: %v", err)
	}
	for i, c := range g.Cells {
		vals := make([]interface{}, len(cols))
		for j, col := range cols {
			vals[j] = rows[i][col]
		}
		if err := e.EncodeFields(c.Polygonal, vals...); err != nil {
			return fmt.Errorf("agrifield: writing output shapefile: %v", err)
		}
	}
	e.Close()

	if o.Proj != "" {
		fileBase := strings.TrimSuffix(o.fileName, filepath.Ext(o.fileName))
		f, err := os.Create(fileBase + ".prj")
		if err != nil {
			return fmt.Errorf("agrifield: creating output prj file: %v", err)
		}
		fmt.Fprint(f, o.Proj)
		f.Close()
	}
	return nil
}

func (o *Outputter) writeXLSX(rows []map[string]interface{}) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("acres")
	if err != nil {
		return fmt.Errorf("agrifield: creating xlsx sheet: %v", err)
	}
	cols := o.columns()
	header := sheet.AddRow()
	for _, col := range cols {
		header.AddCell().SetString(col)
	}
	for _, row := range rows {
		r := sheet.AddRow()
		for _, col := range cols {
			cell := r.AddCell()
			switch v := row[col].(type) {
			case float64:
				if math.IsNaN(v) {
					cell.SetString("")
				} else {
					cell.SetFloat(v)
				}
			default:
				cell.SetString(formatValue(v))
			}
		}
	}
	return f.Save(o.fileName)
}
