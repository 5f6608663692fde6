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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lnashier/viper"
	"github.com/spf13/cast"
)

// FieldSpec holds the configuration for processing one field and season.
type FieldSpec struct {
	// FarmName and FieldName identify the field; both are carried
	// through to the output dataset.
	FarmName  string
	FieldName string

	// Season is the harvest year.
	Season int

	// Crop is the crop grown during the season.
	Crop string

	// HarvestShapefile is the yield-monitor point shapefile.
	HarvestShapefile string

	// NitrogenShapefiles are the as-applied nitrogen point shapefiles.
	NitrogenShapefiles []string

	// SeasonStart and SeasonEnd bound the growing season ("YYYY-MM-DD").
	SeasonStart string
	SeasonEnd   string

	// GridProj is the working projection in Proj4 format.
	GridProj string

	// Units is the distance unit tag of the working projection,
	// carried through to the 'units' column of the output dataset.
	Units string

	// CellSize is the grid cell edge length [m].
	CellSize float64

	// MinDensityFraction is the phantom-acre cutoff fraction.
	MinDensityFraction float64

	// OutputFile is where the dataset is written.
	OutputFile string

	// OutputVariables maps derived output column names to expressions.
	OutputVariables map[string]string
}

// FieldSpecFromConfig extracts and validates a FieldSpec from the
// configuration information in cfg.
func FieldSpecFromConfig(cfg *viper.Viper) (*FieldSpec, error) {
	spec := &FieldSpec{
		FarmName:           cfg.GetString("FarmName"),
		FieldName:          cfg.GetString("FieldName"),
		Season:             cfg.GetInt("Season"),
		Crop:               cfg.GetString("Crop"),
		HarvestShapefile:   os.ExpandEnv(cfg.GetString("HarvestShapefile")),
		NitrogenShapefiles: expandStringSlice(cfg.GetStringSlice("NitrogenShapefiles")),
		SeasonStart:        cfg.GetString("SeasonStart"),
		SeasonEnd:          cfg.GetString("SeasonEnd"),
		GridProj:           cfg.GetString("GridProj"),
		Units:              cfg.GetString("Units"),
		CellSize:           cfg.GetFloat64("CellSize"),
		MinDensityFraction: cfg.GetFloat64("MinDensityFraction"),
		OutputFile:         os.ExpandEnv(cfg.GetString("OutputFile")),
		OutputVariables:    GetStringMapString("OutputVariables", cfg),
	}
	if spec.HarvestShapefile == "" {
		return nil, fmt.Errorf("agrifield: you need to specify a harvest shapefile " +
			`(for example: HarvestShapefile="harvest_2025.shp")`)
	}
	if spec.CellSize <= 0 {
		return nil, fmt.Errorf("agrifield: CellSize must be positive but is %g", spec.CellSize)
	}
	if spec.MinDensityFraction < 0 {
		return nil, fmt.Errorf("agrifield: MinDensityFraction must not be negative but is %g",
			spec.MinDensityFraction)
	}
	for _, d := range []struct{ name, val string }{
		{"SeasonStart", spec.SeasonStart},
		{"SeasonEnd", spec.SeasonEnd},
	} {
		if d.val == "" {
			continue // Rainfall enrichment is skipped without season dates.
		}
		if _, err := time.Parse("2006-01-02", d.val); err != nil {
			return nil, fmt.Errorf("agrifield: invalid %s %q: %v", d.name, d.val, err)
		}
	}
	if _, err := checkOutputFile(spec.OutputFile); err != nil {
		return nil, err
	}
	return spec, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`agrifield: you need to specify an output file (for example: OutputFile="acre_dataset.csv")`)
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("agrifield: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	case nil:
		return nil
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
