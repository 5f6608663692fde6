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

// Package agriutil wires the agrifield packages together into a
// command-line interface and a configurable preparation pipeline.
package agriutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/agrimodel/agrifield"
	"github.com/lnashier/viper"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to AgriField.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "FarmName",
			usage: `
              FarmName is the name of the farm the field belongs to. It is
              carried through to the 'farm' column of the output dataset.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "FieldName",
			usage: `
              FieldName is the name of the field being processed. It is
              carried through to the 'field' column of the output dataset.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "Season",
			usage: `
              Season is the harvest year of the growing season being
              processed.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "Crop",
			usage: `
              Crop is the crop grown during the season (for example "corn").`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "HarvestShapefile",
			usage: `
              HarvestShapefile is the path to the yield-monitor point
              shapefile exported from the combine.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "NitrogenShapefiles",
			usage: `
              NitrogenShapefiles is a list of paths to as-applied nitrogen
              point shapefiles. Multiple application passes over the same
              field are summed per location before merging. May be empty,
              in which case the nitrogen merge is skipped.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "SeasonStart",
			usage: `
              SeasonStart is the first day of the growing season,
              format "YYYY-MM-DD". Used to query cumulative rainfall.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "SeasonEnd",
			usage: `
              SeasonEnd is the last day of the growing season,
              format "YYYY-MM-DD". Used to query cumulative rainfall.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "CellSize",
			usage: `
              CellSize is the grid cell edge length in the units of the
              working projection. The default of 63.6 m makes each cell
              approximately one acre.`,
			defaultVal: 63.6,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "GridProj",
			usage: `
              GridProj is the spatial projection that the acre grid is
              built in, in Proj4 format. It must be a planar projection
              with units of meters.`,
			defaultVal: "+proj=utm +zone=15 +datum=WGS84 +units=m +no_defs",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "Units",
			usage: `
              Units is the distance unit of the working projection, carried
              through to the 'units' column of the output dataset.`,
			defaultVal: "meters",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "MinDensityFraction",
			usage: `
              MinDensityFraction sets the phantom-acre cutoff: cells with
              fewer points than this fraction of the median per-cell point
              count are dropped.`,
			defaultVal: agrifield.DefaultMinDensityFraction,
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the output file to be created.
              The file extension chooses the format: .csv, .shp, or .xlsx.`,
			shorthand:  "o",
			defaultVal: "acre_dataset.csv",
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies additional derived variables to
              include in the output dataset, as a mapping from new column
              names to expressions over the base columns, for example
              {"yld_t_ha": "mean_yield_bu_ac * 0.0673"}.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{prepareCmd.Flags()},
		},
		{
			name: "UseCoords",
			usage: `
              UseCoords specifies whether latitude and longitude are
              included as model predictors.`,
			defaultVal: true,
			flagsets:   []*pflag.FlagSet{modelCmd.Flags()},
		},
		{
			name: "RandomSeed",
			usage: `
              RandomSeed seeds the train/test split and the cross-validation
              fold assignment, making model comparison runs reproducible.`,
			defaultVal: 42,
			flagsets:   []*pflag.FlagSet{modelCmd.Flags()},
		},
		{
			name: "ComparisonFile",
			usage: `
              ComparisonFile is an optional path to a CSV file that the
              model comparison results are written to in addition to
              standard output.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{modelCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("AGRIFIELD")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(prepareCmd)
	Root.AddCommand(modelCmd)
	Root.AddCommand(inspectCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("agrifield: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "agrifield",
	Short: "Agricultural field data analytics.",
	Long: `AgriField turns raw precision-agriculture shapefiles into an
acre-level analysis dataset and compares regression models of yield
response. Use the subcommands specified below to access the
functionality.

Configuration can be changed by using a configuration file (and providing
the path to the file using the --config flag), by using command-line
arguments, or by setting environment variables in the format
'AGRIFIELD_var' where 'var' is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration
information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of AgriField.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("AgriField v%s\n", agrifield.Version)
	},
	DisableAutoGenTag: true,
}

// prepareCmd runs the data preparation pipeline for one field and season.
var prepareCmd = &cobra.Command{
	Use:   "prepare",
	Short: "Build the acre-level dataset for a field.",
	Long: `prepare runs the data preparation pipeline: it loads and cleans the
yield-monitor shapefile, rasterizes the points onto an acre grid, removes
phantom acres, enriches the surviving acres with growing-season rainfall,
geographic coordinates, and SSURGO soil attributes, merges as-applied
nitrogen, and writes the result to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := FieldSpecFromConfig(Cfg)
		if err != nil {
			return err
		}
		grid, err := Prepare(context.Background(), spec, nil, nil)
		if err != nil {
			return err
		}
		cmd.Printf("Done. %d acres written to %s\n", len(grid.Cells), spec.OutputFile)
		return nil
	},
	DisableAutoGenTag: true,
}

// modelCmd compares regression models on a prepared dataset.
var modelCmd = &cobra.Command{
	Use:   "model [dataset.csv]",
	Short: "Compare yield models on a prepared dataset.",
	Long: `model fits each registered regression model to a prepared acre-level
dataset and reports train, test, and cross-validated R² for each, along
with the agronomic optimum nitrogen rate implied by a quadratic
yield-response fit when the dataset contains nitrogen rates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Model(
			args[0],
			Cfg.GetBool("UseCoords"),
			int64(Cfg.GetInt("RandomSeed")),
			os.ExpandEnv(Cfg.GetString("ComparisonFile")),
			cmd.OutOrStdout(),
		)
	},
	DisableAutoGenTag: true,
}

// inspectCmd summarizes the predictors in a prepared dataset.
var inspectCmd = &cobra.Command{
	Use:   "inspect [dataset.csv]",
	Short: "Summarize the predictors in a prepared dataset.",
	Long: `inspect prints count, missing-value count, mean, standard deviation,
minimum, and maximum for each predictor column present in a prepared
acre-level dataset.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return Inspect(args[0], cmd.OutOrStdout())
	},
	DisableAutoGenTag: true,
}
