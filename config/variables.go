/*
DESCRIPTION
  variables.go contains a list of structs that provide a variable Name, type in
  a string format, a function for updating the variable in the Config struct
  from a string, and finally, a validation function to check the validity of the
  corresponding field value in the Config.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ausocean/utils/logging"
)

// Config map Keys.
const (
	KeyClusters        = "Clusters"
	KeyDictionaryPath  = "DictionaryPath"
	KeyHistogramPath   = "HistogramPath"
	KeyInputPath       = "InputPath"
	KeyIterations      = "Iterations"
	KeyKeepClusters    = "KeepClusters"
	KeyLogging         = "logging"
	KeyMaxSamples      = "MaxSamples"
	KeyMeanPath        = "MeanPath"
	KeyOutputPath      = "OutputPath"
	KeyPatchesPerImage = "PatchesPerImage"
	KeyRGB             = "RGB"
	KeySamplesPath     = "SamplesPath"
	KeyScales          = "Scales"
	KeySeed            = "Seed"
	KeyStride          = "Stride"
	KeySuppress        = "Suppress"
	KeyThreshold       = "Threshold"
	KeyTilePath        = "TilePath"
	KeyTrainer         = "Trainer"
	KeyWatch           = "Watch"
	KeyWeightsPath     = "WeightsPath"
	KeyWhitenEpsilon   = "WhitenEpsilon"
	KeyWhiteningPath   = "WhiteningPath"
	KeyWindowHeight    = "WindowHeight"
	KeyWindowWidth     = "WindowWidth"
	KeyWorkers         = "Workers"
)

// Config map parameter types.
const (
	typeString = "string"
	typeInt    = "int"
	typeUint   = "uint"
	typeBool   = "bool"
	typeFloat  = "float"
)

// Default variable values.
const (
	defaultVerbosity = logging.Error

	// Detection defaults.
	defaultWindowWidth  = 32
	defaultWindowHeight = 32
	defaultStride       = 4
	defaultThreshold    = 0.5
	defaultScale        = 1.0

	// Dictionary learning defaults.
	defaultTrainer    = TrainerCompetitive
	defaultClusters   = 1024
	defaultIterations = 15

	// Whitening estimation defaults.
	defaultWhitenEpsilon   = 0.1
	defaultPatchesPerImage = 200
)

// Variables describes the variables that can be used to configure the
// textdetect programs. These structs provide the name and type of variable, a
// function for updating this variable in a Config, and a function for
// validating the value of the variable.
var Variables = []struct {
	Name     string
	Type     string
	Update   func(*Config, string)
	Validate func(*Config)
}{
	{
		Name:   KeyClusters,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Clusters = parseUint(KeyClusters, v, c) },
		Validate: func(c *Config) {
			c.Clusters = lessThanOrEqual(KeyClusters, c.Clusters, 0, c, defaultClusters)
		},
	},
	{
		Name:   KeyDictionaryPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.DictionaryPath = v },
	},
	{
		Name:   KeyHistogramPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.HistogramPath = v },
	},
	{
		Name:   KeyInputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.InputPath = v },
	},
	{
		Name:   KeyIterations,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Iterations = parseUint(KeyIterations, v, c) },
		Validate: func(c *Config) {
			c.Iterations = lessThanOrEqual(KeyIterations, c.Iterations, 0, c, defaultIterations)
		},
	},
	{
		// KeepClusters must follow Clusters so that its default sees a valid
		// cluster count.
		Name:   KeyKeepClusters,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.KeepClusters = parseUint(KeyKeepClusters, v, c) },
		Validate: func(c *Config) {
			if c.KeepClusters == 0 || c.KeepClusters > c.Clusters {
				def := c.Clusters / 2
				if def == 0 {
					def = c.Clusters
				}
				c.LogInvalidField(KeyKeepClusters, def)
				c.KeepClusters = def
			}
		},
	},
	{
		Name: KeyLogging,
		Type: "enum:Debug,Info,Warning,Error,Fatal",
		Update: func(c *Config, v string) {
			switch v {
			case "Debug":
				c.LogLevel = logging.Debug
			case "Info":
				c.LogLevel = logging.Info
			case "Warning":
				c.LogLevel = logging.Warning
			case "Error":
				c.LogLevel = logging.Error
			case "Fatal":
				c.LogLevel = logging.Fatal
			default:
				c.Logger.Warning("invalid Logging param", "value", v)
			}
		},
		Validate: func(c *Config) {
			switch c.LogLevel {
			case logging.Debug, logging.Info, logging.Warning, logging.Error, logging.Fatal:
			default:
				c.LogInvalidField("LogLevel", defaultVerbosity)
				c.LogLevel = defaultVerbosity
			}
		},
	},
	{
		Name:   KeyMaxSamples,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.MaxSamples = parseUint(KeyMaxSamples, v, c) },
	},
	{
		Name:   KeyMeanPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.MeanPath = v },
	},
	{
		Name:   KeyOutputPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.OutputPath = v },
	},
	{
		Name:   KeyPatchesPerImage,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.PatchesPerImage = parseUint(KeyPatchesPerImage, v, c) },
		Validate: func(c *Config) {
			c.PatchesPerImage = lessThanOrEqual(KeyPatchesPerImage, c.PatchesPerImage, 0, c, defaultPatchesPerImage)
		},
	},
	{
		Name:   KeyRGB,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.RGB = parseBool(KeyRGB, v, c) },
	},
	{
		Name:   KeySamplesPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.SamplesPath = v },
	},
	{
		Name: KeyScales,
		Type: typeString,
		Update: func(c *Config, v string) {
			v = strings.Replace(v, " ", "", -1)
			var vals []float64
			for _, e := range strings.Split(v, ",") {
				if e == "" {
					continue
				}
				f, err := strconv.ParseFloat(e, 64)
				if err != nil {
					c.Logger.Warning("invalid Scales param", "value", e)
					continue
				}
				vals = append(vals, f)
			}
			c.Scales = vals
		},
		Validate: func(c *Config) {
			var vals []float64
			for _, f := range c.Scales {
				if f > 0 {
					vals = append(vals, f)
				}
			}
			if len(vals) == 0 {
				c.LogInvalidField(KeyScales, defaultScale)
				vals = []float64{defaultScale}
			}
			c.Scales = vals
		},
	},
	{
		Name:   KeySeed,
		Type:   typeInt,
		Update: func(c *Config, v string) { c.Seed = parseInt(KeySeed, v, c) },
	},
	{
		Name:   KeyStride,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Stride = parseUint(KeyStride, v, c) },
		Validate: func(c *Config) {
			c.Stride = lessThanOrEqual(KeyStride, c.Stride, 0, c, defaultStride)
		},
	},
	{
		Name:   KeySuppress,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Suppress = parseBool(KeySuppress, v, c) },
	},
	{
		Name:   KeyThreshold,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.Threshold = parseFloat(KeyThreshold, v, c) },
		Validate: func(c *Config) {
			if c.Threshold <= 0 || c.Threshold > 1 {
				c.LogInvalidField(KeyThreshold, defaultThreshold)
				c.Threshold = defaultThreshold
			}
		},
	},
	{
		Name:   KeyTilePath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.TilePath = v },
	},
	{
		Name: KeyTrainer,
		Type: "enum:competitive,accumulate",
		Update: func(c *Config, v string) {
			c.Trainer = parseEnum(
				KeyTrainer,
				v,
				map[string]uint8{
					"competitive": TrainerCompetitive,
					"accumulate":  TrainerAccumulate,
				},
				c,
			)
		},
		Validate: func(c *Config) {
			switch c.Trainer {
			case TrainerCompetitive, TrainerAccumulate:
			default:
				c.LogInvalidField(KeyTrainer, defaultTrainer)
				c.Trainer = defaultTrainer
			}
		},
	},
	{
		Name:   KeyWatch,
		Type:   typeBool,
		Update: func(c *Config, v string) { c.Watch = parseBool(KeyWatch, v, c) },
	},
	{
		Name:   KeyWeightsPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.WeightsPath = v },
	},
	{
		Name:   KeyWhitenEpsilon,
		Type:   typeFloat,
		Update: func(c *Config, v string) { c.WhitenEpsilon = parseFloat(KeyWhitenEpsilon, v, c) },
		Validate: func(c *Config) {
			if c.WhitenEpsilon <= 0 {
				c.LogInvalidField(KeyWhitenEpsilon, defaultWhitenEpsilon)
				c.WhitenEpsilon = defaultWhitenEpsilon
			}
		},
	},
	{
		Name:   KeyWhiteningPath,
		Type:   typeString,
		Update: func(c *Config, v string) { c.WhiteningPath = v },
	},
	{
		Name:   KeyWindowHeight,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.WindowHeight = parseUint(KeyWindowHeight, v, c) },
		Validate: func(c *Config) {
			if c.WindowHeight < 8 {
				c.LogInvalidField(KeyWindowHeight, defaultWindowHeight)
				c.WindowHeight = defaultWindowHeight
			}
		},
	},
	{
		Name:   KeyWindowWidth,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.WindowWidth = parseUint(KeyWindowWidth, v, c) },
		Validate: func(c *Config) {
			if c.WindowWidth < 8 {
				c.LogInvalidField(KeyWindowWidth, defaultWindowWidth)
				c.WindowWidth = defaultWindowWidth
			}
		},
	},
	{
		Name:   KeyWorkers,
		Type:   typeUint,
		Update: func(c *Config, v string) { c.Workers = parseUint(KeyWorkers, v, c) },
	},
}

func parseUint(n, v string, c *Config) uint {
	_v, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected unsigned int for param %s", n), "value", v)
	}
	return uint(_v)
}

func parseInt(n, v string, c *Config) int {
	_v, err := strconv.Atoi(v)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected integer for param %s", n), "value", v)
	}
	return _v
}

func parseFloat(n, v string, c *Config) float64 {
	_v, err := strconv.ParseFloat(v, 64)
	if err != nil {
		c.Logger.Warning(fmt.Sprintf("expected float for param %s", n), "value", v)
	}
	return _v
}

func parseBool(n, v string, c *Config) (b bool) {
	switch strings.ToLower(v) {
	case "true":
		b = true
	case "false":
		b = false
	default:
		c.Logger.Warning(fmt.Sprintf("expect bool for param %s", n), "value", v)
	}
	return
}

func parseEnum(n, v string, enums map[string]uint8, c *Config) uint8 {
	_v, ok := enums[strings.ToLower(v)]
	if !ok {
		c.Logger.Warning(fmt.Sprintf("invalid value for %s param", n), "value", v)
	}
	return _v
}

func lessThanOrEqual(n string, v, cmp uint, c *Config, def uint) uint {
	if v <= cmp {
		c.LogInvalidField(n, def)
		return def
	}
	return v
}
