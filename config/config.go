/*
DESCRIPTION
  config.go contains the configuration settings shared by the textdetect
  programs.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package config contains the configuration settings for the dictionary
// trainer, whitening estimator and detector programs.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/textdetect/patch"
)

// Dictionary trainers.
const (
	TrainerCompetitive = iota
	TrainerAccumulate
)

// Config provides parameters relevant to training and detection. A new config
// must be validated before use; validation defaults unset fields.
type Config struct {
	// Logger holds an implementation of the Logger interface as defined in
	// the ausocean/utils/logging package. It must be set for field parsing
	// and validation to log.
	Logger logging.Logger

	LogLevel int8 // Logging verbosity, one of the logging package levels.
	Suppress bool // Holds logger suppression state.

	// File paths. Dictionary and sample files use the dictionary package
	// matrix format, whitening and weight files hold one number per line.
	DictionaryPath string
	WhiteningPath  string // Inverse square root covariance.
	MeanPath       string // Optional whitening mean.
	SamplesPath    string // Whitened patch samples.
	InputPath      string // Image file or directory of images.
	OutputPath     string // Detection output, stdout if empty.
	TilePath       string // Dictionary tile mosaic PNG; a %d gives one per iteration.
	HistogramPath  string // Assignment histogram plot.
	WeightsPath    string // Linear classifier weights.

	RGB bool // Use RGB rather than greyscale patches.

	// Detection window.
	WindowWidth  uint
	WindowHeight uint
	Stride       uint // Pixels between evaluated windows.

	// Dictionary learning.
	Trainer      uint8 // TrainerCompetitive or TrainerAccumulate.
	Clusters     uint  // Atoms learnt.
	KeepClusters uint  // Most frequently assigned atoms kept.
	Iterations   uint
	MaxSamples   uint // Samples used for training, zero for all.
	Seed         int

	Workers uint // Goroutines used, zero for one per CPU.

	WhitenEpsilon   float64 // Covariance regulariser used in whitening estimation.
	PatchesPerImage uint    // Random patches sampled per image for whitening.

	// Scales are the image scale factors scanned, so that text larger than
	// the window is found at scales below one.
	Scales []float64

	Threshold float64 // Minimum reported detection probability.
	Watch     bool    // Reload the model when its files change.
}

// Mode returns the patch mode selected by c.
func (c *Config) Mode() patch.Mode {
	if c.RGB {
		return patch.RGB
	}
	return patch.Grey
}

// D returns the descriptor dimension for 8x8 patches in c's mode.
func (c *Config) D() int {
	return 64 * c.Mode().Channels()
}

// Validate checks for any errors in the config fields and defaults settings
// if particular parameters have not been defined.
func (c *Config) Validate() error {
	for _, v := range Variables {
		if v.Validate != nil {
			v.Validate(c)
		}
	}
	return nil
}

// Update takes a map of configuration variable names and their corresponding
// values, parses the string values and converting into correct type, and then
// sets the config struct fields as appropriate.
func (c *Config) Update(vars map[string]string) {
	for _, value := range Variables {
		if v, ok := vars[value.Name]; ok && value.Update != nil {
			value.Update(c, v)
		}
	}
}

func (c *Config) LogInvalidField(name string, def interface{}) {
	c.Logger.Info(name+" bad or unset, defaulting", name, def)
}

// ParseJSON decodes a JSON object of configuration variables, for example
// {"Clusters":"512","RGB":"true"}, into a map for use with Update.
func ParseJSON(b []byte) (map[string]string, error) {
	var vars map[string]string
	err := json.Unmarshal(b, &vars)
	if err != nil {
		return nil, fmt.Errorf("could not unmarshal config: %w", err)
	}
	return vars, nil
}

// ReadFile reads a JSON configuration file as for ParseJSON.
func ReadFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}
	return ParseJSON(b)
}

// FromFlags returns the configuration variables given either as a JSON string
// or as the path of a JSON file, as from the -config and -config-file flags.
// Giving both is an error. An empty map is returned if neither is given.
func FromFlags(configJSON, configFile string) (map[string]string, error) {
	switch {
	case configJSON != "" && configFile != "":
		return nil, fmt.Errorf("cannot define both command-line config and file config")
	case configJSON != "":
		return ParseJSON([]byte(configJSON))
	case configFile != "":
		return ReadFile(configFile)
	default:
		return map[string]string{}, nil
	}
}
