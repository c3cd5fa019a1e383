/*
DESCRIPTION
  whiten estimates patch whitening statistics from a directory of images. It
  samples random contrast normalized patches, estimates the inverse square
  root covariance and mean, and optionally writes the whitened samples for
  dictionary training.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package whiten is a command line program for estimating whitening
// statistics.
package main

import (
	"flag"
	"io"
	"math/rand"
	"os"

	"github.com/ausocean/utils/logging"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/textdetect/config"
	"github.com/ausocean/textdetect/dictionary"
	"github.com/ausocean/textdetect/patch"
	"github.com/ausocean/textdetect/raster"
)

// Logging configuration.
const (
	logPath      = "/var/log/textdetect/whiten.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const pkg = "whiten: "

func main() {
	var (
		configPtr     = flag.String("config", "", "Provide configuration JSON.")
		configFilePtr = flag.String("config-file", "", "Location of JSON configuration file.")
	)
	flag.Parse()

	// Create lumberjack logger to handle logging to file.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(os.Stdout, fileLog), logSuppress)

	vars, err := config.FromFlags(*configPtr, *configFilePtr)
	if err != nil {
		log.Fatal(pkg+"could not get config", "error", err.Error())
	}
	cfg := config.Config{Logger: log}
	cfg.Update(vars)
	cfg.Validate()
	log.SetLevel(cfg.LogLevel)
	log.Info(pkg+"got config", "config", vars)

	if cfg.InputPath == "" || cfg.WhiteningPath == "" || cfg.MeanPath == "" {
		log.Fatal(pkg + "InputPath, WhiteningPath and MeanPath must be set")
	}

	ext, err := patch.NewExtractor(cfg.Mode(), cfg.D())
	if err != nil {
		log.Fatal(pkg+"could not create patch extractor", "error", err.Error())
	}

	files, err := raster.Files(cfg.InputPath)
	if err != nil {
		log.Fatal(pkg+"could not find images", "error", err.Error())
	}

	rng := rand.New(rand.NewSource(int64(cfg.Seed)))
	var samples [][]float32
	for _, f := range files {
		img, err := raster.Load(f)
		if err != nil {
			log.Warning(pkg+"skipping image", "file", f, "error", err.Error())
			continue
		}
		samples = ext.Sample(samples, img, int(cfg.PatchesPerImage), rng)
		log.Debug(pkg+"sampled image", "file", f, "samples", len(samples))
	}
	if cfg.MaxSamples != 0 && len(samples) > int(cfg.MaxSamples) {
		rng.Shuffle(len(samples), func(i, j int) { samples[i], samples[j] = samples[j], samples[i] })
		samples = samples[:cfg.MaxSamples]
	}
	log.Info(pkg+"sampled patches", "images", len(files), "samples", len(samples))
	if len(samples) < 2 {
		log.Fatal(pkg+"too few samples to estimate whitening", "samples", len(samples))
	}

	x := mat.NewDense(len(samples), ext.D, nil)
	for i, s := range samples {
		row := x.RawRowView(i)
		for j, v := range s {
			row[j] = float64(v)
		}
	}

	w, err := patch.EstimateWhitening(x, cfg.WhitenEpsilon)
	if err != nil {
		log.Fatal(pkg+"could not estimate whitening", "error", err.Error())
	}
	err = w.Save(cfg.WhiteningPath, cfg.MeanPath)
	if err != nil {
		log.Fatal(pkg+"could not save whitening statistics", "error", err.Error())
	}
	log.Info(pkg+"saved whitening statistics", "covariance", cfg.WhiteningPath, "mean", cfg.MeanPath)

	if cfg.SamplesPath == "" {
		return
	}
	whitened := make([]float32, ext.D)
	for i, s := range samples {
		w.Whiten(whitened, s)
		row := x.RawRowView(i)
		for j, v := range whitened {
			row[j] = float64(v)
		}
	}
	f, err := os.Create(cfg.SamplesPath)
	if err != nil {
		log.Fatal(pkg+"could not create samples file", "error", err.Error())
	}
	err = dictionary.SaveSamples(f, x)
	if err != nil {
		log.Fatal(pkg+"could not write samples", "error", err.Error())
	}
	err = f.Close()
	if err != nil {
		log.Fatal(pkg+"could not close samples file", "error", err.Error())
	}
	log.Info(pkg+"saved whitened samples", "file", cfg.SamplesPath, "samples", len(samples))
}
