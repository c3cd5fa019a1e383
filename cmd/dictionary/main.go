/*
DESCRIPTION
  dictionary learns a patch dictionary from whitened patch samples and writes
  it with optional tile mosaic and assignment histogram diagnostics.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dictionary is a command line program for learning patch
// dictionaries.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ausocean/utils/logging"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/textdetect/config"
	"github.com/ausocean/textdetect/dictionary"
	"github.com/ausocean/textdetect/vis"
)

// Logging configuration.
const (
	logPath      = "/var/log/textdetect/dictionary.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const pkg = "dictionary: "

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

	if cfg.SamplesPath == "" || cfg.DictionaryPath == "" {
		log.Fatal(pkg + "SamplesPath and DictionaryPath must be set")
	}

	x, err := loadSamples(cfg.SamplesPath, cfg.D(), int(cfg.MaxSamples))
	if err != nil {
		log.Fatal(pkg+"could not load samples", "error", err.Error())
	}
	n, _ := x.Dims()
	log.Info(pkg+"loaded samples", "samples", n, "D", cfg.D())

	o := dictionary.Options{
		D:          cfg.D(),
		K:          int(cfg.Clusters),
		KBest:      int(cfg.KeepClusters),
		Iterations: int(cfg.Iterations),
		Workers:    int(cfg.Workers),
		Seed:       int64(cfg.Seed),
		Logger:     log,
	}
	if _, ok := vis.IterTilePath(cfg.TilePath, 0); ok {
		o.Observer = func(it dictionary.Iteration) {
			path, _ := vis.IterTilePath(cfg.TilePath, it.Index)
			err := vis.SaveTiles(path, it.Dict, cfg.Mode(), 0)
			if err != nil {
				log.Warning(pkg+"could not save iteration tiles", "iteration", it.Index, "error", err.Error())
			}
		}
	}
	var tr dictionary.Trainer
	switch cfg.Trainer {
	case config.TrainerAccumulate:
		tr = dictionary.NewAccumulate(o)
	default:
		tr = dictionary.NewCompetitive(o)
	}

	res, err := tr.Train(x)
	if err != nil {
		log.Fatal(pkg+"could not train dictionary", "error", err.Error())
	}
	err = res.Dict.SaveFile(cfg.DictionaryPath)
	if err != nil {
		log.Fatal(pkg+"could not save dictionary", "error", err.Error())
	}
	log.Info(pkg+"saved dictionary", "file", cfg.DictionaryPath, "D", res.Dict.D, "K", res.Dict.K)

	if cfg.TilePath != "" {
		err = vis.SaveTiles(vis.TilePath(cfg.TilePath, "final"), res.Dict, cfg.Mode(), 0)
		if err != nil {
			log.Error(pkg+"could not save dictionary tiles", "error", err.Error())
		}
	}
	if cfg.HistogramPath != "" {
		title := fmt.Sprintf("%d samples over %d atoms", n, o.K)
		err = vis.SaveHistogram(cfg.HistogramPath, res.Histogram, title)
		if err != nil {
			log.Error(pkg+"could not save assignment histogram", "error", err.Error())
		}
	}
}

func loadSamples(path string, d, maxN int) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return dictionary.LoadSamples(f, dictionary.SamplesDataset, d, maxN)
}
