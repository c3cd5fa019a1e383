/*
DESCRIPTION
  textdetect scans images for text windows using a learnt patch dictionary and
  a linear classifier over pooled window descriptors. Detections are written
  one per line as: file x y width height probability.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package textdetect is a command line program for detecting text in images.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/ausocean/utils/logging"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ausocean/textdetect/config"
	"github.com/ausocean/textdetect/detector"
	"github.com/ausocean/textdetect/raster"
)

// Logging configuration.
const (
	logPath      = "/var/log/textdetect/textdetect.log"
	logMaxSize   = 500 // MB
	logMaxBackup = 10
	logMaxAge    = 28 // days
	logVerbosity = logging.Info
	logSuppress  = true
)

const pkg = "textdetect: "

func main() {
	var (
		configPtr     = flag.String("config", "", "Provide configuration JSON.")
		configFilePtr = flag.String("config-file", "", "Location of JSON configuration file.")
	)
	flag.Parse()

	// Create lumberjack logger to handle logging to file. Detections may go to
	// stdout, so logs go to stderr.
	fileLog := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    logMaxSize,
		MaxBackups: logMaxBackup,
		MaxAge:     logMaxAge,
	}
	log := logging.New(logVerbosity, io.MultiWriter(os.Stderr, fileLog), logSuppress)

	vars, err := config.FromFlags(*configPtr, *configFilePtr)
	if err != nil {
		log.Fatal(pkg+"could not get config", "error", err.Error())
	}
	cfg := config.Config{Logger: log}
	cfg.Update(vars)
	cfg.Validate()
	log.SetLevel(cfg.LogLevel)
	log.Info(pkg+"got config", "config", vars)

	if cfg.InputPath == "" || cfg.DictionaryPath == "" || cfg.WhiteningPath == "" || cfg.WeightsPath == "" {
		log.Fatal(pkg + "InputPath, DictionaryPath, WhiteningPath and WeightsPath must be set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := detector.LoadModel(cfg.DictionaryPath, cfg.WhiteningPath, cfg.MeanPath, cfg.Mode())
	if err != nil {
		log.Fatal(pkg+"could not load model", "error", err.Error())
	}
	classifier, err := detector.LoadLinear(cfg.WeightsPath, m.K())
	if err != nil {
		log.Fatal(pkg+"could not load classifier", "error", err.Error())
	}
	det, err := detector.New(m, log)
	if err != nil {
		log.Fatal(pkg+"could not create detector", "error", err.Error())
	}
	det.SetWindow(int(cfg.WindowWidth), int(cfg.WindowHeight))

	// A reloaded model is picked up between images.
	var next atomic.Pointer[detector.Model]
	if cfg.Watch {
		r := &detector.Reloader{
			DictPath:  cfg.DictionaryPath,
			CovarPath: cfg.WhiteningPath,
			MeanPath:  cfg.MeanPath,
			Mode:      cfg.Mode(),
			OnLoad:    func(m *detector.Model) { next.Store(m) },
			Log:       log,
		}
		go func() {
			err := r.Run(ctx)
			if err != nil {
				log.Error(pkg+"model reloader stopped", "error", err.Error())
			}
		}()
	}

	out := io.Writer(os.Stdout)
	if cfg.OutputPath != "" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			log.Fatal(pkg+"could not create output file", "error", err.Error())
		}
		defer f.Close()
		out = f
	}
	bw := bufio.NewWriter(out)
	defer bw.Flush()

	files, err := raster.Files(cfg.InputPath)
	if err != nil {
		log.Fatal(pkg+"could not find images", "error", err.Error())
	}

	opts := detector.ScanOptions{
		Classifier: classifier,
		Stride:     int(cfg.Stride),
		Threshold:  cfg.Threshold,
		Workers:    int(cfg.Workers),
	}
	debugging := newWindow("TEXTDETECT")
	defer debugging.close()

	for _, f := range files {
		if m := next.Swap(nil); m != nil {
			swapModel(log, det, m, opts.Classifier)
		}

		img, err := raster.Load(f)
		if err != nil {
			log.Warning(pkg+"skipping image", "file", f, "error", err.Error())
			continue
		}
		found, ok := scanScales(ctx, log, img, det, opts, cfg.Scales)
		if !ok {
			return
		}
		log.Info(pkg+"scanned image", "file", f, "detections", len(found))
		debugging.show(f, found)
		for _, d := range found {
			fmt.Fprintf(bw, "%s %d %d %d %d %.4f\n", f, d.X, d.Y, d.W, d.H, d.Prob)
		}
	}
}

// detection is a detected window in original image coordinates.
type detection struct {
	X, Y, W, H int
	Prob       float64
}

// scanScales scans img at each scale, mapping detections back to img's
// coordinates. It returns false if scanning was cancelled.
func scanScales(ctx context.Context, log logging.Logger, img raster.Image, det *detector.Detector, opts detector.ScanOptions, scales []float64) ([]detection, bool) {
	ww, wh := det.Window()
	var all []detection
	for _, s := range scales {
		scaled, err := raster.Scale(img, s)
		if err != nil {
			log.Warning(pkg+"skipping scale", "scale", s, "error", err.Error())
			continue
		}
		found, err := detector.Scan(ctx, scaled, det, opts)
		if err != nil {
			log.Warning(pkg+"scan stopped", "error", err.Error())
			return nil, false
		}
		log.Debug(pkg+"scanned scale", "scale", s, "detections", len(found))
		for _, d := range found {
			all = append(all, detection{
				X:    int(float64(d.X) / s),
				Y:    int(float64(d.Y) / s),
				W:    int(float64(ww) / s),
				H:    int(float64(wh) / s),
				Prob: d.Prob,
			})
		}
	}
	return all, true
}

// swapModel replaces det's model with m if the classifier suits it.
func swapModel(log logging.Logger, det *detector.Detector, m *detector.Model, l *detector.Linear) {
	if len(l.Weights) != detector.Buckets*m.K() {
		log.Error(pkg+"reloaded model does not suit classifier, keeping current model", "K", m.K())
		return
	}
	err := det.SetModel(m)
	if err != nil {
		log.Error(pkg+"could not set reloaded model", "error", err.Error())
		return
	}
	log.Info(pkg+"using reloaded model", "K", m.K())
}
