//go:build debug && withcv
// +build debug,withcv

/*
DESCRIPTION
  Displays detections over the scanned image in an Open CV window.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// debugWindow is used for displaying detections.
type debugWindow struct {
	window *gocv.Window
}

// close frees resources used by gocv.
func (d *debugWindow) close() error {
	return d.window.Close()
}

// newWindow creates the detection debugging window.
func newWindow(name string) debugWindow {
	return debugWindow{window: gocv.NewWindow(name + ": Detections")}
}

// show draws the window and probability of each detection over the image at
// path and displays it.
func (d *debugWindow) show(path string, found []detection) {
	im := gocv.IMRead(path, gocv.IMReadColor)
	if im.Empty() {
		return
	}
	defer im.Close()

	var drkRed = color.RGBA{191, 0, 0, 0}
	var lhtRed = color.RGBA{191, 31, 31, 0}
	for _, f := range found {
		gocv.Rectangle(&im, image.Rect(f.X, f.Y, f.X+f.W, f.Y+f.H), lhtRed, 1)
		gocv.PutText(&im, fmt.Sprintf("%.2f", f.Prob), image.Pt(f.X, f.Y+f.H), gocv.FontHersheyPlain, 0.8, drkRed, 1)
	}
	d.window.IMShow(im)
	d.window.WaitKey(1)
}
