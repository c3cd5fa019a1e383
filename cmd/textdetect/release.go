//go:build !debug || !withcv
// +build !debug !withcv

/*
DESCRIPTION
  Replaces the detection debug window with no-ops for release builds.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package main

// debugWindow is used for displaying detections.
type debugWindow struct{}

// close frees resources used by gocv.
func (d *debugWindow) close() error { return nil }

// newWindow creates the detection debugging window.
func newWindow(name string) debugWindow { return debugWindow{} }

// show displays detections over the image at path.
func (d *debugWindow) show(path string, found []detection) {}
