/*
DESCRIPTION
  sector.go partitions a window axis into the three sectors used for pooling.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detector

import "math"

// Sectors per window axis.
const Sectors = 3

// Span is one patch position along a window axis. Start and Stop are the
// first and last pixel offsets covered by the patch.
type Span struct {
	Sector int
	Start  int
	Stop   int
}

// SectorSpans returns the patch positions along a window axis of w pixels
// for patches of the given side, labelled with their sector. The middle
// sector is one position wider than the outer two. For w < side+2 a position
// may appear in more than one sector. nil is returned if w < side.
func SectorSpans(w, side int) []Span {
	span := func(s, start int) Span { return Span{Sector: s, Start: start, Stop: start + side - 1} }
	switch m := w - side; {
	case m < 0:
		return nil
	case m == 0:
		return []Span{span(0, 0), span(1, 0), span(2, 0)}
	case m == 1:
		return []Span{span(0, 0), span(1, 1), span(2, 1)}
	case m == 2:
		return []Span{span(0, 0), span(1, 1), span(2, 2)}
	default:
		delta := int(math.Round(float64(m) / 3))
		spans := make([]Span, 0, m+1)
		for p := 0; p <= m; p++ {
			s := 2
			switch {
			case p < delta:
				s = 0
			case p <= 2*delta:
				s = 1
			}
			spans = append(spans, span(s, p))
		}
		return spans
	}
}
