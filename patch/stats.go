/*
DESCRIPTION
  stats.go provides reading and writing of whitening statistics and other
  numeric vectors in a text format holding one number per line.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patch

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ReadValues reads numbers, one per line, from r until EOF. Blank lines are
// skipped.
func ReadValues(r io.Reader) ([]float32, error) {
	var v []float32
	s := bufio.NewScanner(r)
	line := 0
	for s.Scan() {
		line++
		t := strings.TrimSpace(s.Text())
		if t == "" {
			continue
		}
		f, err := strconv.ParseFloat(t, 32)
		if err != nil {
			return nil, fmt.Errorf("could not parse line %d: %w", line, err)
		}
		v = append(v, float32(f))
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("could not read values: %w", err)
	}
	return v, nil
}

// ReadVector reads exactly n numbers, one per line, from r.
func ReadVector(r io.Reader, n int) ([]float32, error) {
	v, err := ReadValues(r)
	if err != nil {
		return nil, err
	}
	if len(v) != n {
		return nil, fmt.Errorf("got %d values, want %d", len(v), n)
	}
	return v, nil
}

// ReadValuesFile reads numbers, one per line, from the file at path.
func ReadValuesFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadValues(f)
}

// WriteVector writes v to w, one number per line.
func WriteVector(w io.Writer, v []float32) error {
	bw := bufio.NewWriter(w)
	for _, f := range v {
		_, err := bw.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32) + "\n")
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}

// LoadWhitener reads a d x d row major inverse square root covariance from
// the file at covarPath and, when meanPath is not empty, a length d mean from
// meanPath.
func LoadWhitener(covarPath, meanPath string, d int) (*Whitener, error) {
	m, err := readVectorFile(covarPath, d*d)
	if err != nil {
		return nil, fmt.Errorf("could not load inverse sqrt covariance: %w", err)
	}
	var mean []float32
	if meanPath != "" {
		mean, err = readVectorFile(meanPath, d)
		if err != nil {
			return nil, fmt.Errorf("could not load mean: %w", err)
		}
	}
	return NewWhitener(m, mean, d)
}

// Save writes the inverse square root covariance and mean of w to the files
// at covarPath and meanPath.
func (w *Whitener) Save(covarPath, meanPath string) error {
	err := writeVectorFile(covarPath, w.InvSqrtCovar)
	if err != nil {
		return fmt.Errorf("could not save inverse sqrt covariance: %w", err)
	}
	err = writeVectorFile(meanPath, w.Mean)
	if err != nil {
		return fmt.Errorf("could not save mean: %w", err)
	}
	return nil
}

func readVectorFile(path string, n int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadVector(f, n)
}

func writeVectorFile(path string, v []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	err = WriteVector(f, v)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
