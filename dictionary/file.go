/*
DESCRIPTION
  file.go provides a binary file format for named float32 matrices, used to
  store dictionaries and whitened sample corpora.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dictionary

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Dataset names.
const (
	DictionaryDataset = "dictionary_descriptors"
	SamplesDataset    = "whitened_patch_descriptors"
)

// Matrix file header fields.
const (
	magic         = "AOMX"
	formatVersion = 1
	maxNameLen    = math.MaxUint16
)

// MaxElements is the largest number of values a matrix file may hold.
const MaxElements = 1 << 28

// readChunk is the number of values read from a matrix file at a time.
const readChunk = 1 << 16

// LoadTolerance is the permitted deviation from unit norm of a loaded
// dictionary's columns.
const LoadTolerance = 1e-3

// Errors returned when reading matrix files.
var (
	ErrBadMagic    = errors.New("not a matrix file")
	ErrBadVersion  = errors.New("unsupported matrix file version")
	ErrWrongName   = errors.New("unexpected dataset name")
	ErrBadShape    = errors.New("bad matrix shape")
	ErrNameTooLong = errors.New("dataset name too long")
)

// header is the fixed size part of the matrix file header that follows the
// dataset name.
type header struct {
	Rows, Cols uint32
}

// WriteMatrix writes a rows x cols row major matrix under the given dataset
// name to w.
func WriteMatrix(w io.Writer, name string, rows, cols int, data []float32) error {
	if len(name) > maxNameLen {
		return ErrNameTooLong
	}
	if rows < 0 || cols < 0 || uint64(rows) > math.MaxUint32 || uint64(cols) > math.MaxUint32 || len(data) != rows*cols {
		return errors.Wrapf(ErrBadShape, "%dx%d with %d elements", rows, cols, len(data))
	}

	bw := bufio.NewWriter(w)
	_, err := bw.WriteString(magic)
	if err != nil {
		return errors.Wrap(err, "could not write magic")
	}
	err = binary.Write(bw, binary.LittleEndian, [2]uint16{formatVersion, uint16(len(name))})
	if err != nil {
		return errors.Wrap(err, "could not write version")
	}
	_, err = bw.WriteString(name)
	if err != nil {
		return errors.Wrap(err, "could not write dataset name")
	}
	err = binary.Write(bw, binary.LittleEndian, header{Rows: uint32(rows), Cols: uint32(cols)})
	if err != nil {
		return errors.Wrap(err, "could not write header")
	}
	err = binary.Write(bw, binary.LittleEndian, data)
	if err != nil {
		return errors.Wrap(err, "could not write matrix data")
	}
	return errors.Wrap(bw.Flush(), "could not flush matrix")
}

// ReadMatrix reads a matrix stored under the given dataset name from r,
// returning its shape and row major data.
func ReadMatrix(r io.Reader, name string) (rows, cols int, data []float32, err error) {
	br := bufio.NewReader(r)
	rows, cols, err = readHeader(br, name)
	if err != nil {
		return 0, 0, nil, err
	}

	// Data grows as values are read, not to the size the header claims.
	n := rows * cols
	data = make([]float32, 0, min(n, readChunk))
	buf := make([]float32, min(n, readChunk))
	for len(data) < n {
		c := buf[:min(n-len(data), readChunk)]
		err = binary.Read(br, binary.LittleEndian, c)
		if err != nil {
			return 0, 0, nil, errors.Wrapf(err, "could not read matrix data at value %d", len(data))
		}
		data = append(data, c...)
	}
	return rows, cols, data, nil
}

func readHeader(r io.Reader, name string) (rows, cols int, err error) {
	var m [len(magic)]byte
	_, err = io.ReadFull(r, m[:])
	if err != nil {
		return 0, 0, errors.Wrap(err, "could not read magic")
	}
	if string(m[:]) != magic {
		return 0, 0, ErrBadMagic
	}

	var vn [2]uint16
	err = binary.Read(r, binary.LittleEndian, &vn)
	if err != nil {
		return 0, 0, errors.Wrap(err, "could not read version")
	}
	if vn[0] != formatVersion {
		return 0, 0, errors.Wrapf(ErrBadVersion, "version %d", vn[0])
	}

	n := make([]byte, vn[1])
	_, err = io.ReadFull(r, n)
	if err != nil {
		return 0, 0, errors.Wrap(err, "could not read dataset name")
	}
	if string(n) != name {
		return 0, 0, errors.Wrapf(ErrWrongName, "got %q, want %q", n, name)
	}

	var h header
	err = binary.Read(r, binary.LittleEndian, &h)
	if err != nil {
		return 0, 0, errors.Wrap(err, "could not read header")
	}
	if uint64(h.Rows)*uint64(h.Cols) > MaxElements {
		return 0, 0, errors.Wrapf(ErrBadShape, "matrix %dx%d exceeds %d values", h.Rows, h.Cols, MaxElements)
	}
	return int(h.Rows), int(h.Cols), nil
}

// Save writes dict to w under DictionaryDataset.
func (dict *Dictionary) Save(w io.Writer) error {
	return WriteMatrix(w, DictionaryDataset, dict.D, dict.K, dict.Data)
}

// Load reads a Dictionary from r. The columns of the stored matrix must be
// unit norm.
func Load(r io.Reader) (*Dictionary, error) {
	d, k, data, err := ReadMatrix(r, DictionaryDataset)
	if err != nil {
		return nil, errors.Wrap(err, "could not read dictionary")
	}
	if d == 0 || k == 0 {
		return nil, errors.Wrapf(ErrBadShape, "empty dictionary %dx%d", d, k)
	}
	dict := &Dictionary{D: d, K: k, Data: data}
	err = dict.CheckUnitNorm(LoadTolerance)
	if err != nil {
		return nil, errors.Wrap(err, "dictionary not unit norm")
	}
	return dict, nil
}

// SaveFile writes dict to the file at path.
func (dict *Dictionary) SaveFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "could not create dictionary file")
	}
	err = dict.Save(f)
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadFile reads a Dictionary from the file at path.
func LoadFile(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open dictionary file")
	}
	defer f.Close()
	return Load(f)
}

// SaveSamples writes the rows of samples to w under SamplesDataset.
func SaveSamples(w io.Writer, samples mat.Matrix) error {
	n, d := samples.Dims()
	data := make([]float32, 0, n*d)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			data = append(data, float32(samples.At(i, j)))
		}
	}
	return WriteMatrix(w, SamplesDataset, n, d, data)
}

// LoadSamples reads an N x d matrix of sample descriptors stored under the
// given dataset name, keeping at most maxN rows when maxN is positive.
func LoadSamples(r io.Reader, name string, d, maxN int) (*mat.Dense, error) {
	br := bufio.NewReader(r)
	n, cols, err := readHeader(br, name)
	if err != nil {
		return nil, errors.Wrap(err, "could not read samples")
	}
	if cols != d {
		return nil, errors.Wrapf(ErrBadShape, "samples have dimension %d, want %d", cols, d)
	}
	if n == 0 {
		return nil, errors.Wrap(ErrBadShape, "no samples")
	}
	if maxN > 0 && n > maxN {
		n = maxN
	}

	// Only the kept rows are read.
	row := make([]float32, d)
	data := make([]float64, 0, min(n*d, readChunk))
	for i := 0; i < n; i++ {
		err = binary.Read(br, binary.LittleEndian, row)
		if err != nil {
			return nil, errors.Wrapf(err, "could not read sample %d", i)
		}
		for _, v := range row {
			data = append(data, float64(v))
		}
	}
	return mat.NewDense(n, d, data), nil
}
