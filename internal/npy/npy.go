// Package npy writes and reads NumPy .npy files, version 1.0, for
// float32 arrays in C order. That is the one dtype the rest of the
// module produces, so nothing more general is attempted.
package npy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

var magic = []byte("\x93NUMPY")

// Write emits data as a little-endian float32 array with the given
// shape. len(data) must equal the product of shape.
func Write(w io.Writer, data []float32, shape []int) error {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(data) {
		return fmt.Errorf("npy: shape %v wants %d elements, have %d", shape, n, len(data))
	}

	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = strconv.Itoa(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", tuple)

	// Total header length, magic and version included, pads to a
	// multiple of 64 with a trailing newline.
	base := len(magic) + 2 + 2
	pad := 64 - (base+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.Write(magic)
	buf.WriteByte(1)
	buf.WriteByte(0)
	binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("npy: %w", err)
	}

	out := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(v))
	}
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("npy: %w", err)
	}
	return nil
}

// WriteFile writes data to path, replacing any existing file.
func WriteFile(path string, data []float32, shape []int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("npy: %w", err)
	}
	if err := Write(f, data, shape); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses a version 1.0 little-endian float32 array.
func Read(r io.Reader) ([]float32, []int, error) {
	head := make([]byte, 10)
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, nil, fmt.Errorf("npy: header: %w", err)
	}
	if !bytes.Equal(head[:6], magic) {
		return nil, nil, fmt.Errorf("npy: bad magic")
	}
	if head[6] != 1 {
		return nil, nil, fmt.Errorf("npy: unsupported version %d.%d", head[6], head[7])
	}
	headerLen := int(binary.LittleEndian.Uint16(head[8:10]))
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, nil, fmt.Errorf("npy: header: %w", err)
	}

	hs := string(header)
	if !strings.Contains(hs, "'<f4'") {
		return nil, nil, fmt.Errorf("npy: only little-endian float32 is supported")
	}
	if strings.Contains(hs, "'fortran_order': True") {
		return nil, nil, fmt.Errorf("npy: fortran order is not supported")
	}
	shape, err := parseShape(hs)
	if err != nil {
		return nil, nil, err
	}

	n := 1
	for _, d := range shape {
		n *= d
	}
	raw := make([]byte, 4*n)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, nil, fmt.Errorf("npy: data: %w", err)
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
	}
	return data, shape, nil
}

// ReadFile reads the array at path.
func ReadFile(path string) ([]float32, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("npy: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func parseShape(header string) ([]int, error) {
	lp := strings.Index(header, "(")
	rp := strings.Index(header, ")")
	if lp < 0 || rp < lp {
		return nil, fmt.Errorf("npy: malformed header %q", header)
	}
	var shape []int
	for _, part := range strings.Split(header[lp+1:rp], ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("npy: bad dimension %q", part)
		}
		shape = append(shape, d)
	}
	return shape, nil
}
