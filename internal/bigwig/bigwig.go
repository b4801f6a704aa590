// Package bigwig reads the bigWig binary format: a 64-byte header, a B+
// tree mapping chromosome names to ids, and an R-tree indexing
// zlib-compressed data sections of bedGraph, varStep, or fixedStep
// intervals. Only the full-resolution data is read; zoom levels are
// skipped.
package bigwig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/klauspost/compress/zlib"
)

const (
	bigWigMagic    = 0x888FFC26
	chromTreeMagic = 0x78CA8C91
	rTreeMagic     = 0x2468ACE0
)

// Section value types.
const (
	typeBedGraph  = 1
	typeVarStep   = 2
	typeFixedStep = 3
)

// Chrom is one chromosome entry from the B+ tree.
type Chrom struct {
	Name string
	ID   uint32
	Size uint32
}

// File is an open bigWig file. It is safe for sequential use; callers
// needing concurrency should open one File per goroutine.
type File struct {
	r     io.ReaderAt
	close io.Closer

	order   binary.ByteOrder
	version uint16

	chromTreeOffset uint64
	dataOffset      uint64
	indexOffset     uint64
	uncompBuf       uint32

	chroms []Chrom
	byName map[string]*Chrom
}

// Version reports the format version from the header.
func (f *File) Version() uint16 { return f.version }

// Open opens the bigWig file at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("bigwig: %w", err)
	}
	bw, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	bw.close = f
	return bw, nil
}

// NewReader reads the header and chromosome tree from r.
func NewReader(r io.ReaderAt) (*File, error) {
	f := &File{r: r, byName: make(map[string]*Chrom)}
	if err := f.readHeader(); err != nil {
		return nil, err
	}
	if err := f.readChromTree(); err != nil {
		return nil, err
	}
	return f, nil
}

// Close releases the underlying file, if any.
func (f *File) Close() error {
	if f.close != nil {
		return f.close.Close()
	}
	return nil
}

// Chroms lists the chromosomes in id order.
func (f *File) Chroms() []Chrom {
	out := make([]Chrom, len(f.chroms))
	copy(out, f.chroms)
	return out
}

func (f *File) readHeader() error {
	var buf [64]byte
	if _, err := f.r.ReadAt(buf[:], 0); err != nil {
		return fmt.Errorf("bigwig: header: %w", err)
	}
	switch {
	case binary.LittleEndian.Uint32(buf[:4]) == bigWigMagic:
		f.order = binary.LittleEndian
	case binary.BigEndian.Uint32(buf[:4]) == bigWigMagic:
		f.order = binary.BigEndian
	default:
		return fmt.Errorf("bigwig: bad magic 0x%08x", binary.LittleEndian.Uint32(buf[:4]))
	}
	f.version = f.order.Uint16(buf[4:6])
	f.chromTreeOffset = f.order.Uint64(buf[8:16])
	f.dataOffset = f.order.Uint64(buf[16:24])
	f.indexOffset = f.order.Uint64(buf[24:32])
	f.uncompBuf = f.order.Uint32(buf[52:56])
	return nil
}

func (f *File) readChromTree() error {
	var hdr [32]byte
	if _, err := f.r.ReadAt(hdr[:], int64(f.chromTreeOffset)); err != nil {
		return fmt.Errorf("bigwig: chrom tree: %w", err)
	}
	if f.order.Uint32(hdr[:4]) != chromTreeMagic {
		return fmt.Errorf("bigwig: bad chrom tree magic 0x%08x", f.order.Uint32(hdr[:4]))
	}
	keySize := f.order.Uint32(hdr[8:12])
	valSize := f.order.Uint32(hdr[12:16])
	if valSize != 8 {
		return fmt.Errorf("bigwig: chrom tree value size %d, want 8", valSize)
	}

	// Iterative walk; bigWig chromosome trees are shallow but nothing
	// stops a writer from nesting them.
	stack := []uint64{f.chromTreeOffset + 32}
	for len(stack) > 0 {
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var nh [4]byte
		if _, err := f.r.ReadAt(nh[:], int64(off)); err != nil {
			return fmt.Errorf("bigwig: chrom tree node: %w", err)
		}
		isLeaf := nh[0] != 0
		count := int(f.order.Uint16(nh[2:4]))
		off += 4

		if isLeaf {
			item := make([]byte, keySize+8)
			for i := 0; i < count; i++ {
				if _, err := f.r.ReadAt(item, int64(off)); err != nil {
					return fmt.Errorf("bigwig: chrom tree leaf: %w", err)
				}
				name := string(bytes.TrimRight(item[:keySize], "\x00"))
				c := Chrom{
					Name: name,
					ID:   f.order.Uint32(item[keySize : keySize+4]),
					Size: f.order.Uint32(item[keySize+4 : keySize+8]),
				}
				f.chroms = append(f.chroms, c)
				off += uint64(keySize) + 8
			}
			continue
		}
		item := make([]byte, keySize+8)
		for i := 0; i < count; i++ {
			if _, err := f.r.ReadAt(item, int64(off)); err != nil {
				return fmt.Errorf("bigwig: chrom tree branch: %w", err)
			}
			stack = append(stack, f.order.Uint64(item[keySize:keySize+8]))
			off += uint64(keySize) + 8
		}
	}

	for i := range f.chroms {
		f.byName[f.chroms[i].Name] = &f.chroms[i]
	}
	return nil
}

// block is one R-tree leaf overlapping a query.
type block struct {
	offset uint64
	size   uint64
}

// overlappingBlocks walks the R-tree and returns the data blocks whose
// extent intersects [start, end) on chromID.
func (f *File) overlappingBlocks(chromID uint32, start, end uint32) ([]block, error) {
	var hdr [48]byte
	if _, err := f.r.ReadAt(hdr[:], int64(f.indexOffset)); err != nil {
		return nil, fmt.Errorf("bigwig: r-tree: %w", err)
	}
	if f.order.Uint32(hdr[:4]) != rTreeMagic {
		return nil, fmt.Errorf("bigwig: bad r-tree magic 0x%08x", f.order.Uint32(hdr[:4]))
	}

	var blocks []block
	stack := []uint64{f.indexOffset + 48}
	for len(stack) > 0 {
		off := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var nh [4]byte
		if _, err := f.r.ReadAt(nh[:], int64(off)); err != nil {
			return nil, fmt.Errorf("bigwig: r-tree node: %w", err)
		}
		isLeaf := nh[0] != 0
		count := int(f.order.Uint16(nh[2:4]))
		off += 4

		itemSize := 24
		if isLeaf {
			itemSize = 32
		}
		buf := make([]byte, itemSize*count)
		if _, err := f.r.ReadAt(buf, int64(off)); err != nil {
			return nil, fmt.Errorf("bigwig: r-tree items: %w", err)
		}
		for i := 0; i < count; i++ {
			it := buf[i*itemSize:]
			startIx := f.order.Uint32(it[0:4])
			startBase := f.order.Uint32(it[4:8])
			endIx := f.order.Uint32(it[8:12])
			endBase := f.order.Uint32(it[12:16])
			if !rangesOverlap(chromID, start, end, startIx, startBase, endIx, endBase) {
				continue
			}
			if isLeaf {
				blocks = append(blocks, block{
					offset: f.order.Uint64(it[16:24]),
					size:   f.order.Uint64(it[24:32]),
				})
			} else {
				stack = append(stack, f.order.Uint64(it[16:24]))
			}
		}
	}
	return blocks, nil
}

// rangesOverlap reports whether (chrom, start, end) intersects the
// multi-chromosome extent (startIx:startBase, endIx:endBase).
func rangesOverlap(chrom, start, end, startIx, startBase, endIx, endBase uint32) bool {
	if chrom < startIx || (chrom == startIx && end <= startBase) {
		return false
	}
	if chrom > endIx || (chrom == endIx && start >= endBase) {
		return false
	}
	return true
}

// Values returns one value per base over [start, end) on chrom. Bases no
// interval covers are 0. The span may extend past the chromosome end;
// the overhang is zero-filled. start must be >= 0.
func (f *File) Values(chrom string, start, end int) ([]float32, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("bigwig: bad span %d-%d", start, end)
	}
	c, ok := f.byName[chrom]
	if !ok {
		return nil, fmt.Errorf("bigwig: chromosome %q not in file", chrom)
	}
	out := make([]float32, end-start)
	qEnd := min(uint32(end), c.Size)
	if uint32(start) >= qEnd {
		return out, nil
	}

	blocks, err := f.overlappingBlocks(c.ID, uint32(start), qEnd)
	if err != nil {
		return nil, err
	}
	for _, blk := range blocks {
		data, err := f.readBlock(blk)
		if err != nil {
			return nil, err
		}
		if err := f.fillFromSections(data, c.ID, start, end, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// readBlock loads and, when the header declares a decompression buffer,
// zlib-inflates one data block.
func (f *File) readBlock(blk block) ([]byte, error) {
	raw := make([]byte, blk.size)
	if _, err := f.r.ReadAt(raw, int64(blk.offset)); err != nil {
		return nil, fmt.Errorf("bigwig: data block: %w", err)
	}
	if f.uncompBuf == 0 {
		return raw, nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("bigwig: inflate: %w", err)
	}
	defer zr.Close()
	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("bigwig: inflate: %w", err)
	}
	return data, nil
}

// fillFromSections decodes every section in a block and writes values
// overlapping [start, end) into out (indexed by base-start).
func (f *File) fillFromSections(data []byte, chromID uint32, start, end int, out []float32) error {
	for len(data) > 0 {
		if len(data) < 24 {
			return fmt.Errorf("bigwig: truncated section header")
		}
		secChrom := f.order.Uint32(data[0:4])
		secStart := f.order.Uint32(data[4:8])
		itemStep := f.order.Uint32(data[12:16])
		itemSpan := f.order.Uint32(data[16:20])
		secType := data[20]
		itemCount := int(f.order.Uint16(data[22:24]))
		data = data[24:]

		var itemSize int
		switch secType {
		case typeBedGraph:
			itemSize = 12
		case typeVarStep:
			itemSize = 8
		case typeFixedStep:
			itemSize = 4
		default:
			return fmt.Errorf("bigwig: unknown section type %d", secType)
		}
		if len(data) < itemSize*itemCount {
			return fmt.Errorf("bigwig: truncated section body")
		}
		body := data[:itemSize*itemCount]
		data = data[itemSize*itemCount:]

		if secChrom != chromID {
			continue
		}
		for i := 0; i < itemCount; i++ {
			it := body[i*itemSize:]
			var s, e uint32
			var v float32
			switch secType {
			case typeBedGraph:
				s = f.order.Uint32(it[0:4])
				e = f.order.Uint32(it[4:8])
				v = f.float32At(it[8:12])
			case typeVarStep:
				s = f.order.Uint32(it[0:4])
				e = s + itemSpan
				v = f.float32At(it[4:8])
			case typeFixedStep:
				s = secStart + uint32(i)*itemStep
				e = s + itemSpan
				v = f.float32At(it[0:4])
			}
			lo := max(int(s), start)
			hi := min(int(e), end)
			for p := lo; p < hi; p++ {
				out[p-start] = v
			}
		}
	}
	return nil
}

func (f *File) float32At(b []byte) float32 {
	return math.Float32frombits(f.order.Uint32(b))
}
