package dcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/jpfielding/boaguard.go/pkg/dcm/tag"
)

// WriteFile writes a dataset to a DICOM file
func WriteFile(path string, ds *Dataset) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return Write(f, ds)
}

// Write writes a dataset to a writer using Explicit VR Little Endian.
// The file meta group length (0002,0000) is always computed here, any value already
// present in the dataset is ignored.
func Write(w io.Writer, ds *Dataset) (int64, error) {
	cw := &CountingWriter{Writer: w}

	// Preamble (128 bytes 0x00) and DICM magic
	if _, err := cw.Write(make([]byte, 128)); err != nil {
		return cw.Count.Load(), err
	}
	if _, err := cw.Write([]byte("DICM")); err != nil {
		return cw.Count.Load(), err
	}

	var meta, body []*Element
	for _, elem := range sortedElements(ds) {
		switch {
		case elem.Tag == tag.FileMetaInformationGroupLength:
		case elem.Tag.IsGroup0002():
			meta = append(meta, elem)
		default:
			body = append(body, elem)
		}
	}

	var metaBuf bytes.Buffer
	if err := writeElements(&metaBuf, meta); err != nil {
		return cw.Count.Load(), err
	}
	groupLength := &Element{
		Tag:   tag.FileMetaInformationGroupLength,
		VR:    "UL",
		Value: metaBuf.Len(),
	}
	if _, err := writeElement(cw, groupLength); err != nil {
		return cw.Count.Load(), fmt.Errorf("failed to write group length: %w", err)
	}
	if _, err := cw.Write(metaBuf.Bytes()); err != nil {
		return cw.Count.Load(), err
	}

	if err := writeElements(cw, body); err != nil {
		return cw.Count.Load(), err
	}
	return cw.Count.Load(), nil
}

func sortedElements(ds *Dataset) []*Element {
	elements := make([]*Element, 0, len(ds.Elements))
	for _, elem := range ds.Elements {
		elements = append(elements, elem)
	}
	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Tag.Less(elements[j].Tag)
	})
	return elements
}

func writeElements(w io.Writer, elements []*Element) error {
	for _, elem := range elements {
		if _, err := writeElement(w, elem); err != nil {
			return fmt.Errorf("failed to write element %v: %w", elem.Tag, err)
		}
	}
	return nil
}

func writeElement(w io.Writer, elem *Element) (int, error) {
	cw := &CountingWriter{Writer: w}

	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Group); err != nil {
		return int(cw.Count.Load()), err
	}
	if err := binary.Write(cw, binary.LittleEndian, elem.Tag.Element); err != nil {
		return int(cw.Count.Load()), err
	}

	vr := elem.VR
	if len(vr) != 2 {
		return int(cw.Count.Load()), fmt.Errorf("invalid VR %q for %v", vr, elem.Tag)
	}
	if _, err := cw.Write([]byte(vr)); err != nil {
		return int(cw.Count.Load()), err
	}

	valBytes, err := encodeValue(elem.Value, vr)
	if err != nil {
		return int(cw.Count.Load()), err
	}

	if isLongVR(vr) {
		// 2 reserved bytes then a 4 byte length
		if _, err := cw.Write([]byte{0, 0}); err != nil {
			return int(cw.Count.Load()), err
		}
		if err := binary.Write(cw, binary.LittleEndian, uint32(len(valBytes))); err != nil {
			return int(cw.Count.Load()), err
		}
	} else {
		if len(valBytes) > 0xFFFF {
			return int(cw.Count.Load()), fmt.Errorf("value of %d bytes too long for VR %s", len(valBytes), vr)
		}
		if err := binary.Write(cw, binary.LittleEndian, uint16(len(valBytes))); err != nil {
			return int(cw.Count.Load()), err
		}
	}

	if _, err := cw.Write(valBytes); err != nil {
		return int(cw.Count.Load()), err
	}
	return int(cw.Count.Load()), nil
}

// encodeValue returns the little endian encoding of v, padded to an even length
func encodeValue(v interface{}, vr string) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}

	switch val := v.(type) {
	case *PixelData:
		var buf bytes.Buffer
		for _, frame := range val.Frames {
			if err := binary.Write(&buf, binary.LittleEndian, frame); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	case string:
		return padString(val, vr), nil
	case []string:
		return padString(strings.Join(val, `\`), vr), nil
	case uint16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, val)
		return b, nil
	case []uint16:
		b := make([]byte, len(val)*2)
		for i, u := range val {
			binary.LittleEndian.PutUint16(b[i*2:], u)
		}
		return b, nil
	case int:
		switch vr {
		case "UL", "SL":
			b := make([]byte, 4)
			binary.LittleEndian.PutUint32(b, uint32(val))
			return b, nil
		case "IS":
			return padString(fmt.Sprintf("%d", val), vr), nil
		}
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(val))
		return b, nil
	case []byte:
		if len(val)%2 != 0 {
			return append(append([]byte{}, val...), 0x00), nil
		}
		return val, nil
	}

	return nil, fmt.Errorf("unsupported value type %T for VR %s", v, vr)
}

// padString pads odd length values, UIDs with NUL and everything else with a space
func padString(s, vr string) []byte {
	b := []byte(s)
	if len(b)%2 == 0 {
		return b
	}
	if vr == "UI" {
		return append(b, 0x00)
	}
	return append(b, ' ')
}

// isLongVR returns true if VR uses 4-byte VL (OB, OD, OF, OL, OW, SQ, UC, UR, UT, UN)
func isLongVR(vr string) bool {
	switch vr {
	case "OB", "OD", "OF", "OL", "OW", "SQ", "UC", "UR", "UT", "UN":
		return true
	}
	return false
}

type CountingWriter struct {
	Count  atomic.Int64
	Writer io.Writer
}

func (c *CountingWriter) Write(p []byte) (int, error) {
	n, err := c.Writer.Write(p)
	if err == nil {
		c.Count.Add(int64(n))
	}
	return n, err
}
