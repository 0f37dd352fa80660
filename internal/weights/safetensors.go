package weights

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// tensorMeta mirrors one entry of a safetensors header.
type tensorMeta struct {
	Dtype       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Load reads a single named 2D F32 tensor from a safetensors file. The
// matrix is returned in the file's stored orientation; callers that need
// [in, out] for a checkpoint stored [out, in] should Transpose.
func Load(path, tensor string) (*Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("weights: %w", err)
	}
	if len(data) < 8 {
		return nil, fmt.Errorf("weights: %w: file too small (%d bytes)", ErrBadTensor, len(data))
	}

	// safetensors layout: 8-byte LE header length, JSON header, raw data.
	headerLen := binary.LittleEndian.Uint64(data[:8])
	if uint64(len(data)) < 8+headerLen {
		return nil, fmt.Errorf("weights: %w: header length %d exceeds file size", ErrBadTensor, headerLen)
	}

	var header map[string]json.RawMessage
	if err := json.Unmarshal(data[8:8+headerLen], &header); err != nil {
		return nil, fmt.Errorf("weights: %w: bad header: %v", ErrBadTensor, err)
	}

	raw, ok := header[tensor]
	if !ok {
		return nil, fmt.Errorf("weights: %w: tensor %q not found", ErrBadTensor, tensor)
	}

	var meta tensorMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("weights: %w: bad tensor metadata: %v", ErrBadTensor, err)
	}

	if meta.Dtype != "F32" {
		return nil, fmt.Errorf("weights: %w: expected dtype F32, got %s", ErrBadTensor, meta.Dtype)
	}
	if len(meta.Shape) != 2 {
		return nil, fmt.Errorf("weights: %w: expected 2D tensor, got shape %v", ErrBadTensor, meta.Shape)
	}

	rows, cols := meta.Shape[0], meta.Shape[1]
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("weights: %w: degenerate shape %v", ErrBadTensor, meta.Shape)
	}
	numFloats := rows * cols
	expectedBytes := numFloats * 4

	dataStart := int(8+headerLen) + meta.DataOffsets[0]
	dataEnd := int(8+headerLen) + meta.DataOffsets[1]
	if dataEnd-dataStart != expectedBytes {
		return nil, fmt.Errorf("weights: %w: data size %d doesn't match shape %v",
			ErrBadTensor, dataEnd-dataStart, meta.Shape)
	}
	if dataEnd > len(data) {
		return nil, fmt.Errorf("weights: %w: data range [%d:%d] exceeds file size %d",
			ErrBadTensor, dataStart, dataEnd, len(data))
	}

	values := make([]float32, numFloats)
	for i := range values {
		bits := binary.LittleEndian.Uint32(data[dataStart+i*4 : dataStart+i*4+4])
		values[i] = math.Float32frombits(bits)
	}

	return &Matrix{Data: values, Rows: rows, Cols: cols}, nil
}

// Save writes the matrix as a single-tensor F32 safetensors file. Used to
// persist the reduced projection layer after pruning.
func Save(path, tensor string, m *Matrix) error {
	if m == nil || m.Rows <= 0 || m.Cols <= 0 || len(m.Data) != m.Rows*m.Cols {
		return fmt.Errorf("weights: %w", ErrInvalidShape)
	}

	header, err := json.Marshal(map[string]tensorMeta{
		tensor: {
			Dtype:       "F32",
			Shape:       []int{m.Rows, m.Cols},
			DataOffsets: [2]int{0, len(m.Data) * 4},
		},
	})
	if err != nil {
		return fmt.Errorf("weights: %w", err)
	}

	buf := make([]byte, 0, 8+len(header)+len(m.Data)*4)
	var lenBytes [8]byte
	binary.LittleEndian.PutUint64(lenBytes[:], uint64(len(header)))
	buf = append(buf, lenBytes[:]...)
	buf = append(buf, header...)

	var valBytes [4]byte
	for _, v := range m.Data {
		binary.LittleEndian.PutUint32(valBytes[:], math.Float32bits(v))
		buf = append(buf, valBytes[:]...)
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("weights: %w", err)
	}
	return nil
}
