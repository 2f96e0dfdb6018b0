package index

import (
	"encoding/binary"
	"math"
)

// float32sToBytes encodes a vector as little-endian float32s, the layout
// sqlite-vec's vec0 virtual tables expect for a raw blob column.
func float32sToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32s decodes a vector encoded by float32sToBytes.
func bytesToFloat32s(data []byte) []float32 {
	if len(data)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		vec[i] = math.Float32frombits(bits)
	}
	return vec
}
