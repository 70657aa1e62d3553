package vkr

import (
	"encoding/binary"
	"unsafe"

	"github.com/pkg/errors"
)

var end = "\x00"
var endChar byte = '\x00'

// ToBytes will take an unsafe.Pointer and length in bytes and convert it
// to a byte slice
func ToBytes(ptr unsafe.Pointer, lenInBytes int) []byte {
	if lenInBytes == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), lenInBytes)
}

// Uint32Bytes returns the little endian byte form of values, the layout a
// storage buffer of u32 expects
func Uint32Bytes(values []uint32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

// BytesUint32 is the inverse of Uint32Bytes, trailing bytes are ignored
func BytesUint32(data []byte) []uint32 {
	out := make([]uint32, len(data)/4)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out
}

// wordsFromBytes turns a SPIR-V binary into its words
func wordsFromBytes(data []byte) ([]uint32, error) {
	if len(data)%4 != 0 {
		return nil, errors.Errorf("spir-v length %d is not a multiple of 4", len(data))
	}
	return BytesUint32(data), nil
}

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != endChar {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, l := range list {
		if l == s {
			return true
		}
	}
	return false
}
