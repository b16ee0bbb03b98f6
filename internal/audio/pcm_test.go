package audio

import (
	"encoding/binary"
	"testing"
)

func TestFloatTo16BitPCM(t *testing.T) {
	out := FloatTo16BitPCM([]float32{1.0, -1.0, 0.0})
	if len(out) != 6 {
		t.Fatalf("Expected 6 bytes, got %d", len(out))
	}

	want := []int16{32767, -32768, 0}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(out[i*2:]))
		if got != w {
			t.Errorf("Sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestFloatTo16BitPCM_Clamps(t *testing.T) {
	out := FloatTo16BitPCM([]float32{2.5, -7, 0.5, -0.5})

	want := []int16{32767, -32768, 16383, -16384}
	for i, w := range want {
		got := int16(binary.LittleEndian.Uint16(out[i*2:]))
		if got != w {
			t.Errorf("Sample %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	pcm := make([]byte, 7)
	binary.LittleEndian.PutUint16(pcm[0:], uint16(0x7FFF))
	binary.LittleEndian.PutUint16(pcm[2:], 0x8000)
	binary.LittleEndian.PutUint16(pcm[4:], 16384)
	pcm[6] = 0xFF

	out := PCM16ToFloat32(pcm)
	if len(out) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(out))
	}
	if out[0] != float32(32767)/32768 {
		t.Errorf("Expected %v, got %v", float32(32767)/32768, out[0])
	}
	if out[1] != -1 {
		t.Errorf("Expected -1, got %v", out[1])
	}
	if out[2] != 0.5 {
		t.Errorf("Expected 0.5, got %v", out[2])
	}
}

func TestPCMRoundTrip(t *testing.T) {
	in := []float32{0, 0.25, -0.25, -1}
	out := PCM16ToFloat32(FloatTo16BitPCM(in))
	for i := range in {
		diff := in[i] - out[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > 1.0/32768 {
			t.Errorf("Sample %d: expected ~%v, got %v", i, in[i], out[i])
		}
	}
}
