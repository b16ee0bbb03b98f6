// Package audio converts between float frames and 16-bit PCM and runs the
// capture and playback pipelines of a voice session.
package audio

import "encoding/binary"

const (
	// CaptureSampleRate is the rate the assistant expects microphone audio at
	CaptureSampleRate = 16000

	// PlaybackSampleRate is the rate of the audio the assistant sends back
	PlaybackSampleRate = 24000
)

// FloatTo16BitPCM clamps each sample to [-1, 1] and packs it as signed 16-bit
// little endian. Negative samples scale by 0x8000 and the rest by 0x7FFF.
func FloatTo16BitPCM(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}

		var v int16
		if s < 0 {
			v = int16(s * 0x8000)
		} else {
			v = int16(s * 0x7FFF)
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// PCM16ToFloat32 decodes signed 16-bit little endian samples to floats by
// dividing by 32768. A trailing odd byte is ignored.
func PCM16ToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		out[i] = float32(v) / 32768
	}
	return out
}
