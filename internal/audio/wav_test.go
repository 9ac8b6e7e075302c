package audio

import (
	"encoding/binary"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := make([]int16, 16000)
	for i := range samples {
		samples[i] = int16(i%2000 - 1000)
	}

	data, err := EncodeWAV(samples, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if len(data) != 44+len(samples)*2 {
		t.Errorf("Expected %d bytes, got %d", 44+len(samples)*2, len(data))
	}

	decoded, rate, err := DecodeWAV(data)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}

	if len(decoded) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(decoded))
	}

	for i := range samples {
		if decoded[i] != samples[i] {
			t.Fatalf("Sample mismatch at %d: expected %d, got %d", i, samples[i], decoded[i])
		}
	}
}

func TestEncodeWAVEmptySamples(t *testing.T) {
	if _, err := EncodeWAV([]int16{}, 16000); err == nil {
		t.Error("Expected error for empty samples")
	}
}

func TestEncodeWAVInvalidSampleRate(t *testing.T) {
	if _, err := EncodeWAV([]int16{1, 2, 3}, 0); err == nil {
		t.Error("Expected error for zero sample rate")
	}
}

func TestDecodeWAVInvalidData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"too short", []byte{1, 2, 3}},
		{"garbage header", make([]byte, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := DecodeWAV(tt.data); err == nil {
				t.Error("Expected decode error")
			}
		})
	}
}

func TestDecodeWAVStereoDownmix(t *testing.T) {
	// Build a stereo WAV by hand: four frames of interleaved L/R pairs
	interleaved := []int16{100, 200, -100, -200, 1000, 3000, 0, 0}

	mono := []int16{150, -150, 2000, 0}

	valid, err := EncodeWAV(interleaved, 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	// Patch header fields to declare stereo
	binary.LittleEndian.PutUint16(valid[22:24], 2)                // NumChannels
	binary.LittleEndian.PutUint32(valid[28:32], 16000*2*2)        // ByteRate
	binary.LittleEndian.PutUint16(valid[32:34], 4)                // BlockAlign

	decoded, rate, err := DecodeWAV(valid)
	if err != nil {
		t.Fatalf("DecodeWAV failed: %v", err)
	}

	if rate != 16000 {
		t.Errorf("Expected sample rate 16000, got %d", rate)
	}

	if len(decoded) != len(mono) {
		t.Fatalf("Expected %d mono samples, got %d", len(mono), len(decoded))
	}

	for i := range mono {
		if decoded[i] != mono[i] {
			t.Errorf("Downmix mismatch at %d: expected %d, got %d", i, mono[i], decoded[i])
		}
	}
}

func TestResampleSameRate(t *testing.T) {
	samples := []int16{1, 2, 3, 4, 5}

	out, err := Resample(samples, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if len(out) != len(samples) {
		t.Errorf("Expected unchanged length %d, got %d", len(samples), len(out))
	}
}

func TestResampleDownsample(t *testing.T) {
	samples := make([]int16, 48000)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}

	out, err := Resample(samples, 48000, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if len(out) != 16000 {
		t.Errorf("Expected 16000 output samples, got %d", len(out))
	}
}

func TestResampleUpsample(t *testing.T) {
	samples := make([]int16, 8000)

	out, err := Resample(samples, 8000, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if len(out) != 16000 {
		t.Errorf("Expected 16000 output samples, got %d", len(out))
	}
}

func TestResampleInvalidRates(t *testing.T) {
	if _, err := Resample([]int16{1, 2}, 0, 16000); err == nil {
		t.Error("Expected error for zero source rate")
	}

	if _, err := Resample([]int16{1, 2}, 16000, -1); err == nil {
		t.Error("Expected error for negative target rate")
	}
}

func TestValidateWAV(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 100), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	if err := ValidateWAV(data); err != nil {
		t.Errorf("ValidateWAV failed on valid data: %v", err)
	}

	if err := ValidateWAV([]byte("not a wav")); err == nil {
		t.Error("Expected error for invalid data")
	}
}

func TestGetWAVDuration(t *testing.T) {
	data, err := EncodeWAV(make([]int16, 32000), 16000)
	if err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}

	duration, err := GetWAVDuration(data)
	if err != nil {
		t.Fatalf("GetWAVDuration failed: %v", err)
	}

	if duration != 2.0 {
		t.Errorf("Expected 2.0s duration, got %f", duration)
	}
}
