package raster

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDecodeBinaryPPM(t *testing.T) {
	data := append([]byte("P6\n2 1\n255\n"), 0xff, 0x00, 0x00, 0x01, 0x02, 0x03)

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Width != 2 || img.Height != 1 {
		t.Fatalf("expected 2x1, got %dx%d", img.Width, img.Height)
	}
	want := []Color{{R: 0xff}, {R: 1, G: 2, B: 3}}
	for i, c := range want {
		if img.Pix[i] != c {
			t.Fatalf("pixel %d: expected %v, got %v", i, c, img.Pix[i])
		}
	}
}

func TestDecodeSkipsHeaderComments(t *testing.T) {
	header := "P6 # written by hand\n# another comment\n1\t1 # size\n255\n"
	data := append([]byte(header), 10, 20, 30)

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.RGBAt(0, 0); got != (Color{R: 10, G: 20, B: 30}) {
		t.Fatalf("unexpected pixel %v", got)
	}
}

func TestDecodeBinaryRasterMayStartWithWhitespaceByte(t *testing.T) {
	// The first sample is 0x0a ('\n'); only one separator byte follows maxval.
	data := append([]byte("P6\n1 1\n255\n"), '\n', ' ', '#')

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Pix[0]; got != (Color{R: '\n', G: ' ', B: '#'}) {
		t.Fatalf("unexpected pixel %v", got)
	}
}

func TestDecodeSixteenBitSamples(t *testing.T) {
	data := append([]byte("P6\n1 1\n65535\n"), 0xff, 0xff, 0x00, 0x00, 0x80, 0x00)

	img, err := Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := Color{R: 0xff, G: 0, B: 0x80}
	if img.Pix[0] != want {
		t.Fatalf("expected %v, got %v", want, img.Pix[0])
	}
}

func TestDecodeRescalesSmallMaxval(t *testing.T) {
	img, err := Decode(strings.NewReader("P3\n3 1\n15\n15 0 0  0 15 0  0 0 7\n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Color{{R: 0xff}, {G: 0xff}, {B: 119}}
	for i, c := range want {
		if img.Pix[i] != c {
			t.Fatalf("pixel %d: expected %v, got %v", i, c, img.Pix[i])
		}
	}
}

func TestDecodePlainPPM(t *testing.T) {
	src := "P3\n# plain\n2 2\n255\n255 0 0 0 255 0\n0 0 255 # blue\n255 255 255\n"

	img, err := Decode(strings.NewReader(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.NumPixels() != 4 {
		t.Fatalf("expected 4 pixels, got %d", img.NumPixels())
	}
	if got := img.RGBAt(0, 1); got != (Color{B: 0xff}) {
		t.Fatalf("expected blue at (0,1), got %v", got)
	}
	if got := img.RGBAt(1, 1); got != (Color{R: 0xff, G: 0xff, B: 0xff}) {
		t.Fatalf("expected white at (1,1), got %v", got)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		input  []byte
		reason string
	}{
		{name: "empty", input: nil, reason: "missing magic"},
		{name: "wrong magic", input: []byte("P5\n1 1\n255\n\x00"), reason: "not a PPM file"},
		{name: "magic without separator", input: []byte("P61 1 255\n\x01\x02\x03"), reason: "separator"},
		{name: "magic only", input: []byte("P3"), reason: "separator"},
		{name: "zero width", input: []byte("P6\n0 4\n255\n"), reason: "zero dimension"},
		{name: "zero height", input: []byte("P3\n4 0\n255\n"), reason: "zero dimension"},
		{name: "bad maxval", input: []byte("P6\n1 1\n0\n"), reason: "maxval"},
		{name: "maxval too large", input: []byte("P6\n1 1\n70000\n"), reason: "maxval"},
		{name: "garbage header", input: []byte("P6\nabc 1\n255\n"), reason: "read width"},
		{name: "missing height", input: []byte("P6\n1"), reason: "read height"},
		{name: "truncated binary", input: []byte("P6\n2 2\n255\n\x01\x02\x03"), reason: "truncated"},
		{name: "truncated plain", input: []byte("P3\n1 1\n255\n1 2"), reason: "truncated"},
		{name: "sample above maxval", input: []byte("P3\n1 1\n10\n11 0 0\n"), reason: "pixel"},
		{name: "huge dimensions", input: []byte("P6\n1000000 1000000\n255\n"), reason: "allocate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(bytes.NewReader(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("expected *DecodeError, got %T", err)
			}
			if !strings.Contains(de.Reason, tt.reason) {
				t.Fatalf("expected reason containing %q, got %q", tt.reason, de.Reason)
			}
		})
	}
}

func TestDecodeTruncatedHugeHeaderAllocatesLittle(t *testing.T) {
	tests := []string{
		"P6 16384 16384 255\n",
		"P6 268435456 1 255\n\x01\x02\x03",
		"P3 16384 16384 255\n1 2 3\n",
	}
	for _, input := range tests {
		var before, after runtime.MemStats
		runtime.GC()
		runtime.ReadMemStats(&before)

		_, err := Decode(strings.NewReader(input))

		runtime.ReadMemStats(&after)
		var de *DecodeError
		if !errors.As(err, &de) || !strings.Contains(de.Reason, "truncated") {
			t.Fatalf("%q: expected truncated pixel data error, got %v", input, err)
		}
		if got := after.TotalAlloc - before.TotalAlloc; got > 16<<20 {
			t.Fatalf("%q: allocated %d bytes for a %d-byte input", input, got, len(input))
		}
	}
}

func TestDecodeFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.ppm")

	_, err := DecodeFile(path)
	if !IsDecodeError(err) {
		t.Fatalf("expected decode error, got %v", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected path in message, got %q", err.Error())
	}
}

func TestDecodeFileAttachesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ppm")
	if err := os.WriteFile(path, []byte("P6\n0 0\n255\n"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	_, err := DecodeFile(path)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected *DecodeError, got %v", err)
	}
	if de.Path != path {
		t.Fatalf("expected path %q, got %q", path, de.Path)
	}
}

func TestWriteFileThenDecodeFile(t *testing.T) {
	img, err := New(3, 2)
	if err != nil {
		t.Fatalf("new image: %v", err)
	}
	img.SetRGB(2, 1, RGB(0x282c34))
	img.SetRGB(0, 0, RGB(0xffffff))

	path := filepath.Join(t.TempDir(), "out.ppm")
	if err := WriteFile(path, img); err != nil {
		t.Fatalf("write file: %v", err)
	}

	got, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("decode file: %v", err)
	}
	if got.Width != 3 || got.Height != 2 {
		t.Fatalf("expected 3x2, got %dx%d", got.Width, got.Height)
	}
	for i := range img.Pix {
		if got.Pix[i] != img.Pix[i] {
			t.Fatalf("pixel %d: expected %v, got %v", i, img.Pix[i], got.Pix[i])
		}
	}
}

func TestEncodeRejectsInconsistentImage(t *testing.T) {
	bad := &Image{Width: 2, Height: 2, Pix: make([]Color, 3)}
	if err := Encode(&bytes.Buffer{}, bad); err == nil {
		t.Fatal("expected error for short pixel buffer")
	}
}
