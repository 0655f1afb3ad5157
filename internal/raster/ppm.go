package raster

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
)

// maxHeaderValue caps numeric header fields while they are being parsed.
const maxHeaderValue = 1 << 30

// chunkPixels bounds how many pixels are buffered ahead of the data that has
// actually arrived, so a header promising more than the stream holds costs
// little.
const chunkPixels = 1 << 16

// DecodeFile reads a PPM image from path. Every failure is a *DecodeError
// carrying the path.
func DecodeFile(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Reason: "open file", Err: err}
	}
	defer f.Close()

	img, err := Decode(f)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			de.Path = path
			return nil, de
		}
		return nil, &DecodeError{Path: path, Reason: "read file", Err: err}
	}
	return img, nil
}

// Decode parses a binary (P6) or plain (P3) PPM stream.
func Decode(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	var magic [2]byte
	if _, err := io.ReadFull(br, magic[:]); err != nil {
		return nil, &DecodeError{Reason: "missing magic number", Err: err}
	}
	plain := false
	switch string(magic[:]) {
	case "P6":
	case "P3":
		plain = true
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("not a PPM file (magic %q)", magic[:])}
	}
	if c, err := br.ReadByte(); err != nil || !isSpace(c) {
		return nil, &DecodeError{Reason: "missing separator after magic number", Err: err}
	}

	width, err := readHeaderInt(br)
	if err != nil {
		return nil, &DecodeError{Reason: "read width", Err: err}
	}
	height, err := readHeaderInt(br)
	if err != nil {
		return nil, &DecodeError{Reason: "read height", Err: err}
	}
	maxval, err := readHeaderInt(br)
	if err != nil {
		return nil, &DecodeError{Reason: "read maxval", Err: err}
	}
	if width == 0 || height == 0 {
		return nil, &DecodeError{Reason: fmt.Sprintf("zero dimension %dx%d", width, height)}
	}
	if maxval == 0 || maxval > 0xffff {
		return nil, &DecodeError{Reason: fmt.Sprintf("maxval %d out of range", maxval)}
	}

	if width > MaxPixels/height {
		return nil, &DecodeError{Reason: "allocate image", Err: fmt.Errorf("dimensions %dx%d exceed %d pixels", width, height, MaxPixels)}
	}

	n := width * height
	var pix []Color
	if plain {
		pix, err = readPlainPixels(br, n, maxval)
	} else {
		pix, err = readBinaryPixels(br, n, maxval)
	}
	if err != nil {
		return nil, err
	}
	return &Image{Width: width, Height: height, Pix: pix}, nil
}

// readBinaryPixels reads n raw pixels, growing the slice as samples arrive.
func readBinaryPixels(br *bufio.Reader, n, maxval int) ([]Color, error) {
	bps := 1
	if maxval > 0xff {
		bps = 2
	}
	pix := make([]Color, 0, min(n, chunkPixels))
	buf := make([]byte, min(n, chunkPixels)*3*bps)
	for len(pix) < n {
		chunk := buf[:min(n-len(pix), chunkPixels)*3*bps]
		if _, err := io.ReadFull(br, chunk); err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("truncated pixel data at pixel %d", len(pix)), Err: err}
		}
		for off := 0; off < len(chunk); off += 3 * bps {
			var s [3]int
			for ch := 0; ch < 3; ch++ {
				i := off + ch*bps
				if bps == 1 {
					s[ch] = int(chunk[i])
				} else {
					s[ch] = int(chunk[i])<<8 | int(chunk[i+1])
				}
			}
			c, err := sampleColor(s, maxval)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("pixel %d", len(pix)), Err: err}
			}
			pix = append(pix, c)
		}
	}
	return pix, nil
}

func readPlainPixels(br *bufio.Reader, n, maxval int) ([]Color, error) {
	pix := make([]Color, 0, min(n, chunkPixels))
	for i := 0; i < n; i++ {
		var s [3]int
		for ch := 0; ch < 3; ch++ {
			v, err := readHeaderInt(br)
			if err != nil {
				return nil, &DecodeError{Reason: fmt.Sprintf("truncated pixel data at pixel %d", i), Err: err}
			}
			s[ch] = v
		}
		c, err := sampleColor(s, maxval)
		if err != nil {
			return nil, &DecodeError{Reason: fmt.Sprintf("pixel %d", i), Err: err}
		}
		pix = append(pix, c)
	}
	return pix, nil
}

// sampleColor rescales samples in [0, maxval] to 8 bits.
func sampleColor(s [3]int, maxval int) (Color, error) {
	var out [3]uint8
	for i, v := range s {
		if v > maxval {
			return Color{}, fmt.Errorf("sample %d exceeds maxval %d", v, maxval)
		}
		if maxval == 0xff {
			out[i] = uint8(v)
			continue
		}
		out[i] = uint8((v*0xff + maxval/2) / maxval)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

// readHeaderInt skips whitespace and # comments, then reads one decimal
// number. The single whitespace byte ending the number is consumed, which
// for maxval is exactly the separator before binary raster data.
func readHeaderInt(br *bufio.Reader) (int, error) {
	c, err := skipSeparators(br)
	if err != nil {
		return 0, err
	}
	if !isDigit(c) {
		return 0, fmt.Errorf("unexpected byte %q", c)
	}
	n := 0
	for {
		n = n*10 + int(c-'0')
		if n > maxHeaderValue {
			return 0, errors.New("value too large")
		}
		c, err = br.ReadByte()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		switch {
		case isDigit(c):
		case isSpace(c):
			return n, nil
		case c == '#':
			return n, br.UnreadByte()
		default:
			return 0, fmt.Errorf("unexpected byte %q after %d", c, n)
		}
	}
}

func skipSeparators(br *bufio.Reader) (byte, error) {
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		switch {
		case c == '#':
			if _, err := br.ReadString('\n'); err != nil {
				if err == io.EOF {
					return 0, io.ErrUnexpectedEOF
				}
				return 0, err
			}
		case isSpace(c):
		default:
			return c, nil
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

// Encode writes img as a binary PPM with maxval 255.
func Encode(w io.Writer, img *Image) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 || len(img.Pix) != img.Width*img.Height {
		return errors.New("encode: invalid image")
	}
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintf(bw, "P6\n%d %d\n255\n", img.Width, img.Height); err != nil {
		return err
	}
	for _, c := range img.Pix {
		if _, err := bw.Write([]byte{c.R, c.G, c.B}); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile encodes img to path, replacing any existing file.
func WriteFile(path string, img *Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
