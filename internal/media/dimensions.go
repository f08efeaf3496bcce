package media

import (
	"bytes"
	"encoding/binary"

	"github.com/kondohub/kondo-scraper/internal/model"
)

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	gifSignature = []byte("GIF8")
)

// ParseDimensions reads pixel dimensions from the leading bytes of an
// image. It returns nil for unsupported formats and truncated or corrupt
// headers.
func ParseDimensions(b []byte) *model.Dimensions {
	switch {
	case bytes.HasPrefix(b, pngSignature):
		return parsePNG(b)
	case len(b) > 2 && b[0] == 0xFF && b[1] == 0xD8:
		return parseJPEG(b)
	case bytes.HasPrefix(b, gifSignature):
		return parseGIF(b)
	case len(b) >= 12 && string(b[0:4]) == "RIFF" && string(b[8:12]) == "WEBP":
		return parseWebP(b)
	case len(b) >= 12 && string(b[4:8]) == "ftyp" && (string(b[8:12]) == "avif" || string(b[8:12]) == "avis" || bytes.Contains(b[8:min(len(b), 64)], []byte("avif"))):
		return parseAVIF(b)
	}
	return nil
}

func dims(w, h int, format string) *model.Dimensions {
	if w <= 0 || h <= 0 {
		return nil
	}
	return &model.Dimensions{Width: w, Height: h, Format: format}
}

// parsePNG reads the IHDR chunk, which always follows the signature.
func parsePNG(b []byte) *model.Dimensions {
	if len(b) < 24 || string(b[12:16]) != "IHDR" {
		return nil
	}
	w := binary.BigEndian.Uint32(b[16:20])
	h := binary.BigEndian.Uint32(b[20:24])
	return dims(int(w), int(h), "png")
}

// parseJPEG walks the marker segments until a baseline or progressive
// start-of-frame (SOF0 to SOF3).
func parseJPEG(b []byte) *model.Dimensions {
	i := 2
	for i+3 < len(b) {
		if b[i] != 0xFF {
			return nil
		}
		marker := b[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if marker == 0xD9 || marker == 0xDA {
			return nil
		}
		length := int(binary.BigEndian.Uint16(b[i+2 : i+4]))
		if length < 2 {
			return nil
		}
		if marker >= 0xC0 && marker <= 0xC3 {
			if i+9 > len(b) {
				return nil
			}
			h := binary.BigEndian.Uint16(b[i+5 : i+7])
			w := binary.BigEndian.Uint16(b[i+7 : i+9])
			return dims(int(w), int(h), "jpeg")
		}
		i += 2 + length
	}
	return nil
}

func parseGIF(b []byte) *model.Dimensions {
	if len(b) < 10 {
		return nil
	}
	w := binary.LittleEndian.Uint16(b[6:8])
	h := binary.LittleEndian.Uint16(b[8:10])
	return dims(int(w), int(h), "gif")
}

func parseWebP(b []byte) *model.Dimensions {
	if len(b) < 30 {
		return nil
	}
	switch string(b[12:16]) {
	case "VP8 ":
		w := binary.LittleEndian.Uint16(b[26:28]) & 0x3FFF
		h := binary.LittleEndian.Uint16(b[28:30]) & 0x3FFF
		return dims(int(w), int(h), "webp")
	case "VP8L":
		if b[20] != 0x2F {
			return nil
		}
		bits := binary.LittleEndian.Uint32(b[21:25])
		w := int(bits&0x3FFF) + 1
		h := int((bits>>14)&0x3FFF) + 1
		return dims(w, h, "webp")
	case "VP8X":
		w := int(b[24]) | int(b[25])<<8 | int(b[26])<<16
		h := int(b[27]) | int(b[28])<<8 | int(b[29])<<16
		return dims(w+1, h+1, "webp")
	}
	return nil
}

// parseAVIF locates the first image spatial extents ("ispe") property box.
// Its payload is a 4-byte version/flags field followed by big-endian width
// and height.
func parseAVIF(b []byte) *model.Dimensions {
	i := bytes.Index(b, []byte("ispe"))
	if i < 0 || i+16 > len(b) {
		return nil
	}
	w := binary.BigEndian.Uint32(b[i+8 : i+12])
	h := binary.BigEndian.Uint32(b[i+12 : i+16])
	return dims(int(w), int(h), "avif")
}
