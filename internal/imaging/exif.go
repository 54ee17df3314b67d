package imaging

import "encoding/binary"

const orientationTag = 0x0112

// Orientation extracts the EXIF orientation value (1-8) from JPEG bytes.
// Missing or malformed metadata yields 1, the upright default.
func Orientation(data []byte) int {
	app1 := findAPP1(data)
	if app1 == nil {
		return 1
	}
	return tiffOrientation(app1)
}

// findAPP1 walks the JPEG segment stream looking for the Exif APP1 payload.
func findAPP1(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil
	}
	offset := 2
	for offset+4 <= len(data) {
		if data[offset] != 0xFF {
			return nil
		}
		marker := data[offset+1]
		// Standalone markers carry no length.
		if marker == 0xD8 || (marker >= 0xD0 && marker <= 0xD7) || marker == 0x01 {
			offset += 2
			continue
		}
		// Start of scan: no metadata past this point.
		if marker == 0xDA {
			return nil
		}
		length := int(binary.BigEndian.Uint16(data[offset+2 : offset+4]))
		if length < 2 || offset+2+length > len(data) {
			return nil
		}
		segment := data[offset+4 : offset+2+length]
		if marker == 0xE1 && len(segment) > 6 && string(segment[:6]) == "Exif\x00\x00" {
			return segment[6:]
		}
		offset += 2 + length
	}
	return nil
}

// tiffOrientation reads the orientation entry out of IFD0 in a TIFF blob.
func tiffOrientation(tiff []byte) int {
	if len(tiff) < 8 {
		return 1
	}
	var order binary.ByteOrder
	switch string(tiff[:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return 1
	}
	if order.Uint16(tiff[2:4]) != 42 {
		return 1
	}
	ifdOffset := int(order.Uint32(tiff[4:8]))
	if ifdOffset < 8 || ifdOffset+2 > len(tiff) {
		return 1
	}
	count := int(order.Uint16(tiff[ifdOffset : ifdOffset+2]))
	entries := tiff[ifdOffset+2:]
	for i := 0; i < count; i++ {
		base := i * 12
		if base+12 > len(entries) {
			return 1
		}
		entry := entries[base : base+12]
		if order.Uint16(entry[0:2]) != orientationTag {
			continue
		}
		// Orientation is a SHORT stored inline in the value field.
		if order.Uint16(entry[2:4]) != 3 {
			return 1
		}
		value := int(order.Uint16(entry[8:10]))
		if value >= 1 && value <= 8 {
			return value
		}
		return 1
	}
	return 1
}
