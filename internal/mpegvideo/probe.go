package mpegvideo

// ProbeElementaryStream is a supplemented feature (not in the distilled
// spec, present in mkvtoolnix's src/input/r_mpeg.cpp): a cheap, allocation-
// free sniff of whether buf looks like a raw MPEG-1/2 video elementary
// stream, as opposed to an MPEG transport stream (0x47 sync byte every 188
// bytes) or an MPEG program stream (pack-header start code 0x000001BA).
// No caller in this repository uses it: cmd/mkvmux opens its --video input
// as MPEG-1/2 without probing.
func ProbeElementaryStream(buf []byte) bool {
	if len(buf) >= 4 && buf[0] == 0x47 {
		return false // looks like an MPEG-TS sync byte run
	}
	if hasStartCode(buf, 0x00, 0x00, 0x01, 0xBA) {
		return false // program stream pack header
	}
	return hasStartCode(buf, 0x00, 0x00, 0x01, 0xB3) // sequence header
}

func hasStartCode(buf []byte, b0, b1, b2, b3 byte) bool {
	for i := 0; i+4 <= len(buf); i++ {
		if buf[i] == b0 && buf[i+1] == b1 && buf[i+2] == b2 && buf[i+3] == b3 {
			return true
		}
	}
	return false
}
