// Package firmware opens firmware images for upload to the Gecko bootloader.
//
// # GBL File Format
//
// Gecko bootloader images (.gbl) are a sequence of tags:
//
//	[TAG_ID(4)][TAG_LEN(4)][PAYLOAD(TAG_LEN)]
//
// All integers are little-endian. The first tag is the header:
//
//	EB 17 A6 03  = Header tag (0x03A617EB)
//	08 00 00 00  = Length (8)
//	VERSION(4) TYPE(4)
//
// and the last one is the end tag (0xFC0404FC) carrying a CRC-32 of the file.
//
// The image is uploaded byte-for-byte; the bootloader validates it. This
// package only checks that the path is usable and reports whether a GBL
// header is present, so callers can warn about obviously wrong files.
//
// # Usage
//
//	img, err := firmware.Open("ncp.gbl")
//	if err != nil {
//	    // errors.Is(err, firmware.ErrInvalidFile) for missing paths
//	    log.Fatal(err)
//	}
//	defer img.Close()
package firmware
