// Package raster reads single-channel TIFF height maps into heightfield
// values and writes them back out.
//
// Decode accepts classic TIFF in either byte order with strip layout and
// one sample per pixel. Supported encodings are 32-bit IEEE float (kept as
// micrometers), 16-bit unsigned and 8-bit unsigned (both mapped onto
// [-1, 1]). Strips may be uncompressed, LZW, Deflate or PackBits coded, with
// or without the horizontal predictor.
//
// Every failure is a *DecodeError whose Kind matches one of the Err*
// sentinels through errors.Is:
//
//	f, err := raster.DecodeFile("scan.tif")
//	if errors.Is(err, raster.ErrUnsupportedChannels) {
//		// RGB or multi-sample image
//	}
package raster
