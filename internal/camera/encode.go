package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// frameFilename matches the historical capture naming convention the file
// resolver (C9) knows how to decompose: "frame<seq>_<w>x<h>.bmp".
func frameFilename(seq, w, h int) string {
	return fmt.Sprintf("frame%03d_%dx%d.bmp", seq, w, h)
}

// encodeBMP turns a raw RGB frame into BMP bytes via OpenCV (spec.md §4.7
// names OpenCV explicitly for the BMP<->JPEG path; we reuse the same
// binding here for the inverse direction on capture).
func encodeBMP(f model.Frame) []byte {
	if f.Width <= 0 || f.Height <= 0 || len(f.Image) < f.Width*f.Height*3 {
		return nil
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Image)
	if err != nil {
		return nil
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBToBGR)

	buf, err := gocv.IMEncode(".bmp", bgr)
	if err != nil {
		return nil
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out
}

// encodeJPEG transcodes a raw RGB frame to JPEG at the given quality
// (10..100), used by the MJPEG producer (C7) and the camera snapshot
// endpoint.
func encodeJPEG(f model.Frame, quality int) ([]byte, error) {
	if f.Width <= 0 || f.Height <= 0 || len(f.Image) < f.Width*f.Height*3 {
		return nil, fmt.Errorf("camera: invalid frame dimensions")
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Image)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBToBGR)

	params := []int{gocv.IMWriteJpegQuality, quality}
	buf, err := gocv.IMEncodeWithParams(".jpg", bgr, params)
	if err != nil {
		return nil, err
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

// EncodeJPEG is the exported form used by internal/httpapi and internal/streaming.
func EncodeJPEG(f model.Frame, quality int) ([]byte, error) {
	return encodeJPEG(f, quality)
}

// BMPToJPEG decodes an encoded BMP file's bytes and re-encodes them as
// JPEG at quality, used by internal/cache and internal/streaming's
// convert-on-demand transcode paths (spec.md §4.7, §4.8).
func BMPToJPEG(bmp []byte, quality int) ([]byte, error) {
	mat, err := gocv.IMDecode(bmp, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("camera: decode bmp: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("camera: decode bmp: empty image")
	}

	params := []int{gocv.IMWriteJpegQuality, quality}
	buf, err := gocv.IMEncodeWithParams(".jpg", mat, params)
	if err != nil {
		return nil, fmt.Errorf("camera: encode jpeg: %w", err)
	}
	defer buf.Close()
	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
