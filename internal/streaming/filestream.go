package streaming

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/camera"
	"github.com/masaki-techport/oin-wood-inspection-second-sub001/internal/model"
)

// FileProducer serves a file in fixed-size chunks, converting a BMP
// capture to JPEG on the fly when the client requests it (spec.md §4.7:
// the file stream endpoint transcodes convert-on-demand rather than
// storing a second copy).
type FileProducer struct {
	registry   *Registry
	log        *zap.SugaredLogger
	chunkBytes int
}

func NewFileProducer(registry *Registry, chunkBytes int, log *zap.SugaredLogger) *FileProducer {
	if chunkBytes <= 0 {
		chunkBytes = 64 * 1024
	}
	return &FileProducer{registry: registry, chunkBytes: chunkBytes, log: log}
}

// Serve streams path to w. When convertToJPEG is true and path is a .bmp
// file, the whole file is decoded, transcoded once, and the JPEG bytes are
// then chunked out — the transcode itself is not streamable, but the wire
// transfer still is.
func (p *FileProducer) Serve(ctx context.Context, w http.ResponseWriter, endpoint, path string, convertToJPEG bool, slowClientTimeout time.Duration) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming: response writer does not support flushing")
	}

	reg, detach := p.registry.Register(model.StreamFile, endpoint)
	defer detach()

	var reader io.Reader
	if convertToJPEG && strings.HasSuffix(strings.ToLower(path), ".bmp") {
		jpeg, err := p.transcodeBMPtoJPEG(path)
		if err != nil {
			p.registry.RecordError(reg)
			return err
		}
		w.Header().Set("Content-Type", "image/jpeg")
		reader = newByteReader(jpeg)
	} else {
		f, err := os.Open(path)
		if err != nil {
			p.registry.RecordError(reg)
			return fmt.Errorf("streaming: open %s: %w", path, err)
		}
		defer f.Close()
		w.Header().Set("Content-Type", contentTypeFor(path))
		reader = bufio.NewReaderSize(f, p.chunkBytes)
	}

	buf := make([]byte, p.chunkBytes)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			if werr := writeWithDeadline(w, flusher, slowClientTimeout, buf[:n]); werr != nil {
				p.registry.RecordError(reg)
				p.log.Debugw("streaming: file client dropped", "endpoint", endpoint, "error", werr)
				return werr
			}
			p.registry.RecordWrite(reg, n)
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			p.registry.RecordError(reg)
			return fmt.Errorf("streaming: read %s: %w", path, err)
		}
	}
}

func (p *FileProducer) transcodeBMPtoJPEG(path string) ([]byte, error) {
	bmp, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("streaming: read %s: %w", path, err)
	}
	return camera.BMPToJPEG(bmp, 85)
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(path), ".jpg"), strings.HasSuffix(strings.ToLower(path), ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(strings.ToLower(path), ".bmp"):
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// byteReader is a trivial io.Reader over an in-memory slice, used so the
// transcode-then-chunk path shares the same read loop as the direct-file
// path above.
type byteReader struct {
	data []byte
	pos  int
}

func newByteReader(data []byte) *byteReader { return &byteReader{data: data} }

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
