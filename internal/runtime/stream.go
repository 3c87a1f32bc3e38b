package runtime

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/aiwf/internal/types"
)

const chunkSize = 32 * 1024

func openArtifact(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open artifact %s: %w", name, err)
	}
	return f, nil
}

// pump copies r to the artifact file chunk by chunk. Every chunk is
// followed by a stream event and an artifact_written event. After a failed
// chunk the rest of src is discarded so the child never blocks on a full
// pipe and still exits.
func (r *recorder) pump(src io.Reader, dst *os.File, eventType string) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := r.chunk(dst, eventType, string(buf[:n])); werr != nil {
				_, _ = io.Copy(io.Discard, src)
				return werr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, fs.ErrClosed) {
				return nil
			}
			return fmt.Errorf("read %s: %w", eventType, err)
		}
	}
}

func (r *recorder) chunk(dst *os.File, eventType, data string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := dst.WriteString(data); err != nil {
		return fmt.Errorf("write %s artifact: %w", eventType, err)
	}
	if err := r.emit(types.Document{"type": eventType, "data": data}); err != nil {
		return err
	}
	return r.emit(types.Document{"type": types.EventArtifactWritten, "path": dst.Name()})
}
