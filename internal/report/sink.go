package report

import (
	"context"
	"os"
	"path/filepath"

	"github.com/roach88/offpos/internal/model"
)

// Sink receives finished exports, e.g. to save them or hand them to a
// share dialog.
type Sink interface {
	WriteAndOffer(ctx context.Context, content []byte, filename, mimeType string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, content []byte, filename, mimeType string) error

// WriteAndOffer calls f.
func (f SinkFunc) WriteAndOffer(ctx context.Context, content []byte, filename, mimeType string) error {
	return f(ctx, content, filename, mimeType)
}

// DirSink writes exports into a directory. Files are written to a temporary
// name and renamed, so readers never observe a partial export.
type DirSink struct {
	Dir string
}

// Path returns where filename is written.
func (d DirSink) Path(filename string) string {
	return filepath.Join(d.Dir, filepath.Base(filename))
}

// WriteAndOffer writes content to Dir/filename, replacing any existing file.
func (d DirSink) WriteAndOffer(ctx context.Context, content []byte, filename, _ string) error {
	const op = "report.write"
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return model.WrapError(model.CodeIOFailure, op, err)
	}

	tmp, err := os.CreateTemp(d.Dir, ".export-*")
	if err != nil {
		return model.WrapError(model.CodeIOFailure, op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return model.WrapError(model.CodeIOFailure, op, err)
	}
	if err := tmp.Close(); err != nil {
		return model.WrapError(model.CodeIOFailure, op, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return model.WrapError(model.CodeIOFailure, op, err)
	}
	if err := os.Rename(tmp.Name(), d.Path(filename)); err != nil {
		return model.WrapError(model.CodeIOFailure, op, err)
	}
	return nil
}
