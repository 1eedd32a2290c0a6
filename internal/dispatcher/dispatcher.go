package dispatcher

import (
	"context"
	"dropwatch/internal/classify"
	"dropwatch/internal/logger"
	"dropwatch/internal/model"
	"dropwatch/internal/reader"
	"dropwatch/internal/sink"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// ErrSkipped marks a path that is not a file to deliver, such as a newly
// created directory.
var ErrSkipped = errors.New("not a regular file")

type FileReader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

type Dispatcher struct {
	reader FileReader
	sink   sink.Sink
	log    *zap.Logger
}

func New(r FileReader, s sink.Sink, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		reader: r,
		sink:   s,
		log:    logger.OrNop(log),
	}
}

// Deliver reads the file for task and makes exactly one send through the
// sink, picking the method from the file's category.
func (d *Dispatcher) Deliver(ctx context.Context, task model.UploadTask) (model.Category, error) {
	category := classify.Classify(task.Path)

	data, err := d.reader.Read(ctx, task.Path)
	if err != nil {
		if errors.Is(err, reader.ErrDirectory) {
			return category, fmt.Errorf("%s: %w", task.Path, ErrSkipped)
		}
		return category, fmt.Errorf("failed to read %s: %w", task.Path, err)
	}

	file := model.Attachment{
		Name: filepath.Base(task.Path),
		Data: data,
	}

	d.log.Debug("sending file",
		zap.String("task", task.ID),
		zap.String("path", task.Path),
		zap.String("category", string(category)),
		zap.Int("bytes", len(data)))

	switch category {
	case model.CategoryPhoto:
		err = d.sink.SendPhoto(ctx, task.Destination, file)
	case model.CategoryVideo:
		err = d.sink.SendVideo(ctx, task.Destination, file)
	default:
		err = d.sink.SendDocument(ctx, task.Destination, file)
	}

	if err != nil {
		return category, fmt.Errorf("failed to deliver %s: %w", task.Path, err)
	}

	return category, nil
}
