package ingestion

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/futig/benchwatch/internal/entity"
	"github.com/futig/benchwatch/internal/pkg/validator"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// prepareFileData reads uploaded files into memory so the job can outlive
// the request that carried them.
func (uc *IngestionUsecase) prepareFileData(
	ctx context.Context,
	files []*multipart.FileHeader,
) ([]entity.FileData, error) {
	fileDataList := make([]entity.FileData, 0, len(files))

	for _, fh := range files {
		src, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open file %s: %w", fh.Filename, err)
		}

		content, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return nil, fmt.Errorf("read file %s: %w", fh.Filename, err)
		}

		fileDataList = append(fileDataList, entity.FileData{
			Filename: validator.SanitizeFilename(fh.Filename),
			Content:  content,
		})

		ctxzap.Debug(ctx, "file prepared for ingestion",
			zap.String("filename", fh.Filename),
			zap.Int64("size", fh.Size),
		)
	}

	return fileDataList, nil
}
