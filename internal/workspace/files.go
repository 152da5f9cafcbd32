package workspace

import (
	"errors"
	"os"
	"unicode/utf8"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/marginal/internal/metrics"
)

const (
	writtenFileMode      = 0o644
	debugReadMessage     = "read file"
	debugWriteMessage    = "wrote file"
	logFieldContentBytes = "bytes"
)

// ReadFileContent returns the full textual content of the file at path.
// Missing, unreadable and non UTF-8 files fail with a ReadError, as does an empty path.
func (service *Service) ReadFileContent(path string) (string, error) {
	if path == "" {
		return "", newReadError(readFileFailedFormat, os.ErrNotExist)
	}
	fileData, readFileError := afero.ReadFile(service.filesystem, path)
	if readFileError != nil {
		return "", newReadError(readFileFailedFormat, readFileError)
	}
	if !utf8.Valid(fileData) {
		return "", newReadError(readFileFailedFormat, errors.New(invalidUTF8Message))
	}
	metrics.RecordFileBytes(metrics.DirectionRead, len(fileData))
	service.logger.Debug(debugReadMessage, zap.String(logFieldPath, path), zap.Int(logFieldContentBytes, len(fileData)))
	return string(fileData), nil
}

// WriteFileContent replaces or creates the file at path with content.
// The write is direct: no temporary file, no backup, no parent directory creation.
// An empty path fails with a WriteError.
func (service *Service) WriteFileContent(path string, content string) error {
	if path == "" {
		return newWriteError(os.ErrNotExist)
	}
	if writeFileError := afero.WriteFile(service.filesystem, path, []byte(content), writtenFileMode); writeFileError != nil {
		return newWriteError(writeFileError)
	}
	metrics.RecordFileBytes(metrics.DirectionWrite, len(content))
	service.logger.Debug(debugWriteMessage, zap.String(logFieldPath, path), zap.Int(logFieldContentBytes, len(content)))
	return nil
}
