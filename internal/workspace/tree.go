// Package workspace implements the filesystem commands the editor front end invokes:
// listing a directory tree, reading a file and writing a file.
package workspace

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/marginal/internal/metrics"
	"github.com/temirov/marginal/internal/types"
)

const (
	hiddenEntryPrefix = "."

	warningSkipSubdirectoryMessage = "listing subdirectory as empty"
	warningSymlinkCycleMessage     = "symlink cycle detected, listing directory as empty"
	warningCanonicalPathMessage    = "unable to resolve canonical path, listing directory as empty"
	logFieldPath                   = "path"
)

// Service executes workspace commands against a filesystem.
// Every call works on live filesystem state; nothing is cached between calls.
type Service struct {
	filesystem   afero.Fs
	logger       *zap.Logger
	canonicalize func(string) (string, error)
}

// NewService constructs a Service. A nil filesystem selects the operating system
// filesystem and a nil logger discards log output.
func NewService(filesystem afero.Fs, logger *zap.Logger) *Service {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	canonicalize := cleanPath
	if _, isOperatingSystem := filesystem.(*afero.OsFs); isOperatingSystem {
		canonicalize = filepath.EvalSymlinks
	}
	return &Service{
		filesystem:   filesystem,
		logger:       logger,
		canonicalize: canonicalize,
	}
}

func cleanPath(path string) (string, error) {
	return filepath.Clean(path), nil
}

// BuildTree lists the visible contents of rootDirectoryPath as a nested, ordered tree.
// Entry paths keep the root exactly as given: a root of "./notes" yields "./notes/a.md".
//
// Errors at the root abort the call: NotFound when the path cannot be stat'ed,
// NotADirectory when it is not a directory and ReadError when its entries cannot
// be enumerated. A subdirectory that cannot be enumerated is listed with empty
// children and a warning is logged.
func (service *Service) BuildTree(rootDirectoryPath string) ([]types.DirectoryEntry, error) {
	startedAt := time.Now()
	if rootDirectoryPath == "" {
		return nil, newNotFoundError(os.ErrNotExist)
	}
	rootInfo, rootStatError := service.filesystem.Stat(rootDirectoryPath)
	if rootStatError != nil {
		return nil, newNotFoundError(rootStatError)
	}
	if !rootInfo.IsDir() {
		return nil, newNotADirectoryError()
	}

	ancestors := make(map[string]struct{})
	if canonicalRoot, canonicalError := service.canonicalize(rootDirectoryPath); canonicalError == nil {
		ancestors[canonicalRoot] = struct{}{}
	}

	entries, buildError := service.buildEntries(rootDirectoryPath, ancestors)
	if buildError != nil {
		return nil, buildError
	}
	metrics.RecordTreeBuild(countEntries(entries), time.Since(startedAt))
	return entries, nil
}

// buildEntries enumerates one directory level and recurses into subdirectories.
func (service *Service) buildEntries(currentDirectoryPath string, ancestors map[string]struct{}) ([]types.DirectoryEntry, error) {
	fileInfos, readDirectoryError := afero.ReadDir(service.filesystem, currentDirectoryPath)
	if readDirectoryError != nil {
		return nil, newReadError(readDirectoryFailedFormat, readDirectoryError)
	}

	entries := make([]types.DirectoryEntry, 0, len(fileInfos))
	for _, fileInfo := range fileInfos {
		entryName := fileInfo.Name()
		if isHidden(entryName) {
			continue
		}
		childPath := joinEntryPath(currentDirectoryPath, entryName)
		entry := types.DirectoryEntry{
			Name:        entryName,
			Path:        childPath,
			IsDirectory: service.isDirectory(childPath, fileInfo),
		}
		if entry.IsDirectory {
			entry.Children = service.buildChildren(childPath, ancestors)
		}
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

// buildChildren applies the partial-failure policy: any failure below the root
// yields an empty, non-nil child list.
func (service *Service) buildChildren(directoryPath string, ancestors map[string]struct{}) []types.DirectoryEntry {
	canonicalPath, canonicalError := service.canonicalize(directoryPath)
	if canonicalError != nil {
		service.logger.Warn(warningCanonicalPathMessage, zap.String(logFieldPath, directoryPath), zap.Error(canonicalError))
		return []types.DirectoryEntry{}
	}
	if _, onStack := ancestors[canonicalPath]; onStack {
		service.logger.Warn(warningSymlinkCycleMessage, zap.String(logFieldPath, directoryPath))
		return []types.DirectoryEntry{}
	}

	ancestors[canonicalPath] = struct{}{}
	defer delete(ancestors, canonicalPath)

	children, buildError := service.buildEntries(directoryPath, ancestors)
	if buildError != nil {
		service.logger.Warn(warningSkipSubdirectoryMessage, zap.String(logFieldPath, directoryPath), zap.Error(buildError))
		return []types.DirectoryEntry{}
	}
	return children
}

// isDirectory follows symlinks. A dangling link is classified from its listing metadata.
func (service *Service) isDirectory(entryPath string, listedInfo os.FileInfo) bool {
	if listedInfo.Mode()&os.ModeSymlink == 0 {
		return listedInfo.IsDir()
	}
	targetInfo, statError := service.filesystem.Stat(entryPath)
	if statError != nil {
		return listedInfo.IsDir()
	}
	return targetInfo.IsDir()
}

// joinEntryPath appends name to parentPath without cleaning the parent.
func joinEntryPath(parentPath string, name string) string {
	if strings.HasSuffix(parentPath, string(filepath.Separator)) || strings.HasSuffix(parentPath, "/") {
		return parentPath + name
	}
	return parentPath + string(filepath.Separator) + name
}

func countEntries(entries []types.DirectoryEntry) int {
	total := len(entries)
	for _, entry := range entries {
		total += countEntries(entry.Children)
	}
	return total
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, hiddenEntryPrefix)
}

// sortEntries places directories before files and orders each group by
// case-insensitive name. The listing is already byte-ordered, so ties keep that order.
func sortEntries(entries []types.DirectoryEntry) {
	sort.SliceStable(entries, func(leftIndex, rightIndex int) bool {
		left := entries[leftIndex]
		right := entries[rightIndex]
		if left.IsDirectory != right.IsDirectory {
			return left.IsDirectory
		}
		return strings.ToLower(left.Name) < strings.ToLower(right.Name)
	})
}
