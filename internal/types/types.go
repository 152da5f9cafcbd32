// Package types defines every cross‑package data structure used by the marginal CLI and bridge.
package types

import "encoding/json"

const (
	CommandReadDirTree       = "read_dir_tree"
	CommandReadFileContent   = "read_file_content"
	CommandWriteFileContent  = "write_file_content"
	CommandRenderMarkdown    = "render_markdown"
	CommandMenuEvent         = "menu_event"
	CommandMenuStates        = "menu_states"
	CommandParseDocument     = "parse_document"
	CommandSerializeDocument = "serialize_document"

	FormatRaw  = "raw"
	FormatJSON = "json"

	ViewModeRendered = "rendered"
	ViewModeCode     = "code"
)

// DirectoryEntry is one node of a directory tree listing.
// Children is nil for files and non-nil, possibly empty, for directories.
type DirectoryEntry struct {
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	IsDirectory bool             `json:"is_directory"`
	Children    []DirectoryEntry `json:"children,omitempty"`
}

// directoryEntryJSON mirrors DirectoryEntry without omitempty so that
// directories always carry a children array.
type directoryEntryJSON struct {
	Name        string           `json:"name"`
	Path        string           `json:"path"`
	IsDirectory bool             `json:"is_directory"`
	Children    []DirectoryEntry `json:"children"`
}

// fileEntryJSON is the file shape, which never carries children.
type fileEntryJSON struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
}

// MarshalJSON keeps "children" for directories, including empty ones, and drops it for files.
func (entry DirectoryEntry) MarshalJSON() ([]byte, error) {
	if !entry.IsDirectory {
		return json.Marshal(fileEntryJSON{Name: entry.Name, Path: entry.Path, IsDirectory: false})
	}
	children := entry.Children
	if children == nil {
		children = []DirectoryEntry{}
	}
	return json.Marshal(directoryEntryJSON{
		Name:        entry.Name,
		Path:        entry.Path,
		IsDirectory: true,
		Children:    children,
	})
}

// UnmarshalJSON restores the nil/non-nil distinction between files and directories.
func (entry *DirectoryEntry) UnmarshalJSON(data []byte) error {
	var decoded directoryEntryJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	entry.Name = decoded.Name
	entry.Path = decoded.Path
	entry.IsDirectory = decoded.IsDirectory
	entry.Children = nil
	if decoded.IsDirectory {
		entry.Children = decoded.Children
		if entry.Children == nil {
			entry.Children = []DirectoryEntry{}
		}
	}
	return nil
}

