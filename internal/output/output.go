// Package output renders workspace results for the terminal.
package output

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/temirov/marginal/internal/menu"
	"github.com/temirov/marginal/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	directorySuffix      = "/"
	menuTitleFormat      = "%s\n"
	menuSeparatorLine    = "  ----\n"
	menuItemFormat       = "  [%s] %-18s %-20s %s\n"
	menuEnabledMarker    = "x"
	menuDisabledMarker   = " "
	menuNoAccelerator    = "-"
	menuMissingItemLabel = "(unlabeled)"
)

// RenderJSON marshals value using two-space indentation.
func RenderJSON(value any) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(value, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return "", fmt.Errorf("encode json: %w", jsonEncodeError)
	}
	return string(encoded), nil
}

// WriteTreeRaw renders the directory listing under rootPath with box drawing connectors.
// Directories carry a trailing slash.
func WriteTreeRaw(writer io.Writer, rootPath string, entries []types.DirectoryEntry) {
	fmt.Fprintf(writer, "%s\n", rootPath)
	renderEntries(writer, entries, "")
}

func renderEntries(writer io.Writer, entries []types.DirectoryEntry, prefix string) {
	for index, entry := range entries {
		isLast := index == len(entries)-1
		connector := treeBranchConnector
		childPrefix := prefix + treeBranchPadding
		if isLast {
			connector = treeLastConnector
			childPrefix = prefix + treeLastPadding
		}
		if !entry.IsDirectory {
			fmt.Fprintf(writer, "%s%s%s\n", prefix, connector, entry.Name)
			continue
		}
		fmt.Fprintf(writer, "%s%s%s%s\n", prefix, connector, entry.Name, directorySuffix)
		renderEntries(writer, entry.Children, childPrefix)
	}
}

// WriteMenuRaw prints every submenu with its items, marking enabled items with an x.
// Items missing from states are shown as disabled.
func WriteMenuRaw(writer io.Writer, submenus []menu.Submenu, states map[string]bool) {
	for submenuIndex, submenu := range submenus {
		if submenuIndex > 0 {
			fmt.Fprintln(writer)
		}
		fmt.Fprintf(writer, menuTitleFormat, submenu.Title)
		for _, item := range submenu.Items {
			if item.Separator {
				fmt.Fprint(writer, menuSeparatorLine)
				continue
			}
			marker := menuDisabledMarker
			if states[item.ID] {
				marker = menuEnabledMarker
			}
			label := item.Label
			if label == "" {
				label = menuMissingItemLabel
			}
			accelerator := item.Accelerator
			if accelerator == "" {
				accelerator = menuNoAccelerator
			}
			event, _ := menu.EventForItem(item.ID)
			fmt.Fprintf(writer, menuItemFormat, marker, label, accelerator, event)
		}
	}
}
