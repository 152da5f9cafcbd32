// Package menu describes the application menu, maps menu item clicks to the
// events the front end listens for, and computes which items are enabled for
// the active editor view mode. Native widgets stay behind WidgetUpdater.
package menu

import (
	"fmt"
	"strings"

	"github.com/temirov/marginal/internal/types"
)

// ViewMode is the editor presentation a document is shown in.
type ViewMode string

const (
	ViewModeRendered ViewMode = types.ViewModeRendered
	ViewModeCode     ViewMode = types.ViewModeCode

	eventPrefix             = "menu:"
	errorUnknownViewModeFmt = "unknown view mode %q"
	errorUpdateItemFmt      = "update menu item %s: %w"
)

// Item identifiers.
const (
	ItemNewFile        = "new_file"
	ItemOpenFile       = "open_file"
	ItemSave           = "save"
	ItemCloseTab       = "close_tab"
	ItemToggleSidebar  = "toggle_sidebar"
	ItemSearch         = "search"
	ItemToggleView     = "toggle_view"
	ItemToggleOutline  = "toggle_outline"
	ItemBold           = "bold"
	ItemItalic         = "italic"
	ItemHeading1       = "heading_1"
	ItemHeading2       = "heading_2"
	ItemHeading3       = "heading_3"
	ItemHeading4       = "heading_4"
	ItemHeading5       = "heading_5"
	ItemInsertTable    = "insert_table"
	ItemFormatDocument = "format_document"
)

// Item is a clickable menu entry. Separator items carry no identifier.
type Item struct {
	ID          string   `json:"id,omitempty"`
	Label       string   `json:"label,omitempty"`
	Accelerator string   `json:"accelerator,omitempty"`
	Requires    ViewMode `json:"requires,omitempty"`
	Separator   bool     `json:"separator,omitempty"`
}

// Submenu is a top-level menu such as File or View.
type Submenu struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

var separator = Item{Separator: true}

// Definitions returns the application menu bar in display order.
func Definitions() []Submenu {
	return []Submenu{
		{
			Title: "File",
			Items: []Item{
				{ID: ItemNewFile, Label: "New File", Accelerator: "CmdOrCtrl+N"},
				{ID: ItemOpenFile, Label: "Open File...", Accelerator: "CmdOrCtrl+O"},
				{ID: ItemSave, Label: "Save", Accelerator: "CmdOrCtrl+S"},
				separator,
				{ID: ItemCloseTab, Label: "Close Tab", Accelerator: "CmdOrCtrl+W"},
			},
		},
		{
			Title: "Format",
			Items: []Item{
				{ID: ItemBold, Label: "Bold", Requires: ViewModeRendered},
				{ID: ItemItalic, Label: "Italic", Accelerator: "CmdOrCtrl+I", Requires: ViewModeRendered},
				separator,
				{ID: ItemHeading1, Label: "Heading 1", Accelerator: "CmdOrCtrl+1", Requires: ViewModeRendered},
				{ID: ItemHeading2, Label: "Heading 2", Accelerator: "CmdOrCtrl+2", Requires: ViewModeRendered},
				{ID: ItemHeading3, Label: "Heading 3", Accelerator: "CmdOrCtrl+3", Requires: ViewModeRendered},
				{ID: ItemHeading4, Label: "Heading 4", Accelerator: "CmdOrCtrl+4", Requires: ViewModeRendered},
				{ID: ItemHeading5, Label: "Heading 5", Accelerator: "CmdOrCtrl+5", Requires: ViewModeRendered},
				separator,
				{ID: ItemInsertTable, Label: "Insert Table", Accelerator: "CmdOrCtrl+Alt+T", Requires: ViewModeRendered},
				{ID: ItemFormatDocument, Label: "Format Document", Accelerator: "CmdOrCtrl+Shift+I", Requires: ViewModeCode},
			},
		},
		{
			Title: "View",
			Items: []Item{
				{ID: ItemToggleSidebar, Label: "Toggle Sidebar", Accelerator: "CmdOrCtrl+B"},
				{ID: ItemSearch, Label: "Search in Files", Accelerator: "CmdOrCtrl+Shift+F"},
				separator,
				{ID: ItemToggleView, Label: "Toggle Code View", Accelerator: "CmdOrCtrl+/"},
				{ID: ItemToggleOutline, Label: "Toggle Outline", Accelerator: "CmdOrCtrl+Shift+O"},
			},
		},
	}
}

// EventForItem resolves the front-end event emitted when the item is clicked.
// Unknown identifiers report false and are ignored by callers.
func EventForItem(itemID string) (string, bool) {
	for _, submenu := range Definitions() {
		for _, item := range submenu.Items {
			if item.Separator || item.ID != itemID {
				continue
			}
			return eventPrefix + strings.ReplaceAll(item.ID, "_", "-"), true
		}
	}
	return "", false
}

// ParseViewMode validates a view mode name.
func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case ViewModeRendered:
		return ViewModeRendered, nil
	case ViewModeCode:
		return ViewModeCode, nil
	default:
		return "", fmt.Errorf(errorUnknownViewModeFmt, value)
	}
}

func (item Item) enabledIn(mode ViewMode) bool {
	return item.Requires == "" || item.Requires == mode
}

// ItemStates reports, per item identifier, whether the item is enabled in mode.
// Items without a view requirement are always enabled.
func ItemStates(mode ViewMode) map[string]bool {
	states := make(map[string]bool)
	for _, submenu := range Definitions() {
		for _, item := range submenu.Items {
			if item.Separator {
				continue
			}
			states[item.ID] = item.enabledIn(mode)
		}
	}
	return states
}

// WidgetUpdater applies enabled flags to native menu widgets. Hosts implement it.
type WidgetUpdater interface {
	SetItemEnabled(itemID string, enabled bool) error
}

// Apply pushes the states for mode to updater, stopping at the first failure.
func Apply(updater WidgetUpdater, mode ViewMode) error {
	for _, submenu := range Definitions() {
		for _, item := range submenu.Items {
			if item.Separator {
				continue
			}
			if updateError := updater.SetItemEnabled(item.ID, item.enabledIn(mode)); updateError != nil {
				return fmt.Errorf(errorUpdateItemFmt, item.ID, updateError)
			}
		}
	}
	return nil
}
