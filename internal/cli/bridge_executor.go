package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/temirov/marginal/internal/document"
	"github.com/temirov/marginal/internal/menu"
	"github.com/temirov/marginal/internal/services/bridge"
	"github.com/temirov/marginal/internal/types"
	"github.com/temirov/marginal/internal/workspace"
)

const (
	errorKindBadRequest         = "bad_request"
	errorKindInvalidFrontmatter = "invalid_frontmatter"
	errorDecodeRequestFormat    = "decode %s request: %w"
	errorContentRequired        = "content is required"
	errorItemRequired           = "id is required"
	infoMenuEventMessage        = "menu event"
	logFieldEvent               = "event"

	readDirTreeDescription       = "List the visible entries below a directory as a nested tree"
	readFileContentDescription   = "Return the full text of a file"
	writeFileContentDescription  = "Replace or create a file with the given text"
	renderMarkdownDescription    = "Render markdown to HTML and extract its front matter"
	menuEventDescription         = "Resolve and dispatch the event for a menu item"
	menuStatesDescription        = "Report which menu items are enabled in a view mode"
	parseDocumentDescription     = "Split a document into its front matter and body"
	serializeDocumentDescription = "Join a body and front matter into document text ready to save"
)

type pathRequest struct {
	Path string `json:"path"`
}

type writeFileRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type renderRequest struct {
	Content string `json:"content"`
}

type parseDocumentRequest struct {
	Content string `json:"content"`
	Strict  bool   `json:"strict"`
}

type serializeDocumentRequest struct {
	Content     string         `json:"content"`
	Frontmatter map[string]any `json:"frontmatter"`
}

type menuEventRequest struct {
	ID string `json:"id"`
}

type menuStatesRequest struct {
	ViewMode string `json:"viewMode"`
}

type renderResult struct {
	HTML        string         `json:"html"`
	Frontmatter map[string]any `json:"frontmatter"`
}

type parseDocumentResult struct {
	Content        string         `json:"content"`
	Frontmatter    map[string]any `json:"frontmatter"`
	RawFrontmatter string         `json:"rawFrontmatter"`
	HasFrontmatter bool           `json:"hasFrontmatter"`
}

type menuEventResult struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

type menuStatesResult struct {
	ViewMode menu.ViewMode   `json:"viewMode"`
	States   map[string]bool `json:"states"`
}

// bridgeExecutors binds the workspace, document and menu packages to bridge commands.
type bridgeExecutors struct {
	workspace       *workspace.Service
	renderer        *document.Renderer
	dispatcher      *menu.Dispatcher
	defaultViewMode string
}

func newBridgeExecutors(app *application) (bridgeExecutors, error) {
	dispatcher, dispatcherError := newMenuDispatcher(app.logger)
	if dispatcherError != nil {
		return bridgeExecutors{}, dispatcherError
	}
	return bridgeExecutors{
		workspace:       app.workspaceService(),
		renderer:        document.NewRenderer(app.renderOptions()),
		dispatcher:      dispatcher,
		defaultViewMode: app.configuration.Editor.ViewMode,
	}, nil
}

// newMenuDispatcher registers a logging handler for every menu event.
func newMenuDispatcher(logger *zap.Logger) (*menu.Dispatcher, error) {
	dispatcher := menu.NewDispatcher()
	for _, submenu := range menu.Definitions() {
		for _, item := range submenu.Items {
			if item.Separator {
				continue
			}
			event, _ := menu.EventForItem(item.ID)
			registerError := dispatcher.Register(event, func(dispatchedEvent string) error {
				logger.Info(infoMenuEventMessage, zap.String(logFieldEvent, dispatchedEvent))
				return nil
			})
			if registerError != nil {
				return nil, registerError
			}
		}
	}
	return dispatcher, nil
}

func bridgeCapabilities() []bridge.Capability {
	return []bridge.Capability{
		{Name: types.CommandReadDirTree, Description: readDirTreeDescription},
		{Name: types.CommandReadFileContent, Description: readFileContentDescription},
		{Name: types.CommandWriteFileContent, Description: writeFileContentDescription},
		{Name: types.CommandRenderMarkdown, Description: renderMarkdownDescription},
		{Name: types.CommandMenuEvent, Description: menuEventDescription},
		{Name: types.CommandMenuStates, Description: menuStatesDescription},
		{Name: types.CommandParseDocument, Description: parseDocumentDescription},
		{Name: types.CommandSerializeDocument, Description: serializeDocumentDescription},
	}
}

func (executors bridgeExecutors) commandExecutors() map[string]bridge.CommandExecutor {
	return map[string]bridge.CommandExecutor{
		types.CommandReadDirTree:       bridge.CommandExecutorFunc(executors.executeReadDirTree),
		types.CommandReadFileContent:   bridge.CommandExecutorFunc(executors.executeReadFileContent),
		types.CommandWriteFileContent:  bridge.CommandExecutorFunc(executors.executeWriteFileContent),
		types.CommandRenderMarkdown:    bridge.CommandExecutorFunc(executors.executeRenderMarkdown),
		types.CommandMenuEvent:         bridge.CommandExecutorFunc(executors.executeMenuEvent),
		types.CommandMenuStates:        bridge.CommandExecutorFunc(executors.executeMenuStates),
		types.CommandParseDocument:     bridge.CommandExecutorFunc(executors.executeParseDocument),
		types.CommandSerializeDocument: bridge.CommandExecutorFunc(executors.executeSerializeDocument),
	}
}

func (executors bridgeExecutors) executeReadDirTree(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload pathRequest
	if decodeError := decodePayload(types.CommandReadDirTree, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	entries, buildError := executors.workspace.BuildTree(payload.Path)
	if buildError != nil {
		return bridge.CommandResponse{}, workspaceFailure(buildError)
	}
	return bridge.CommandResponse{Result: entries}, nil
}

func (executors bridgeExecutors) executeReadFileContent(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload pathRequest
	if decodeError := decodePayload(types.CommandReadFileContent, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	content, readError := executors.workspace.ReadFileContent(payload.Path)
	if readError != nil {
		return bridge.CommandResponse{}, workspaceFailure(readError)
	}
	return bridge.CommandResponse{Result: content}, nil
}

func (executors bridgeExecutors) executeWriteFileContent(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload writeFileRequest
	if decodeError := decodePayload(types.CommandWriteFileContent, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	if payload.Content == nil {
		return bridge.CommandResponse{}, badRequest(errors.New(errorContentRequired))
	}
	if writeError := executors.workspace.WriteFileContent(payload.Path, *payload.Content); writeError != nil {
		return bridge.CommandResponse{}, workspaceFailure(writeError)
	}
	return bridge.CommandResponse{Result: nil}, nil
}

func (executors bridgeExecutors) executeRenderMarkdown(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload renderRequest
	if decodeError := decodePayload(types.CommandRenderMarkdown, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	rendered, renderError := executors.renderer.Render(payload.Content)
	if renderError != nil {
		return bridge.CommandResponse{}, renderError
	}
	return bridge.CommandResponse{Result: renderResult{
		HTML:        rendered,
		Frontmatter: document.Parse(payload.Content).Frontmatter,
	}}, nil
}

// executeParseDocument falls back to the whole content as body when the front matter
// cannot be decoded, unless the request is strict.
func (executors bridgeExecutors) executeParseDocument(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload parseDocumentRequest
	if decodeError := decodePayload(types.CommandParseDocument, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	parsed := document.Parse(payload.Content)
	if payload.Strict {
		strictlyParsed, parseError := document.ParseStrict(payload.Content)
		if parseError != nil {
			return bridge.CommandResponse{}, bridge.NewCommandError(http.StatusBadRequest, errorKindInvalidFrontmatter, parseError)
		}
		parsed = strictlyParsed
	}
	return bridge.CommandResponse{Result: parseDocumentResult{
		Content:        parsed.Body,
		Frontmatter:    parsed.Frontmatter,
		RawFrontmatter: parsed.RawFrontmatter,
		HasFrontmatter: document.HasFrontmatter(payload.Content),
	}}, nil
}

func (executors bridgeExecutors) executeSerializeDocument(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload serializeDocumentRequest
	if decodeError := decodePayload(types.CommandSerializeDocument, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	serialized, serializeError := document.Serialize(payload.Content, payload.Frontmatter)
	if serializeError != nil {
		return bridge.CommandResponse{}, badRequest(serializeError)
	}
	return bridge.CommandResponse{Result: serialized}, nil
}

// executeMenuEvent ignores unknown item identifiers and reports them as unhandled.
func (executors bridgeExecutors) executeMenuEvent(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload menuEventRequest
	if decodeError := decodePayload(types.CommandMenuEvent, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	if strings.TrimSpace(payload.ID) == "" {
		return bridge.CommandResponse{}, badRequest(errors.New(errorItemRequired))
	}
	if _, known := menu.EventForItem(payload.ID); !known {
		return bridge.CommandResponse{Result: menuEventResult{}}, nil
	}
	event, dispatchError := executors.dispatcher.Dispatch(payload.ID)
	if dispatchError != nil {
		return bridge.CommandResponse{}, dispatchError
	}
	return bridge.CommandResponse{Result: menuEventResult{Event: event, Handled: true}}, nil
}

func (executors bridgeExecutors) executeMenuStates(_ context.Context, request bridge.CommandRequest) (bridge.CommandResponse, error) {
	var payload menuStatesRequest
	if decodeError := decodePayload(types.CommandMenuStates, request.Payload, &payload); decodeError != nil {
		return bridge.CommandResponse{}, decodeError
	}
	viewMode, viewModeError := resolveViewMode(payload.ViewMode, executors.defaultViewMode)
	if viewModeError != nil {
		return bridge.CommandResponse{}, badRequest(viewModeError)
	}
	return bridge.CommandResponse{Result: menuStatesResult{ViewMode: viewMode, States: menu.ItemStates(viewMode)}}, nil
}

// decodePayload treats an empty body as an empty JSON object.
func decodePayload(commandName string, payload json.RawMessage, target any) error {
	if len(strings.TrimSpace(string(payload))) == 0 {
		return nil
	}
	if unmarshalError := json.Unmarshal(payload, target); unmarshalError != nil {
		return badRequest(fmt.Errorf(errorDecodeRequestFormat, commandName, unmarshalError))
	}
	return nil
}

func badRequest(err error) error {
	return bridge.NewCommandError(http.StatusBadRequest, errorKindBadRequest, err)
}

// workspaceFailure maps a workspace error kind to its HTTP status.
func workspaceFailure(err error) error {
	kind := workspace.KindOf(err)
	switch kind {
	case workspace.ErrorKindNotFound:
		return bridge.NewCommandError(http.StatusNotFound, string(kind), err)
	case workspace.ErrorKindNotADirectory:
		return bridge.NewCommandError(http.StatusBadRequest, string(kind), err)
	case workspace.ErrorKindReadError, workspace.ErrorKindWriteError:
		return bridge.NewCommandError(http.StatusInternalServerError, string(kind), err)
	default:
		return err
	}
}

// startBridge serves the workspace commands until ctx is canceled.
func startBridge(ctx context.Context, app *application, address string, notify func(string)) error {
	executors, executorsError := newBridgeExecutors(app)
	if executorsError != nil {
		return executorsError
	}
	server := bridge.NewServer(bridge.Config{
		Address:         address,
		Capabilities:    bridgeCapabilities(),
		Executors:       executors.commandExecutors(),
		ShutdownTimeout: app.configuration.Serve.ShutdownTimeout,
		Logger:          app.logger,
	})
	return server.Run(ctx, notify)
}
