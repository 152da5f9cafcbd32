package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/temirov/marginal/internal/services/bridge"
	"github.com/temirov/marginal/internal/types"
	"github.com/temirov/marginal/internal/workspace"
)

func newTestApplication(t *testing.T) (*application, afero.Fs) {
	t.Helper()
	filesystem := afero.NewMemMapFs()
	if err := filesystem.MkdirAll(filepath.Join(workspaceRoot, "notes"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := afero.WriteFile(filesystem, filepath.Join(workspaceRoot, "notes", "a.md"), []byte("---\ntags: [x]\n---\n*a*"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	app := &application{dependencies: dependencies{
		logger:     zap.NewNop(),
		filesystem: filesystem,
		copier:     &recordingCopier{},
	}}
	return app, filesystem
}

func newTestExecutors(t *testing.T) (bridgeExecutors, afero.Fs) {
	t.Helper()
	app, filesystem := newTestApplication(t)
	executors, err := newBridgeExecutors(app)
	if err != nil {
		t.Fatalf("newBridgeExecutors: %v", err)
	}
	return executors, filesystem
}

func executeCommand(t *testing.T, executors bridgeExecutors, commandName string, payload string) (bridge.CommandResponse, error) {
	t.Helper()
	executor, found := executors.commandExecutors()[commandName]
	if !found {
		t.Fatalf("no executor for %s", commandName)
	}
	return executor.Execute(context.Background(), bridge.CommandRequest{Payload: json.RawMessage(payload)})
}

func assertExecutionError(t *testing.T, err error, expectedStatus int, expectedKind string) {
	t.Helper()
	var executionError bridge.CommandError
	if !errors.As(err, &executionError) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if executionError.StatusCode() != expectedStatus || executionError.Kind() != expectedKind {
		t.Fatalf("expected %d/%s, got %d/%s (%v)", expectedStatus, expectedKind, executionError.StatusCode(), executionError.Kind(), err)
	}
}

func TestBridgeExecutorFailures(t *testing.T) {
	executors, _ := newTestExecutors(t)
	notesFile := filepath.Join(workspaceRoot, "notes", "a.md")

	testCases := []struct {
		name           string
		commandName    string
		payload        string
		expectedStatus int
		expectedKind   string
	}{
		{name: "malformed_payload", commandName: types.CommandReadDirTree, payload: `{`, expectedStatus: http.StatusBadRequest, expectedKind: errorKindBadRequest},
		{name: "read_without_path", commandName: types.CommandReadFileContent, payload: `{}`, expectedStatus: http.StatusInternalServerError, expectedKind: string(workspace.ErrorKindReadError)},
		{name: "tree_without_path", commandName: types.CommandReadDirTree, payload: `{"path":""}`, expectedStatus: http.StatusNotFound, expectedKind: string(workspace.ErrorKindNotFound)},
		{name: "write_without_path", commandName: types.CommandWriteFileContent, payload: `{"content":"x"}`, expectedStatus: http.StatusInternalServerError, expectedKind: string(workspace.ErrorKindWriteError)},
		{name: "strict_parse_of_invalid_frontmatter", commandName: types.CommandParseDocument, payload: `{"content":"---\ntitle: [unclosed\n---\nbody","strict":true}`, expectedStatus: http.StatusBadRequest, expectedKind: errorKindInvalidFrontmatter},
		{name: "tree_not_found", commandName: types.CommandReadDirTree, payload: `{"path":"/absent"}`, expectedStatus: http.StatusNotFound, expectedKind: string(workspace.ErrorKindNotFound)},
		{name: "tree_of_file", commandName: types.CommandReadDirTree, payload: `{"path":"` + notesFile + `"}`, expectedStatus: http.StatusBadRequest, expectedKind: string(workspace.ErrorKindNotADirectory)},
		{name: "read_missing_file", commandName: types.CommandReadFileContent, payload: `{"path":"/absent.md"}`, expectedStatus: http.StatusInternalServerError, expectedKind: string(workspace.ErrorKindReadError)},
		{name: "write_without_content", commandName: types.CommandWriteFileContent, payload: `{"path":"/workspace/b.md"}`, expectedStatus: http.StatusBadRequest, expectedKind: errorKindBadRequest},
		{name: "unknown_view_mode", commandName: types.CommandMenuStates, payload: `{"viewMode":"split"}`, expectedStatus: http.StatusBadRequest, expectedKind: errorKindBadRequest},
		{name: "menu_event_without_id", commandName: types.CommandMenuEvent, payload: ``, expectedStatus: http.StatusBadRequest, expectedKind: errorKindBadRequest},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, err := executeCommand(t, executors, testCase.commandName, testCase.payload)
			assertExecutionError(t, err, testCase.expectedStatus, testCase.expectedKind)
		})
	}
}

func TestBridgeExecutorsWriteThenRead(t *testing.T) {
	executors, _ := newTestExecutors(t)
	target := filepath.Join(workspaceRoot, "notes", "b.md")

	writeResponse, writeError := executeCommand(t, executors, types.CommandWriteFileContent, `{"path":"`+target+`","content":"# B\n"}`)
	if writeError != nil {
		t.Fatalf("write: %v", writeError)
	}
	if writeResponse.Result != nil {
		t.Fatalf("expected empty result, got %v", writeResponse.Result)
	}

	readResponse, readError := executeCommand(t, executors, types.CommandReadFileContent, `{"path":"`+target+`"}`)
	if readError != nil {
		t.Fatalf("read: %v", readError)
	}
	if readResponse.Result != "# B\n" {
		t.Fatalf("unexpected content %v", readResponse.Result)
	}

	treeResponse, treeError := executeCommand(t, executors, types.CommandReadDirTree, `{"path":"`+workspaceRoot+`"}`)
	if treeError != nil {
		t.Fatalf("tree: %v", treeError)
	}
	entries, ok := treeResponse.Result.([]types.DirectoryEntry)
	if !ok || len(entries) != 1 || len(entries[0].Children) != 2 {
		t.Fatalf("unexpected tree %+v", treeResponse.Result)
	}
	if entries[0].Children[1].Name != "b.md" {
		t.Fatalf("expected new file in tree, got %+v", entries[0].Children)
	}
}

func TestBridgeRenderMarkdown(t *testing.T) {
	executors, _ := newTestExecutors(t)
	response, err := executeCommand(t, executors, types.CommandRenderMarkdown, `{"content":"---\ntitle: Note\n---\n~~gone~~"}`)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	result, ok := response.Result.(renderResult)
	if !ok {
		t.Fatalf("unexpected result type %T", response.Result)
	}
	if result.HTML != "<p><del>gone</del></p>\n" {
		t.Fatalf("unexpected html %q", result.HTML)
	}
	if result.Frontmatter["title"] != "Note" {
		t.Fatalf("unexpected front matter %v", result.Frontmatter)
	}
}

func TestBridgeParseDocument(t *testing.T) {
	executors, _ := newTestExecutors(t)

	testCases := []struct {
		name     string
		payload  string
		expected parseDocumentResult
	}{
		{
			name:    "with_frontmatter",
			payload: `{"content":"---\ntitle: Note\n---\n# Body\n"}`,
			expected: parseDocumentResult{
				Content:        "# Body\n",
				Frontmatter:    map[string]any{"title": "Note"},
				RawFrontmatter: "title: Note",
				HasFrontmatter: true,
			},
		},
		{
			name:     "without_frontmatter",
			payload:  `{"content":"# Body\n"}`,
			expected: parseDocumentResult{Content: "# Body\n", Frontmatter: map[string]any{}},
		},
		{
			name:     "invalid_frontmatter_degrades_to_body",
			payload:  `{"content":"---\ntitle: [unclosed\n---\nbody"}`,
			expected: parseDocumentResult{Content: "---\ntitle: [unclosed\n---\nbody", Frontmatter: map[string]any{}, HasFrontmatter: true},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			response, err := executeCommand(t, executors, types.CommandParseDocument, testCase.payload)
			if err != nil {
				t.Fatalf("parse document: %v", err)
			}
			result, ok := response.Result.(parseDocumentResult)
			if !ok {
				t.Fatalf("unexpected result type %T", response.Result)
			}
			if result.Content != testCase.expected.Content || result.RawFrontmatter != testCase.expected.RawFrontmatter || result.HasFrontmatter != testCase.expected.HasFrontmatter {
				t.Fatalf("expected %+v, got %+v", testCase.expected, result)
			}
			if len(result.Frontmatter) != len(testCase.expected.Frontmatter) {
				t.Fatalf("expected front matter %v, got %v", testCase.expected.Frontmatter, result.Frontmatter)
			}
			for key, value := range testCase.expected.Frontmatter {
				if result.Frontmatter[key] != value {
					t.Fatalf("expected %s=%v, got %v", key, value, result.Frontmatter[key])
				}
			}
		})
	}
}

func TestBridgeSerializeThenWriteDocument(t *testing.T) {
	executors, filesystem := newTestExecutors(t)
	target := filepath.Join(workspaceRoot, "notes", "saved.md")

	serializeResponse, serializeError := executeCommand(t, executors, types.CommandSerializeDocument, `{"content":"# Saved\n","frontmatter":{"title":"Saved"}}`)
	if serializeError != nil {
		t.Fatalf("serialize document: %v", serializeError)
	}
	serialized, ok := serializeResponse.Result.(string)
	if !ok || serialized != "---\ntitle: Saved\n---\n# Saved\n" {
		t.Fatalf("unexpected serialized document %#v", serializeResponse.Result)
	}

	encodedRequest, marshalError := json.Marshal(map[string]string{"path": target, "content": serialized})
	if marshalError != nil {
		t.Fatalf("encode write request: %v", marshalError)
	}
	if _, writeError := executeCommand(t, executors, types.CommandWriteFileContent, string(encodedRequest)); writeError != nil {
		t.Fatalf("write: %v", writeError)
	}
	stored, readError := afero.ReadFile(filesystem, target)
	if readError != nil || string(stored) != serialized {
		t.Fatalf("expected stored document %q, got %q (%v)", serialized, stored, readError)
	}

	plainResponse, plainError := executeCommand(t, executors, types.CommandSerializeDocument, `{"content":"plain"}`)
	if plainError != nil || plainResponse.Result != "plain" {
		t.Fatalf("expected body unchanged without front matter, got %#v (%v)", plainResponse.Result, plainError)
	}
}

func TestBridgeMenuCommands(t *testing.T) {
	executors, _ := newTestExecutors(t)

	eventResponse, eventError := executeCommand(t, executors, types.CommandMenuEvent, `{"id":"toggle_sidebar"}`)
	if eventError != nil {
		t.Fatalf("menu event: %v", eventError)
	}
	if eventResponse.Result != (menuEventResult{Event: "menu:toggle-sidebar", Handled: true}) {
		t.Fatalf("unexpected event result %+v", eventResponse.Result)
	}

	ignoredResponse, ignoredError := executeCommand(t, executors, types.CommandMenuEvent, `{"id":"print"}`)
	if ignoredError != nil {
		t.Fatalf("unknown menu event: %v", ignoredError)
	}
	if ignoredResponse.Result != (menuEventResult{}) {
		t.Fatalf("expected unknown item to be ignored, got %+v", ignoredResponse.Result)
	}

	statesResponse, statesError := executeCommand(t, executors, types.CommandMenuStates, `{}`)
	if statesError != nil {
		t.Fatalf("menu states: %v", statesError)
	}
	states, ok := statesResponse.Result.(menuStatesResult)
	if !ok || states.ViewMode != "rendered" {
		t.Fatalf("expected rendered default, got %+v", statesResponse.Result)
	}
	if !states.States["bold"] || states.States["format_document"] {
		t.Fatalf("unexpected states %v", states.States)
	}
}

func TestStartBridgeServesWorkspaceCommands(t *testing.T) {
	app, _ := newTestApplication(t)

	ctx, cancel := context.WithCancel(context.Background())
	addressCh := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- startBridge(ctx, app, "127.0.0.1:0", func(address string) {
			addressCh <- address
		})
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("bridge error: %v", err)
		}
	})

	var address string
	select {
	case address = <-addressCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("bridge did not start")
	}

	client := http.Client{Timeout: 2 * time.Second}

	capabilitiesResponse, capabilitiesError := client.Get("http://" + address + "/capabilities")
	if capabilitiesError != nil {
		t.Fatalf("capabilities: %v", capabilitiesError)
	}
	var capabilities struct {
		Capabilities []bridge.Capability `json:"capabilities"`
	}
	decodeError := json.NewDecoder(capabilitiesResponse.Body).Decode(&capabilities)
	capabilitiesResponse.Body.Close()
	if decodeError != nil {
		t.Fatalf("decode capabilities: %v", decodeError)
	}
	if len(capabilities.Capabilities) != len(bridgeCapabilities()) {
		t.Fatalf("expected %d capabilities, got %d", len(bridgeCapabilities()), len(capabilities.Capabilities))
	}

	treeResponse, treeError := client.Post("http://"+address+"/commands/"+types.CommandReadDirTree, "application/json", bytes.NewBufferString(`{"path":"/workspace"}`))
	if treeError != nil {
		t.Fatalf("tree request: %v", treeError)
	}
	defer treeResponse.Body.Close()
	if treeResponse.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", treeResponse.StatusCode)
	}
	var treeBody struct {
		Result []map[string]any `json:"result"`
	}
	if err := json.NewDecoder(treeResponse.Body).Decode(&treeBody); err != nil {
		t.Fatalf("decode tree: %v", err)
	}
	if len(treeBody.Result) != 1 || treeBody.Result[0]["is_directory"] != true {
		t.Fatalf("unexpected tree body %+v", treeBody.Result)
	}
	children, _ := treeBody.Result[0]["children"].([]any)
	if len(children) != 1 {
		t.Fatalf("expected one child, got %v", treeBody.Result[0]["children"])
	}
	if _, hasChildren := children[0].(map[string]any)["children"]; hasChildren {
		t.Fatalf("file entries must not carry children")
	}

	missingResponse, missingError := client.Post("http://"+address+"/commands/"+types.CommandReadDirTree, "application/json", bytes.NewBufferString(`{"path":"/nowhere"}`))
	if missingError != nil {
		t.Fatalf("missing request: %v", missingError)
	}
	defer missingResponse.Body.Close()
	if missingResponse.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missingResponse.StatusCode)
	}
	var missingBody map[string]string
	if err := json.NewDecoder(missingResponse.Body).Decode(&missingBody); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if missingBody["error"] != "Path does not exist" || missingBody["kind"] != "not_found" {
		t.Fatalf("unexpected error body %v", missingBody)
	}
}
