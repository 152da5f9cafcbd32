// Package bridge serves the workspace commands to the editor front end over local HTTP.
//
// Routes:
//
//	GET  /                 liveness check
//	GET  /capabilities     command names with descriptions
//	GET  /metrics          Prometheus exposition
//	POST /commands/{name}  runs the named command with the JSON request body as payload
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/temirov/marginal/internal/metrics"
)

const (
	defaultListenAddress     = "127.0.0.1:0"
	defaultShutdownTimeout   = 5 * time.Second
	defaultReadHeaderTimeout = 10 * time.Second
	maximumRequestBodyBytes  = 64 << 20
	commandNamePathParameter = "name"

	routeRoot         = "GET /{$}"
	routeCapabilities = "GET /capabilities"
	routeMetrics      = "GET /metrics"
	routeCommand      = "POST /commands/{" + commandNamePathParameter + "}"

	headerContentType = "Content-Type"
	mimeTypeJSON      = "application/json"

	errorCommandNotFound      = "command not found"
	errorReadBodyFormat       = "read request body: %v"
	errorEncodeResponseFormat = "encode response: %v"
	errorListenFormat         = "listen on %s: %w"
	errorServeFormat          = "serve bridge: %w"
	errorShutdownFormat       = "shutdown bridge: %w"

	logBridgeListening = "bridge listening"
	logBridgeStopping  = "bridge stopping"
	logCommandFailed   = "bridge command failed"
	logFieldAddress    = "address"
	logFieldCommand    = "command"
	logFieldStatus     = "status"
)

// Capability describes a command exposed by the bridge.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CommandRequest holds the raw JSON payload a client posted.
type CommandRequest struct {
	Payload json.RawMessage
}

// CommandResponse wraps the value a command produced.
type CommandResponse struct {
	Result any `json:"result"`
}

// CommandExecutor runs one bridge command.
type CommandExecutor interface {
	Execute(ctx context.Context, request CommandRequest) (CommandResponse, error)
}

// CommandExecutorFunc adapts a function into a CommandExecutor.
type CommandExecutorFunc func(context.Context, CommandRequest) (CommandResponse, error)

// Execute invokes the underlying function.
func (executor CommandExecutorFunc) Execute(ctx context.Context, request CommandRequest) (CommandResponse, error) {
	return executor(ctx, request)
}

// CommandError is a command failure carrying the HTTP status to answer with
// and a kind the front end can branch on.
type CommandError struct {
	statusCode int
	kind       string
	err        error
}

func (commandError CommandError) Error() string {
	return commandError.err.Error()
}

func (commandError CommandError) Unwrap() error {
	return commandError.err
}

// StatusCode reports the HTTP status of the failure.
func (commandError CommandError) StatusCode() int {
	return commandError.statusCode
}

// Kind reports the failure classification.
func (commandError CommandError) Kind() string {
	return commandError.kind
}

// NewCommandError attaches a status and kind to err. A nil err stays nil.
func NewCommandError(statusCode int, kind string, err error) error {
	if err == nil {
		return nil
	}
	return CommandError{statusCode: statusCode, kind: kind, err: err}
}

type capabilitiesResponse struct {
	Capabilities []Capability `json:"capabilities"`
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Config defines runtime options for the bridge server.
type Config struct {
	Address         string
	Capabilities    []Capability
	Executors       map[string]CommandExecutor
	ShutdownTimeout time.Duration
	Logger          *zap.Logger
}

// Server routes front end requests to command executors.
type Server struct {
	address         string
	capabilities    []Capability
	executors       map[string]CommandExecutor
	shutdownTimeout time.Duration
	logger          *zap.Logger
}

// NewServer applies defaults to config and returns a ready Server.
func NewServer(config Config) *Server {
	server := &Server{
		address:         config.Address,
		capabilities:    config.Capabilities,
		executors:       config.Executors,
		shutdownTimeout: config.ShutdownTimeout,
		logger:          config.Logger,
	}
	if server.address == "" {
		server.address = defaultListenAddress
	}
	if server.shutdownTimeout <= 0 {
		server.shutdownTimeout = defaultShutdownTimeout
	}
	if server.capabilities == nil {
		server.capabilities = []Capability{}
	}
	if server.executors == nil {
		server.executors = map[string]CommandExecutor{}
	}
	if server.logger == nil {
		server.logger = zap.NewNop()
	}
	return server
}

// Handler returns the bridge routes. Requests with a known path and the wrong
// method are answered with 405 by the router.
func (server *Server) Handler() http.Handler {
	router := http.NewServeMux()
	router.HandleFunc(routeRoot, func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusOK)
	})
	router.HandleFunc(routeCapabilities, server.handleCapabilities)
	router.Handle(routeMetrics, metrics.Handler())
	router.HandleFunc(routeCommand, server.handleCommand)
	return router
}

// Run listens on the configured address and serves until ctx is canceled.
// notify receives the bound address once the listener is open.
func (server *Server) Run(ctx context.Context, notify func(string)) error {
	listener, listenError := net.Listen("tcp", server.address)
	if listenError != nil {
		return fmt.Errorf(errorListenFormat, server.address, listenError)
	}
	boundAddress := listener.Addr().String()
	server.logger.Info(logBridgeListening, zap.String(logFieldAddress, boundAddress))

	httpServer := server.newHTTPServer()
	group, groupContext := errgroup.WithContext(ctx)
	group.Go(func() error {
		if serveError := httpServer.Serve(listener); serveError != nil && !errors.Is(serveError, http.ErrServerClosed) {
			return fmt.Errorf(errorServeFormat, serveError)
		}
		return nil
	})
	group.Go(func() error {
		<-groupContext.Done()
		server.logger.Debug(logBridgeStopping, zap.String(logFieldAddress, boundAddress))
		shutdownContext, cancel := context.WithTimeout(context.Background(), server.shutdownTimeout)
		defer cancel()
		if shutdownError := httpServer.Shutdown(shutdownContext); shutdownError != nil && !errors.Is(shutdownError, http.ErrServerClosed) {
			return fmt.Errorf(errorShutdownFormat, shutdownError)
		}
		return nil
	})

	if notify != nil {
		notify(boundAddress)
	}
	return group.Wait()
}

func (server *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}
}

func (server *Server) handleCapabilities(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, capabilitiesResponse{Capabilities: server.capabilities})
}

func (server *Server) handleCommand(writer http.ResponseWriter, request *http.Request) {
	commandName := request.PathValue(commandNamePathParameter)
	executor, found := server.executors[commandName]
	if !found {
		writeJSON(writer, http.StatusNotFound, errorResponse{Error: errorCommandNotFound})
		return
	}

	body, readError := io.ReadAll(http.MaxBytesReader(writer, request.Body, maximumRequestBodyBytes))
	if readError != nil {
		statusCode := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(readError, &tooLarge) {
			statusCode = http.StatusRequestEntityTooLarge
		}
		writeJSON(writer, statusCode, errorResponse{Error: fmt.Sprintf(errorReadBodyFormat, readError)})
		return
	}

	startedAt := time.Now()
	response, executeError := executor.Execute(request.Context(), CommandRequest{Payload: body})
	if executeError == nil {
		metrics.RecordCommand(commandName, http.StatusOK, time.Since(startedAt))
		writeJSON(writer, http.StatusOK, response)
		return
	}

	failure := errorResponse{Error: executeError.Error()}
	statusCode := http.StatusInternalServerError
	var commandError CommandError
	if errors.As(executeError, &commandError) {
		statusCode = commandError.StatusCode()
		failure.Kind = commandError.Kind()
	}
	metrics.RecordCommand(commandName, statusCode, time.Since(startedAt))
	server.logger.Warn(logCommandFailed, zap.String(logFieldCommand, commandName), zap.Int(logFieldStatus, statusCode), zap.Error(executeError))
	writeJSON(writer, statusCode, failure)
}

func writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	encoded, encodeError := json.Marshal(payload)
	if encodeError != nil {
		statusCode = http.StatusInternalServerError
		encoded, _ = json.Marshal(errorResponse{Error: fmt.Sprintf(errorEncodeResponseFormat, encodeError)})
	}
	writer.Header().Set(headerContentType, mimeTypeJSON)
	writer.WriteHeader(statusCode)
	_, _ = writer.Write(append(encoded, '\n'))
}
