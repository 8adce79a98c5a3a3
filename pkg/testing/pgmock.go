// Package testing provides a scripted Postgres server for exercising the
// results database without a real cluster.
package testing

import (
	"net"
	"testing"

	"github.com/jackc/pgmock"
	"github.com/jackc/pgproto3/v2"
)

// MockServer wraps pgmock.Script to provide a convenient test server.
type MockServer struct {
	Script   *pgmock.Script
	Listener net.Listener
	t        *testing.T
}

// NewMockServer creates a new mock PostgreSQL server for testing.
func NewMockServer(t *testing.T, steps ...pgmock.Step) *MockServer {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}

	return &MockServer{
		Script: &pgmock.Script{
			Steps: steps,
		},
		Listener: listener,
		t:        t,
	}
}

// Addr returns the address the mock server is listening on.
func (m *MockServer) Addr() string {
	return m.Listener.Addr().String()
}

// DSN is a connection string pointing at the server.
func (m *MockServer) DSN() string {
	return "postgres://querybench@" + m.Addr() + "/querybench?sslmode=disable"
}

// Serve accepts a single connection and runs the mock script.
// This should be called in a goroutine.
func (m *MockServer) Serve() error {
	conn, err := m.Listener.Accept()
	if err != nil {
		return err
	}
	defer conn.Close()

	backend := pgproto3.NewBackend(pgproto3.NewChunkReader(conn), conn)
	return m.Script.Run(backend)
}

// Start serves in the background. The returned channel yields the script
// result once the client disconnects.
func (m *MockServer) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- m.Serve()
	}()
	return errCh
}

// Close closes the listener.
func (m *MockServer) Close() error {
	return m.Listener.Close()
}

// AcceptConnSteps accepts an unauthenticated startup and reports the
// parameters pgx needs before it interpolates simple-protocol queries.
func AcceptConnSteps() []pgmock.Step {
	return []pgmock.Step{
		pgmock.ExpectAnyMessage(&pgproto3.StartupMessage{ProtocolVersion: pgproto3.ProtocolVersionNumber, Parameters: map[string]string{}}),
		pgmock.SendMessage(&pgproto3.AuthenticationOk{}),
		SendParameterStatus("client_encoding", "UTF8"),
		SendParameterStatus("standard_conforming_strings", "on"),
		pgmock.SendMessage(&pgproto3.BackendKeyData{ProcessID: 0, SecretKey: 0}),
		SendReadyForQuery('I'),
	}
}

// SendParameterStatus reports a server parameter.
func SendParameterStatus(name, value string) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.ParameterStatus{Name: name, Value: value})
}

// ExpectQuery returns a step that expects a simple query message.
func ExpectQuery(query string) pgmock.Step {
	return pgmock.ExpectMessage(&pgproto3.Query{String: query})
}

// ExpectAnyQuery accepts a simple query regardless of its text.
func ExpectAnyQuery() pgmock.Step {
	return pgmock.ExpectAnyMessage(&pgproto3.Query{})
}

// SendRowDescription returns a step that sends column metadata.
func SendRowDescription(fields []pgproto3.FieldDescription) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.RowDescription{Fields: fields})
}

// TextField describes a text-format result column of the given type.
func TextField(name string, typeOID uint32) pgproto3.FieldDescription {
	return pgproto3.FieldDescription{
		Name:         []byte(name),
		DataTypeOID:  typeOID,
		DataTypeSize: -1,
		TypeModifier: -1,
		Format:       0,
	}
}

// SendDataRow returns a step that sends a row of data.
func SendDataRow(values [][]byte) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.DataRow{Values: values})
}

// SendCommandComplete returns a step that sends command completion.
func SendCommandComplete(tag string) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.CommandComplete{CommandTag: []byte(tag)})
}

// SendReadyForQuery returns a step that sends ready for query status.
// status should be 'I' (idle), 'T' (in transaction), or 'E' (error).
func SendReadyForQuery(status byte) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.ReadyForQuery{TxStatus: status})
}

// SendError returns a step that sends an error response.
func SendError(severity, code, message string) pgmock.Step {
	return pgmock.SendMessage(&pgproto3.ErrorResponse{
		Severity: severity,
		Code:     code,
		Message:  message,
	})
}

// WaitForClose returns a step that waits for connection close.
func WaitForClose() pgmock.Step {
	return pgmock.WaitForClose()
}

// SimpleQuerySteps returns a common pattern: expect query, return result, ready for query.
func SimpleQuerySteps(query string, tag string) []pgmock.Step {
	return []pgmock.Step{
		ExpectQuery(query),
		SendCommandComplete(tag),
		SendReadyForQuery('I'),
	}
}

// AnyQuerySteps answers one simple query of any text with the given
// command tags, one per statement, ending in txStatus.
func AnyQuerySteps(txStatus byte, tags ...string) []pgmock.Step {
	steps := []pgmock.Step{ExpectAnyQuery()}
	for _, tag := range tags {
		steps = append(steps, SendCommandComplete(tag))
	}
	return append(steps, SendReadyForQuery(txStatus))
}

// FailedQuerySteps answers one simple query of any text with an error.
func FailedQuerySteps(code, message string) []pgmock.Step {
	return []pgmock.Step{
		ExpectAnyQuery(),
		SendError("ERROR", code, message),
		SendReadyForQuery('E'),
	}
}

// SimpleSelectSteps returns steps for a simple SELECT query with results.
func SimpleSelectSteps(query string, fields []pgproto3.FieldDescription, rows [][][]byte, tag string) []pgmock.Step {
	steps := []pgmock.Step{
		ExpectQuery(query),
		SendRowDescription(fields),
	}
	for _, row := range rows {
		steps = append(steps, SendDataRow(row))
	}
	steps = append(steps,
		SendCommandComplete(tag),
		SendReadyForQuery('I'),
	)
	return steps
}
