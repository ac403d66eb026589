package services_test

import (
	"context"
	"sync"

	"github.com/TimmyIudin/csv-to-postgres-pipeline/pkg/csvimport"
)

type mockConnector struct {
	conn *mockConn
	err  error
}

func (m *mockConnector) Connect(_ context.Context) (csvimport.DBConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.conn, nil
}

type mockConn struct {
	mu         sync.Mutex
	closeCalls int
	closeErr   error
}

func (m *mockConn) Driver() csvimport.Driver { return csvimport.DriverPostgres }

func (m *mockConn) Exec(_ context.Context, _ string, _ ...any) error { return nil }

func (m *mockConn) Begin(_ context.Context) (csvimport.Tx, error) { return nil, nil }

func (m *mockConn) Close(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeCalls++
	return m.closeErr
}

type mockEnsurer struct {
	calls int
	err   error
}

func (m *mockEnsurer) Ensure(_ context.Context, _ csvimport.DBConnection, _ string) error {
	m.calls++
	return m.err
}

type mockWriter struct {
	calls     int
	rows      []csvimport.SalesRow
	batchSize int
	err       error
}

func (m *mockWriter) Insert(_ context.Context, _ csvimport.DBConnection, _ string, rows []csvimport.SalesRow, batchSize int) (int64, error) {
	m.calls++
	m.batchSize = batchSize
	if m.err != nil {
		return 0, m.err
	}
	m.rows = append(m.rows, rows...)
	return int64(len(rows)), nil
}

// mockFactory records how many times a connector was requested.
type mockFactory struct {
	connector *mockConnector
	err       error
	calls     int
}

func (m *mockFactory) create(_ *csvimport.ConnectionConfig) (csvimport.Connector, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.connector, nil
}
