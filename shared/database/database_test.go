package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectAndMigrate(t *testing.T) {
	ctx := context.Background()
	db, err := Connect(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	schema := `
CREATE TABLE IF NOT EXISTS notes (id TEXT PRIMARY KEY);
CREATE INDEX IF NOT EXISTS idx_notes_id ON notes(id);
`
	require.NoError(t, Migrate(ctx, db, schema))
	// second run must be a no-op
	require.NoError(t, Migrate(ctx, db, schema))

	_, err = db.Exec(`INSERT INTO notes (id) VALUES ($1)`, "a")
	assert.NoError(t, err)
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), "nope", "")
	assert.Error(t, err)
}

func TestConnect_SQLiteLowerFoldsUnicode(t *testing.T) {
	db, err := Connect(context.Background(), "sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	var lowered string
	require.NoError(t, db.QueryRow(`SELECT LOWER($1)`, "ÜBERWEISUNG Straße").Scan(&lowered))
	assert.Equal(t, "überweisung straße", lowered)
}

type recordingCloser struct {
	closed chan struct{}
	err    error
}

func (c *recordingCloser) Close() error {
	close(c.closed)
	return c.err
}

func TestCloseAfter_WaitsForShutdown(t *testing.T) {
	wait := make(chan int)
	closer := &recordingCloser{closed: make(chan struct{})}

	result := make(chan int, 1)
	go func() { result <- CloseAfter(wait, closer) }()

	select {
	case <-closer.closed:
		t.Fatal("database closed before shutdown operations finished")
	case <-time.After(50 * time.Millisecond):
	}

	wait <- 0
	assert.Equal(t, 0, <-result)
	select {
	case <-closer.closed:
	default:
		t.Fatal("database not closed after shutdown")
	}
}

func TestCloseAfter_CloseErrorFailsExit(t *testing.T) {
	wait := make(chan int, 1)
	wait <- 0
	closer := &recordingCloser{closed: make(chan struct{}), err: errors.New("busy")}
	assert.Equal(t, 1, CloseAfter(wait, closer))

	wait = make(chan int, 1)
	wait <- 2
	closer = &recordingCloser{closed: make(chan struct{})}
	assert.Equal(t, 2, CloseAfter(wait, closer))
}
