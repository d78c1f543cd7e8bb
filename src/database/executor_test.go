package database

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"todoservice/src/model"
)

func newMockExecutor(t *testing.T) (*Executor, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewExecutor(db), db, mock
}

func assertReleased(t *testing.T, db *sql.DB) {
	t.Helper()
	assert.Equal(t, 0, db.Stats().InUse, "connection was not released")
}

func TestExecutorRead_ScansRowsInOrder(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, todo, completed FROM todos WHERE id > $1")).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "todo", "completed"}).
			AddRow(1, "Buy milk", false).
			AddRow(2, "Walk dog", true))

	var got []model.Task
	err := exec.Read(context.Background(), "SELECT id, todo, completed FROM todos WHERE id > $1", []any{0},
		func(row RowScanner) error {
			var task model.Task
			if err := row.Scan(&task.ID, &task.Description, &task.Completed); err != nil {
				return err
			}
			got = append(got, task)
			return nil
		})

	require.NoError(t, err)
	assert.Equal(t, []model.Task{
		{ID: 1, Description: "Buy milk", Completed: false},
		{ID: 2, Description: "Walk dog", Completed: true},
	}, got)
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorRead_QueryFailure(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("relation \"todos\" does not exist"))

	err := exec.Read(context.Background(), "SELECT id FROM todos", nil, func(RowScanner) error { return nil })

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Equal(t, "SELECT id FROM todos", qErr.Query)
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorRead_ScanFailure(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	scanErr := errors.New("bad row")
	calls := 0
	err := exec.Read(context.Background(), "SELECT id FROM todos", nil, func(RowScanner) error {
		calls++
		return scanErr
	})

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.ErrorIs(t, err, scanErr)
	assert.Equal(t, 1, calls)
	assertReleased(t, db)
}

func TestExecutorRead_RowError(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	rowErr := errors.New("connection reset by peer")
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2).RowError(1, rowErr))

	err := exec.Read(context.Background(), "SELECT id FROM todos", nil, func(row RowScanner) error {
		var id int64
		return row.Scan(&id)
	})

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.ErrorIs(t, err, rowErr)
	assertReleased(t, db)
}

func TestExecutorWrite_Commits(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE todos SET todo = $1, completed = $2 WHERE id = $3")).
		WithArgs("Buy milk", true, int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	affected, err := exec.Write(context.Background(),
		"UPDATE todos SET todo = $1, completed = $2 WHERE id = $3", "Buy milk", true, int64(1))

	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorWrite_RollsBackOnFailure(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE").WillReturnError(errors.New("null value in column \"todo\""))
	mock.ExpectRollback()

	_, err := exec.Write(context.Background(), "UPDATE todos SET todo = $1", nil)

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorWrite_BeginFailure(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectBegin().WillReturnError(errors.New("server closed the connection unexpectedly"))

	_, err := exec.Write(context.Background(), "UPDATE todos SET completed = true")

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutorWrite_CommitFailure(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("could not serialize access"))

	_, err := exec.Write(context.Background(), "INSERT INTO todos (todo) VALUES ($1)", "x")

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Contains(t, err.Error(), "commit")
	assertReleased(t, db)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecutor_ClosedStoreIsConnectionError(t *testing.T) {
	exec, db, mock := newMockExecutor(t)

	mock.ExpectClose()
	require.NoError(t, db.Close())

	err := exec.Read(context.Background(), "SELECT 1", nil, func(RowScanner) error { return nil })
	var connErr *model.ConnectionError
	assert.True(t, errors.As(err, &connErr))

	_, err = exec.Write(context.Background(), "UPDATE todos SET completed = false")
	assert.True(t, errors.As(err, &connErr))

	assert.True(t, errors.As(exec.Ping(context.Background()), &connErr))
}

func TestInitializeSchema(t *testing.T) {
	exec, _, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS todos")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, InitializeSchema(context.Background(), exec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitializeSchema_PropagatesFailure(t *testing.T) {
	exec, _, mock := newMockExecutor(t)

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied for schema public"))
	mock.ExpectRollback()

	err := InitializeSchema(context.Background(), exec)

	var qErr *model.QueryError
	require.True(t, errors.As(err, &qErr))
	assert.Contains(t, err.Error(), "initialize schema")
}
