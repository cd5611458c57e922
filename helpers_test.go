package activerecord

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockDatasource registers a sqlmock-backed driver as the default
// datasource. Any statement without a matching expectation fails the test,
// which is what the query-count properties rely on.
func newMockDatasource(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	RegisterDatasource(DefaultDatasource, OpenDB(db).WithLogger(quietLogger()))
	return mock
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// freezeTime pins the timestamp convention clock for the test.
func freezeTime(t *testing.T) time.Time {
	t.Helper()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := now
	now = func() time.Time { return ts }
	t.Cleanup(func() { now = orig })
	return ts
}

// pointRecorder is a CallbackManager that records the lifecycle points it
// was asked to run and can be told to abort at one of them.
type pointRecorder struct {
	points []Point
	fail   map[Point]bool
}

func (p *pointRecorder) Run(r *Record, point Point) bool {
	p.points = append(p.points, point)
	return !p.fail[point]
}
