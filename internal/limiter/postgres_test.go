package limiter

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRow struct{ scan func(dest ...any) error }

func (r fakeRow) Scan(dest ...any) error { return r.scan(dest...) }

type fakePool struct {
	hits  int
	qrErr error
	args  []any

	execSQL string
	execN   int64
	execErr error
}

func (f *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.args = args
	if f.execErr != nil {
		return pgconn.CommandTag{}, f.execErr
	}
	return pgconn.NewCommandTag("DELETE " + strconv.FormatInt(f.execN, 10)), nil
}

func (f *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.args = args
	if !strings.Contains(sql, "RETURNING hits") {
		return fakeRow{scan: func(...any) error { return errors.New("unexpected query") }}
	}
	return fakeRow{scan: func(dest ...any) error {
		if f.qrErr != nil {
			return f.qrErr
		}
		*(dest[0].(*int)) = f.hits
		return nil
	}}
}

func newLimiter(fp *fakePool, now time.Time) *PG {
	l := NewPG(fp)
	l.now = func() time.Time { return now }
	return l
}

func TestAllow_UnderLimit(t *testing.T) {
	fp := &fakePool{hits: 10}
	now := time.Date(2026, 3, 14, 10, 7, 0, 0, time.UTC)
	l := newLimiter(fp, now)

	ok, retry, err := l.Allow(context.Background(), "orders", HashIP("10.0.0.1"), 10, 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, retry)

	require.Len(t, fp.args, 3)
	assert.Equal(t, "orders", fp.args[0])
	assert.Equal(t, time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC), fp.args[2])
}

func TestAllow_OverLimit(t *testing.T) {
	fp := &fakePool{hits: 11}
	now := time.Date(2026, 3, 14, 10, 7, 0, 0, time.UTC)
	l := newLimiter(fp, now)

	ok, retry, err := l.Allow(context.Background(), "orders", HashIP("10.0.0.1"), 10, 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 8*time.Minute, retry)
}

func TestAllow_DBError_Propagates(t *testing.T) {
	fp := &fakePool{qrErr: errors.New("db boom")}
	l := newLimiter(fp, time.Now())

	ok, _, err := l.Allow(context.Background(), "orders", HashIP("10.0.0.1"), 10, time.Minute)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	fp := &fakePool{execN: 4}
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	l := newLimiter(fp, now)

	n, err := l.Purge(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Contains(t, fp.execSQL, "DELETE FROM rate_limits")
	assert.Equal(t, now.Add(-time.Hour), fp.args[0])

	fp.execErr = errors.New("exec fail")
	_, err = l.Purge(context.Background(), time.Hour)
	assert.Error(t, err)
}

func TestHashIP_Determinism(t *testing.T) {
	a := HashIP("1.2.3.4")
	b := HashIP("1.2.3.4")
	c := HashIP("5.6.7.8")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 32)
}

func TestRunJanitor_StopsOnCancel(t *testing.T) {
	fp := &fakePool{}
	l := newLimiter(fp, time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.RunJanitor(ctx, time.Hour, time.Hour, zap.NewNop()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}
