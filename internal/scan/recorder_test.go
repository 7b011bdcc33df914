package scan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qrcode-platform/internal/geo"
	"qrcode-platform/internal/model"
	"qrcode-platform/internal/notify"
	"qrcode-platform/internal/repository"
	"qrcode-platform/internal/shortlink"
	"qrcode-platform/internal/testutil"
)

const iphoneUA = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"

type stubLocator struct {
	loc   geo.Location
	err   error
	calls int
}

func (s *stubLocator) Lookup(context.Context, string) (geo.Location, error) {
	s.calls++
	return s.loc, s.err
}

type stubNotifier struct {
	events []notify.ScanEvent
}

func (s *stubNotifier) Enqueue(ev notify.ScanEvent) bool {
	s.events = append(s.events, ev)
	return true
}

func setup(t *testing.T) (*repository.ScanRepository, *shortlink.Resolution) {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "alice", model.PlanPro)
	qr := testutil.CreateQRCode(t, db, user.ID, "flyer", "http://localhost/r/Abc1234")
	res := &shortlink.Resolution{QRCodeID: qr.ID, UserID: user.ID, Name: qr.Name, Type: qr.Type}
	return repository.NewScanRepository(db), res
}

func TestRecorder_RecordsEnrichedScan(t *testing.T) {
	scans, res := setup(t)
	locator := &stubLocator{loc: geo.Location{Country: model.StringPtr("US"), City: model.StringPtr("Austin")}}
	notifier := &stubNotifier{}
	rec := NewRecorder(scans, locator, notifier, zap.NewNop().Sugar())
	fixed := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	rec.now = func() time.Time { return fixed }

	row, err := rec.Record(context.Background(), res, Visit{IP: "8.8.8.8", UserAgent: iphoneUA, Referrer: "https://t.co"})
	require.NoError(t, err)
	require.NotNil(t, row.Device)
	assert.Equal(t, "iPhone", *row.Device)
	assert.Equal(t, "US", *row.Country)
	assert.Equal(t, "Austin", *row.City)
	assert.Equal(t, fixed, row.ScannedAt)

	count, err := scans.CountForQRCode(context.Background(), res.QRCodeID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, res.UserID, notifier.events[0].UserID)
	assert.Equal(t, "flyer", notifier.events[0].Summary.QRCodeName)
}

func TestRecorder_GeoFailureDoesNotBlock(t *testing.T) {
	scans, res := setup(t)
	locator := &stubLocator{err: errors.New("timeout")}
	rec := NewRecorder(scans, locator, nil, zap.NewNop().Sugar())

	row, err := rec.Record(context.Background(), res, Visit{IP: "8.8.8.8", UserAgent: iphoneUA})
	require.NoError(t, err)
	assert.Nil(t, row.Country)
	assert.Nil(t, row.City)
	assert.Equal(t, 1, locator.calls)
}

func TestRecorder_EachCallAppendsOneRow(t *testing.T) {
	scans, res := setup(t)
	rec := NewRecorder(scans, nil, nil, zap.NewNop().Sugar())

	for i := 0; i < 3; i++ {
		_, err := rec.Record(context.Background(), res, Visit{})
		require.NoError(t, err)
	}
	count, err := scans.CountForQRCode(context.Background(), res.QRCodeID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}
