package temporal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/brojonat/memofeed/service/xrpl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// Mock Store
type MockStore struct {
	mock.Mock
}

func (m *MockStore) LatestLedgerIndex(ctx context.Context, account string) (uint32, error) {
	args := m.Called(ctx, account)
	return args.Get(0).(uint32), args.Error(1)
}

func (m *MockStore) UpsertTransactions(ctx context.Context, feedAccount string, txns []*xrpl.Transaction) (int, error) {
	args := m.Called(ctx, feedAccount, txns)
	return args.Int(0), args.Error(1)
}

// Mock Ledger Client
type MockLedgerClient struct {
	mock.Mock
}

func (m *MockLedgerClient) AccountTransactionsSince(ctx context.Context, account string, minLedger uint32) ([]*xrpl.Transaction, error) {
	args := m.Called(ctx, account, minLedger)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*xrpl.Transaction), args.Error(1)
}

func newTestActivities(store *MockStore, ledger *MockLedgerClient) *Activities {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewActivities(store, ledger, nil, logger)
}

func TestGetArchiveCheckpoint(t *testing.T) {
	store := &MockStore{}
	store.On("LatestLedgerIndex", mock.Anything, testAccount).Return(uint32(90210), nil)

	result, err := newTestActivities(store, &MockLedgerClient{}).
		GetArchiveCheckpoint(context.Background(), GetArchiveCheckpointInput{Account: testAccount})
	require.NoError(t, err)
	assert.Equal(t, uint32(90210), result.LatestLedger)
	store.AssertExpectations(t)
}

func TestGetArchiveCheckpoint_StoreError(t *testing.T) {
	store := &MockStore{}
	store.On("LatestLedgerIndex", mock.Anything, testAccount).Return(uint32(0), errors.New("connection refused"))

	_, err := newTestActivities(store, &MockLedgerClient{}).
		GetArchiveCheckpoint(context.Background(), GetArchiveCheckpointInput{Account: testAccount})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestArchiveLedgerHistory(t *testing.T) {
	txns := []*xrpl.Transaction{
		{Hash: "H3", LedgerIndex: 103},
		{Hash: "H2", LedgerIndex: 102},
		{Hash: "H1", LedgerIndex: 100},
	}

	ledger := &MockLedgerClient{}
	ledger.On("AccountTransactionsSince", mock.Anything, testAccount, uint32(100)).Return(txns, nil)

	store := &MockStore{}
	store.On("UpsertTransactions", mock.Anything, testAccount, txns).Return(3, nil)

	result, err := newTestActivities(store, ledger).
		ArchiveLedgerHistory(context.Background(), ArchiveLedgerHistoryInput{Account: testAccount, MinLedger: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 3, result.Written)
	assert.Equal(t, uint32(103), result.NewestLedger)

	ledger.AssertExpectations(t)
	store.AssertExpectations(t)
}

func TestArchiveLedgerHistory_NothingNew(t *testing.T) {
	ledger := &MockLedgerClient{}
	ledger.On("AccountTransactionsSince", mock.Anything, testAccount, uint32(0)).Return([]*xrpl.Transaction{}, nil)

	store := &MockStore{}

	result, err := newTestActivities(store, ledger).
		ArchiveLedgerHistory(context.Background(), ArchiveLedgerHistoryInput{Account: testAccount})
	require.NoError(t, err)
	assert.Zero(t, result.Fetched)
	assert.Zero(t, result.Written)

	// Nothing to write, so the store is never touched.
	store.AssertNotCalled(t, "UpsertTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiveLedgerHistory_LedgerError(t *testing.T) {
	ledger := &MockLedgerClient{}
	ledger.On("AccountTransactionsSince", mock.Anything, testAccount, uint32(5)).Return(nil, xrpl.ErrAccountNotFound)

	store := &MockStore{}

	_, err := newTestActivities(store, ledger).
		ArchiveLedgerHistory(context.Background(), ArchiveLedgerHistoryInput{Account: testAccount, MinLedger: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, xrpl.ErrAccountNotFound)
	store.AssertNotCalled(t, "UpsertTransactions", mock.Anything, mock.Anything, mock.Anything)
}

func TestArchiveLedgerHistory_StoreError(t *testing.T) {
	txns := []*xrpl.Transaction{{Hash: "H1", LedgerIndex: 1}}

	ledger := &MockLedgerClient{}
	ledger.On("AccountTransactionsSince", mock.Anything, testAccount, uint32(0)).Return(txns, nil)

	store := &MockStore{}
	store.On("UpsertTransactions", mock.Anything, testAccount, txns).Return(0, errors.New("disk full"))

	_, err := newTestActivities(store, ledger).
		ArchiveLedgerHistory(context.Background(), ArchiveLedgerHistoryInput{Account: testAccount})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to archive transactions")
}
