package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/topupgh/topup-api/internal/domain/transaction"
	"github.com/topupgh/topup-api/internal/pkg/tpp"
)

type fakeStore struct {
	pending []transaction.Transaction
	listErr error
}

func (f *fakeStore) ListPending(_ context.Context, limit int) ([]transaction.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeStore) GetByReference(_ context.Context, reference string) (*transaction.Transaction, error) {
	for i := range f.pending {
		if f.pending[i].Reference == reference {
			return &f.pending[i], nil
		}
	}
	return nil, transaction.ErrNotFound
}

type fakeQuerier struct {
	responses map[string]*tpp.Response
	errs      map[string]error
}

func (f *fakeQuerier) TransactionStatus(_ context.Context, reference string) (*tpp.Response, error) {
	if err, ok := f.errs[reference]; ok {
		return nil, err
	}
	if resp, ok := f.responses[reference]; ok {
		return resp, nil
	}
	return nil, tpp.ErrUnavailable
}

type fakeSettler struct {
	successes []string
	failures  []string
	pendings  []string
	err       error
}

func (f *fakeSettler) Success(_ context.Context, trx *transaction.Transaction, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.successes = append(f.successes, trx.Reference)
	return nil
}

func (f *fakeSettler) Failure(_ context.Context, trx *transaction.Transaction, _ []byte) error {
	if f.err != nil {
		return f.err
	}
	f.failures = append(f.failures, trx.Reference)
	return nil
}

func (f *fakeSettler) StillPending(_ context.Context, reference string, _ []byte) error {
	f.pendings = append(f.pendings, reference)
	return nil
}

func pendingTrx(reference string) transaction.Transaction {
	return transaction.Transaction{
		Reference:  reference,
		UserID:     uuid.New(),
		Type:       transaction.TypeAirtime,
		Amount:     decimal.NewFromInt(10),
		VendorCost: decimal.RequireFromString("9.80"),
		Status:     transaction.StatusPending,
	}
}

func TestReconcilerOutcomeMapping(t *testing.T) {
	store := &fakeStore{pending: []transaction.Transaction{
		pendingTrx("AIRTIME_1_aaaaaa"),
		pendingTrx("AIRTIME_2_bbbbbb"),
		pendingTrx("AIRTIME_3_cccccc"),
		pendingTrx("AIRTIME_4_dddddd"),
	}}
	querier := &fakeQuerier{
		responses: map[string]*tpp.Response{
			"AIRTIME_1_aaaaaa": {StatusCode: tpp.StatusSuccess, Raw: []byte(`{"status-code":"00"}`)},
			"AIRTIME_2_bbbbbb": {StatusCode: tpp.StatusProcessing, Raw: []byte(`{"status-code":"09"}`)},
			"AIRTIME_3_cccccc": {StatusCode: "13", Raw: []byte(`{"status-code":"13"}`)},
		},
		errs: map[string]error{
			"AIRTIME_4_dddddd": tpp.ErrUnavailable,
		},
	}
	settler := &fakeSettler{}

	r := NewReconciler(store, querier, settler, 0, 0)
	r.RunOnce()

	if len(settler.successes) != 1 || settler.successes[0] != "AIRTIME_1_aaaaaa" {
		t.Errorf("successes: %v", settler.successes)
	}
	if len(settler.pendings) != 1 || settler.pendings[0] != "AIRTIME_2_bbbbbb" {
		t.Errorf("still-pending: %v", settler.pendings)
	}
	if len(settler.failures) != 1 || settler.failures[0] != "AIRTIME_3_cccccc" {
		t.Errorf("failures: %v", settler.failures)
	}
	// Provider unavailable: nothing happens, retried next cycle.
	for _, list := range [][]string{settler.successes, settler.failures, settler.pendings} {
		for _, ref := range list {
			if ref == "AIRTIME_4_dddddd" {
				t.Errorf("unreachable transaction must not be settled")
			}
		}
	}
}

func TestReconcilerSkipsAlreadySettled(t *testing.T) {
	trx := pendingTrx("AIRTIME_5_eeeeee")
	trx.Status = transaction.StatusSuccess // settled between listing and re-read

	store := &fakeStore{pending: []transaction.Transaction{trx}}
	querier := &fakeQuerier{responses: map[string]*tpp.Response{
		"AIRTIME_5_eeeeee": {StatusCode: tpp.StatusSuccess},
	}}
	settler := &fakeSettler{}

	r := NewReconciler(store, querier, settler, 0, 0)
	r.RunOnce()

	if len(settler.successes)+len(settler.failures) != 0 {
		t.Errorf("settled transaction must be skipped")
	}
}

func TestReconcilerIsolatesPerTransactionErrors(t *testing.T) {
	store := &fakeStore{pending: []transaction.Transaction{
		pendingTrx("AIRTIME_6_ffffff"),
		pendingTrx("AIRTIME_7_gggggg"),
	}}
	querier := &fakeQuerier{
		responses: map[string]*tpp.Response{
			"AIRTIME_7_gggggg": {StatusCode: tpp.StatusSuccess},
		},
		errs: map[string]error{
			"AIRTIME_6_ffffff": errors.New("malformed provider reply"),
		},
	}
	settler := &fakeSettler{}

	r := NewReconciler(store, querier, settler, 0, 0)
	r.RunOnce()

	if len(settler.successes) != 1 || settler.successes[0] != "AIRTIME_7_gggggg" {
		t.Errorf("one bad transaction must not block the batch: %v", settler.successes)
	}
}

func TestReconcilerRespectsBatchSize(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 5; i++ {
		store.pending = append(store.pending, pendingTrx(transaction.NewReference(transaction.TypeAirtime)))
	}

	querier := &fakeQuerier{responses: map[string]*tpp.Response{}}
	for _, trx := range store.pending {
		querier.responses[trx.Reference] = &tpp.Response{StatusCode: tpp.StatusSuccess}
	}
	settler := &fakeSettler{}

	r := NewReconciler(store, querier, settler, 0, 2)
	r.RunOnce()

	if len(settler.successes) != 2 {
		t.Errorf("expected batch of 2, settled %d", len(settler.successes))
	}
}
