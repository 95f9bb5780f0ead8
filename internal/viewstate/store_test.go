package viewstate

import (
	"testing"
	"time"

	"github.com/Richmiz/Coinlytics/internal/core"
	"github.com/Richmiz/Coinlytics/internal/stream"
	"github.com/Richmiz/Coinlytics/internal/timewindow"
)

func sampleRecords() []core.TransactionRecord {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	return []core.TransactionRecord{
		{
			ID: "tx-1", UserID: "user-1", Kind: core.Income, Title: "Salary",
			Amount: core.Money{Cents: 1000}, Category: core.CategoryMoney, CreatedAt: at,
		},
		{
			ID: "tx-2", UserID: "user-1", Kind: core.Expense, Title: "Lunch",
			Amount: core.Money{Cents: 400}, Category: core.CategoryFood, CreatedAt: at.Add(time.Hour),
		},
	}
}

func TestStore_ApplyBatchDerivesAggregate(t *testing.T) {
	s := NewStore()
	s.ApplyBatch(ViewDashboard, sampleRecords())

	v := s.Get(ViewDashboard)
	if len(v.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(v.Records))
	}
	if v.Aggregate.IncomeCents != 1000 || v.Aggregate.ExpenseCents != 400 || v.Aggregate.BalanceCents != 600 {
		t.Errorf("Aggregate = %+v, want {1000 400 600}", v.Aggregate)
	}
	if v.Loading {
		t.Error("Loading should be cleared by ApplyBatch")
	}
	if v.LastError != "" {
		t.Errorf("LastError = %q, want empty", v.LastError)
	}
}

func TestStore_ErrorKeepsPriorRecords(t *testing.T) {
	s := NewStore()
	s.ApplyBatch(ViewHistory, sampleRecords())

	s.SetError(ViewHistory, stream.KindNetworkFailure)

	v := s.Get(ViewHistory)
	if len(v.Records) != 2 {
		t.Errorf("len(Records) = %d after error, want 2 (stale data preserved)", len(v.Records))
	}
	if v.Aggregate.BalanceCents != 600 {
		t.Errorf("Aggregate.BalanceCents = %d after error, want 600", v.Aggregate.BalanceCents)
	}
	if v.LastError != stream.KindNetworkFailure {
		t.Errorf("LastError = %q, want %q", v.LastError, stream.KindNetworkFailure)
	}
}

func TestStore_GoodBatchClearsError(t *testing.T) {
	s := NewStore()
	s.SetError(ViewDashboard, stream.KindStreamUnavailable)
	s.ApplyBatch(ViewDashboard, sampleRecords())

	if v := s.Get(ViewDashboard); v.LastError != "" {
		t.Errorf("LastError = %q after good batch, want empty", v.LastError)
	}
}

func TestStore_GetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.ApplyBatch(ViewDashboard, sampleRecords())

	v := s.Get(ViewDashboard)
	v.Records[0].Title = "mutated"

	if got := s.Get(ViewDashboard).Records[0].Title; got != "Salary" {
		t.Errorf("store record Title = %q after caller mutation, want %q", got, "Salary")
	}
}

func TestStore_SetWindow(t *testing.T) {
	s := NewStore()
	ref := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	s.SetWindow(ViewHistory, timewindow.Day(ref), timewindow.Week(ref))

	v := s.Get(ViewHistory)
	if v.Day == nil {
		t.Fatal("Day window not set")
	}
	if !v.Day.Contains(ref) {
		t.Errorf("Day window %v..%v does not contain %v", v.Day.Start, v.Day.End, ref)
	}
	if len(v.Week) != 7 {
		t.Errorf("len(Week) = %d, want 7", len(v.Week))
	}
}

func TestStore_ClearAll(t *testing.T) {
	s := NewStore()
	s.ApplyBatch(ViewDashboard, sampleRecords())
	s.ApplyBatch(ViewHistory, sampleRecords())

	s.ClearAll()

	for _, kind := range Kinds() {
		v := s.Get(kind)
		if len(v.Records) != 0 || v.Aggregate != (core.Snapshot{}) || v.LastError != "" {
			t.Errorf("view %s not cleared: %+v", kind, v)
		}
	}
}
