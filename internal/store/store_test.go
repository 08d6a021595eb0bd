package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/repository/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCommitAppliesLocallyAndPersists(t *testing.T) {
	repo := memory.NewRepository()
	s := New(repo, Options{}, nil)

	shift := models.Shift{ID: "sh1", LocationID: "c1", Date: day(2024, 3, 1), StartTime: "07:00", EndTime: "19:00", Type: models.ShiftDay}
	applied, err := s.Commit(Upsert(repository.TableShifts, shift))
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(applied) != 1 {
		t.Fatalf("expected 1 applied change, got %d", len(applied))
	}

	got, ok := Get[models.Shift](s, repository.TableShifts, "sh1")
	if !ok || got.LocationID != "c1" {
		t.Fatalf("shift not visible locally: %+v %v", got, ok)
	}

	s.Flush()
	rec, ok := repo.Get(repository.TableShifts, "sh1")
	if !ok {
		t.Fatal("shift was not persisted")
	}
	if rec["locationid"] != "c1" {
		t.Errorf("persisted record = %v", rec)
	}
}

func TestPersistFailureKeepsLocalStateAndReportsError(t *testing.T) {
	repo := memory.NewRepository()
	repo.FailWith = errors.New("connection reset")
	s := New(repo, Options{}, nil)

	if _, err := s.Commit(Upsert(repository.TableStaff, models.Staff{ID: "s1", Name: "Ana"})); err != nil {
		t.Fatalf("Commit should not fail on persistence errors: %v", err)
	}
	s.Flush()

	if _, ok := Get[models.Staff](s, repository.TableStaff, "s1"); !ok {
		t.Error("local change must survive a persistence failure")
	}

	select {
	case pe := <-s.PersistErrors():
		if pe.Change.ID != "s1" || pe.Err == nil {
			t.Errorf("unexpected persist error %+v", pe)
		}
	case <-time.After(time.Second):
		t.Fatal("expected a persist error event")
	}
}

func TestDeleteUnknownIDLenientAndStrict(t *testing.T) {
	lenient := New(memory.NewRepository(), Options{}, nil)
	applied, err := lenient.Commit(Delete(repository.TableShifts, "ghost"))
	if err != nil {
		t.Fatalf("lenient delete: %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("lenient miss should apply nothing, got %d", len(applied))
	}

	strict := New(memory.NewRepository(), Options{StrictLookups: true}, nil)
	if _, err := strict.Commit(Delete(repository.TableShifts, "ghost")); !errors.Is(err, ErrNotFound) {
		t.Errorf("strict delete error = %v, want ErrNotFound", err)
	}
}

func TestApplyLocallyIsAllOrNothing(t *testing.T) {
	s := New(memory.NewRepository(), Options{StrictLookups: true}, nil)

	_, err := s.ApplyLocally(
		Upsert(repository.TableShifts, models.Shift{ID: "a"}),
		Delete(repository.TableShifts, "missing"),
	)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, ok := Get[models.Shift](s, repository.TableShifts, "a"); ok {
		t.Error("no change may be applied when one change fails")
	}
}

func TestUpdateWhere(t *testing.T) {
	repo := memory.NewRepository()
	s := New(repo, Options{}, nil)
	_, _ = s.ApplyLocally(
		Upsert(repository.TableShifts, models.Shift{ID: "1", Station: "Posto A"}),
		Upsert(repository.TableShifts, models.Shift{ID: "2", Station: "Posto B"}),
		Upsert(repository.TableShifts, models.Shift{ID: "3", Station: "Posto A"}),
	)

	applied, err := UpdateWhere(s, repository.TableShifts, func(sh models.Shift) (models.Shift, bool) {
		if sh.Station != "Posto A" {
			return sh, false
		}
		sh.Station = "Posto C"
		return sh, true
	})
	if err != nil {
		t.Fatalf("UpdateWhere: %v", err)
	}
	if len(applied) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(applied))
	}

	s.Flush()
	for _, sh := range s.Shifts() {
		if sh.Station == "Posto A" {
			t.Errorf("shift %s was not renamed", sh.ID)
		}
	}
	if rec, ok := repo.Get(repository.TableShifts, "3"); !ok || rec["station"] != "Posto C" {
		t.Errorf("renamed shift not persisted: %v", rec)
	}
	if _, ok := repo.Get(repository.TableShifts, "2"); ok {
		t.Error("untouched shift should not be written")
	}
}

func TestSubscribeReceivesAppliedChanges(t *testing.T) {
	s := New(memory.NewRepository(), Options{}, nil)

	var seen []string
	cancel := s.Subscribe(func(ch Change) { seen = append(seen, string(ch.Op)+":"+ch.ID) })

	_, _ = s.ApplyLocally(Upsert(repository.TableClients, models.Client{ID: "c1"}))
	_, _ = s.ApplyLocally(Delete(repository.TableClients, "c1"))
	cancel()
	_, _ = s.ApplyLocally(Upsert(repository.TableClients, models.Client{ID: "c2"}))

	want := []string{"upsert:c1", "delete:c1"}
	if len(seen) != len(want) {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("seen[%d] = %s, want %s", i, seen[i], want[i])
		}
	}
}

func TestLoadDecodesBackendRecords(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRepository()
	_ = repo.Upsert(ctx, repository.TableClients, repository.Record{
		"id": "c1", "name": "Condomínio", "contractvalue": "1000", "paymentday": float64(10), "isactive": true, "city": "Recife",
	})
	_ = repo.Upsert(ctx, repository.TableClients, repository.Record{"id": "bad", "paymentday": "not a number"})

	s := New(repo, Options{}, nil)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	clients := s.Clients()
	if len(clients) != 1 {
		t.Fatalf("expected 1 decodable client, got %d", len(clients))
	}
	c := clients[0]
	if c.Name != "Condomínio" || c.PaymentDay != 10 || !c.IsActive || c.Address.City != "Recife" {
		t.Errorf("decoded client = %+v", c)
	}
}
