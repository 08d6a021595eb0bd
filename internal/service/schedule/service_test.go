package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mamadbah2/guardops/internal/domain/models"
	"github.com/mamadbah2/guardops/internal/repository"
	"github.com/mamadbah2/guardops/internal/repository/memory"
	"github.com/mamadbah2/guardops/internal/store"
	"github.com/mamadbah2/guardops/pkg/clients/anthropic"
)

type recordingNotifier struct {
	calls []string
	err   error
}

func (n *recordingNotifier) NotifyShifts(_ context.Context, staff models.Staff, shifts []models.Shift) error {
	for range shifts {
		n.calls = append(n.calls, staff.ID)
	}
	return n.err
}

type stubSuggester struct {
	suggestions []anthropic.ShiftSuggestion
	brief       anthropic.ScheduleBrief
}

func (s *stubSuggester) SuggestShifts(_ context.Context, brief anthropic.ScheduleBrief) ([]anthropic.ShiftSuggestion, error) {
	s.brief = brief
	return s.suggestions, nil
}

func newTestService(t *testing.T, strict bool, notifier Notifier, suggester anthropic.Client) (*Service, *store.Store) {
	t.Helper()
	st := store.New(memory.NewRepository(), store.Options{StrictLookups: strict}, nil)
	_, err := st.ApplyLocally(
		store.Upsert(repository.TableStaff, models.Staff{ID: "s1", Name: "João Lima", Phone: "5581999990000", IsActive: true}),
		store.Upsert(repository.TableClients, models.Client{ID: "clientX", Name: "Edifício X", IsActive: true, Stations: []string{"Posto A"}}),
		store.Upsert(repository.TableClients, models.Client{ID: "clientY", Name: "Edifício Y", IsActive: true}),
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewService(st, notifier, suggester, nil)
	svc.generator = testGenerator()
	return svc, st
}

func TestServiceCreateStoresAndNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, st := newTestService(t, false, notifier, nil)

	end := date(2025, 1, 31)
	shifts, err := svc.Create(context.Background(), Request{
		StaffID:      "s1",
		LocationID:   "clientX",
		StartTime:    "07:00",
		EndTime:      "19:00",
		StartDate:    date(2025, 1, 1),
		IsRecurring:  true,
		SelectedDays: []time.Weekday{time.Monday},
		EndDate:      &end,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(shifts) != 4 || len(st.Shifts()) != 4 {
		t.Fatalf("expected 4 stored shifts, got %d/%d", len(shifts), len(st.Shifts()))
	}
	if len(notifier.calls) != 4 {
		t.Errorf("expected staff to be told about 4 shifts, got %d", len(notifier.calls))
	}
}

func TestServiceCreateIgnoresNotifierFailure(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("whatsapp down")}
	svc, _ := newTestService(t, false, notifier, nil)

	_, err := svc.Create(context.Background(), Request{StaffID: "s1", LocationID: "clientX", StartTime: "07:00", EndTime: "19:00", StartDate: date(2025, 1, 1)})
	if err != nil {
		t.Fatalf("notification failures must not fail the request: %v", err)
	}
}

func TestServiceCreateRejectsInvalidRequest(t *testing.T) {
	svc, st := newTestService(t, false, nil, nil)

	_, err := svc.Create(context.Background(), Request{LocationID: "clientX", StartTime: "07:00", EndTime: "19:00", StartDate: date(2025, 1, 1), IsRecurring: true, SelectedDays: []time.Weekday{time.Monday}})
	if !errors.Is(err, ErrMissingEndDate) {
		t.Fatalf("error = %v, want ErrMissingEndDate", err)
	}
	if len(st.Shifts()) != 0 {
		t.Errorf("nothing may be stored on validation failure")
	}
}

func TestServiceEditUnknownShift(t *testing.T) {
	req := Request{ShiftID: "ghost", LocationID: "clientX", StartTime: "07:00", EndTime: "19:00", StartDate: date(2025, 1, 1)}

	lenient, _ := newTestService(t, false, nil, nil)
	shift, err := lenient.Edit(context.Background(), req)
	if err != nil || shift != nil {
		t.Errorf("lenient edit = %v, %v; want nil, nil", shift, err)
	}

	strict, _ := newTestService(t, true, nil, nil)
	if _, err := strict.Edit(context.Background(), req); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("strict edit error = %v, want ErrNotFound", err)
	}
}

func TestServiceEditKeepsRecurrence(t *testing.T) {
	svc, st := newTestService(t, false, nil, nil)
	_, _ = st.ApplyLocally(store.Upsert(repository.TableShifts, models.Shift{ID: "sh1", LocationID: "clientX", RecurrenceID: "group-7", Date: date(2024, 3, 1), StartTime: "07:00", EndTime: "19:00"}))

	shift, err := svc.Edit(context.Background(), Request{ShiftID: "sh1", LocationID: "clientX", StartTime: "19:00", EndTime: "07:00", StartDate: date(2024, 3, 2)})
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if shift.RecurrenceID != "group-7" || shift.Type != models.ShiftNight {
		t.Errorf("edited shift = %+v", shift)
	}
	if got, _ := store.Get[models.Shift](st, repository.TableShifts, "sh1"); !got.Date.Equal(date(2024, 3, 2)) {
		t.Errorf("stored shift date = %s", got.Date)
	}
}

func TestServiceRenameStationCascade(t *testing.T) {
	svc, st := newTestService(t, false, nil, nil)
	target := date(2024, 3, 1)
	_, _ = st.ApplyLocally(
		store.Upsert(repository.TableShifts, models.Shift{ID: "match-day", LocationID: "clientX", Date: target, Station: "Posto A", StartTime: "07:00"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "match-night", LocationID: "clientX", Date: target, Station: "Posto A", StartTime: "19:00"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "other-client", LocationID: "clientY", Date: target, Station: "Posto A"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "other-date", LocationID: "clientX", Date: date(2024, 3, 2), Station: "Posto A"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "other-station", LocationID: "clientX", Date: target, Station: "Posto C"}),
	)

	n, err := svc.RenameStation(context.Background(), "clientX", target, "Posto A", "Posto B")
	if err != nil {
		t.Fatalf("RenameStation: %v", err)
	}
	if n != 2 {
		t.Errorf("renamed %d shifts, want 2", n)
	}

	want := map[string]string{
		"match-day":     "Posto B",
		"match-night":   "Posto B",
		"other-client":  "Posto A",
		"other-date":    "Posto A",
		"other-station": "Posto C",
	}
	for _, s := range st.Shifts() {
		if s.Station != want[s.ID] {
			t.Errorf("shift %s station = %s, want %s", s.ID, s.Station, want[s.ID])
		}
	}
}

func TestServiceRenameStationWithoutMatches(t *testing.T) {
	lenient, _ := newTestService(t, false, nil, nil)
	if n, err := lenient.RenameStation(context.Background(), "clientX", date(2024, 3, 1), "Nope", "Posto B"); err != nil || n != 0 {
		t.Errorf("lenient rename = %d, %v", n, err)
	}

	strict, _ := newTestService(t, true, nil, nil)
	if _, err := strict.RenameStation(context.Background(), "clientX", date(2024, 3, 1), "Nope", "Posto B"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("strict rename error = %v", err)
	}
}

func TestServiceDeleteRecurrence(t *testing.T) {
	svc, st := newTestService(t, false, nil, nil)
	_, _ = st.ApplyLocally(
		store.Upsert(repository.TableShifts, models.Shift{ID: "1", RecurrenceID: "group-1"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "2", RecurrenceID: "group-1"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "3", RecurrenceID: "group-2"}),
	)

	n, err := svc.DeleteRecurrence(context.Background(), "group-1")
	if err != nil {
		t.Fatalf("DeleteRecurrence: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d, want 2", n)
	}
	if left := st.Shifts(); len(left) != 1 || left[0].ID != "3" {
		t.Errorf("remaining shifts = %+v", left)
	}
}

func TestServiceListOrdersAndFilters(t *testing.T) {
	svc, st := newTestService(t, false, nil, nil)
	_, _ = st.ApplyLocally(
		store.Upsert(repository.TableShifts, models.Shift{ID: "late", LocationID: "clientX", Date: date(2024, 3, 1), StartTime: "19:00"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "early", LocationID: "clientX", Date: date(2024, 3, 1), StartTime: "07:00"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "elsewhere", LocationID: "clientY", Date: date(2024, 3, 1), StartTime: "07:00"}),
		store.Upsert(repository.TableShifts, models.Shift{ID: "tomorrow", LocationID: "clientX", Date: date(2024, 3, 2), StartTime: "07:00"}),
	)

	got := svc.List(Filter{Date: date(2024, 3, 1), LocationID: "clientX"})
	if len(got) != 2 || got[0].ID != "early" || got[1].ID != "late" {
		t.Errorf("List = %+v", got)
	}
}

func TestServiceSuggestValidatesDrafts(t *testing.T) {
	suggester := &stubSuggester{suggestions: []anthropic.ShiftSuggestion{
		{StaffID: "s1", LocationID: "clientX", Station: "Posto A", Date: "2025-01-06", StartTime: "07:00", EndTime: "19:00"},
		{StaffID: "s1", LocationID: "clientX", Date: "2025-01-20", StartTime: "07:00", EndTime: "19:00"},
		{StaffID: "ghost", LocationID: "clientX", Date: "2025-01-07", StartTime: "07:00", EndTime: "19:00"},
		{LocationID: "nowhere", Date: "2025-01-07", StartTime: "07:00", EndTime: "19:00"},
		{LocationID: "clientX", Date: "2025-01-08", StartTime: "bad", EndTime: "19:00"},
	}}
	svc, st := newTestService(t, false, nil, suggester)

	drafts, err := svc.Suggest(context.Background(), date(2025, 1, 6))
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Station != "Posto A" {
		t.Errorf("drafts = %+v", drafts)
	}
	if len(st.Shifts()) != 0 {
		t.Error("suggestions must not be stored")
	}
	if len(suggester.brief.Staff) != 1 || len(suggester.brief.Locations) != 2 {
		t.Errorf("brief = %+v", suggester.brief)
	}
}

func TestServiceSuggestDisabled(t *testing.T) {
	svc, _ := newTestService(t, false, nil, nil)
	if _, err := svc.Suggest(context.Background(), date(2025, 1, 6)); !errors.Is(err, ErrSuggestionsDisabled) {
		t.Errorf("error = %v", err)
	}
}
