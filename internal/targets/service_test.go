package targets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(repo Repository, sales *stubSales, dir *stubDirectory, now time.Time) *Service {
	agg := NewAggregator(sales, dir)
	calc := NewCalculator(agg, dir, "")
	return NewService(repo, agg, calc, dir, func() time.Time { return now })
}

func TestCreateDerivesScopeAndProgress(t *testing.T) {
	repo := newMemRepo()
	sales := &stubSales{allocated: map[int64]float64{10: 150}}
	dir := &stubDirectory{
		salesPersonByEmployee: map[int64]int64{1: 10},
		departmentByEmployee:  map[int64]int64{1: 5},
		parentByDepartment:    map[int64]int64{5: 2},
		employeeNames:         map[int64]string{1: "Ada Rivera"},
	}
	svc := newTestService(repo, sales, dir, date(2024, time.February, 15))

	created, err := svc.Create(context.Background(), Target{
		Scope:         IndividualScope(1, nil),
		StartDate:     date(2024, time.January, 1),
		EndDate:       date(2024, time.December, 31),
		MonthlyTarget: 100,
	})
	require.NoError(t, err)

	assert.Equal(t, DocStatusDraft, created.DocStatus)
	require.NotNil(t, created.DepartmentID)
	assert.Equal(t, int64(5), *created.DepartmentID)
	require.NotNil(t, created.ParentDepartmentID)
	assert.Equal(t, int64(2), *created.ParentDepartmentID)
	assert.Equal(t, "Ada Rivera", created.OwnerDisplay)
	assert.Equal(t, 150.0, created.AchievedTotal)
	// Two elapsed months at 100 with 150 achieved.
	assert.Equal(t, 50.0, created.MonthlyTargetCurrent)
	assert.Equal(t, 100.0, created.MonthlyProgress, "progress clamps at 100")
}

func TestCreateRejectsContradictoryScope(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubSales{}, &stubDirectory{}, date(2024, time.January, 1))

	companyID := int64(1)
	departmentID := int64(5)
	_, err := svc.Create(context.Background(), Target{
		Scope: Scope{Level: LevelCompany, CompanyID: &companyID, DepartmentID: &departmentID},
	})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = svc.Create(context.Background(), Target{
		Scope: Scope{Level: LevelDepartment},
	})
	assert.ErrorIs(t, err, ErrInvalidScope)

	_, err = svc.Create(context.Background(), Target{
		Scope: Scope{Level: LevelIndividual},
	})
	assert.ErrorIs(t, err, ErrInvalidScope)
}

func TestCreateRejectsInvertedPeriod(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubSales{}, &stubDirectory{}, date(2024, time.January, 1))

	_, err := svc.Create(context.Background(), Target{
		Scope:     CompanyScope(nil),
		StartDate: date(2024, time.June, 1),
		EndDate:   date(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestUpdateOnlyDraftTargets(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubSales{}, &stubDirectory{}, date(2024, time.January, 1))

	created, err := svc.Create(context.Background(), Target{Scope: CompanyScope(nil)})
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), created.ID)
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), created.ID, func(t *Target) error {
		t.MonthlyTarget = 500
		return nil
	})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateFlagsUnappliableEdits(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubSales{}, &stubDirectory{}, date(2024, time.January, 1))

	created, err := svc.Create(context.Background(), Target{Scope: CompanyScope(nil)})
	require.NoError(t, err)

	bad := "not-a-date"
	req := UpdateTargetRequest{StartDate: &bad}
	_, err = svc.Update(context.Background(), created.ID, req.Apply)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.NotErrorIs(t, err, ErrInvalidPeriod)
}

func TestDocStatusTransitions(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, &stubSales{}, &stubDirectory{}, date(2024, time.January, 1))

	created, err := svc.Create(context.Background(), Target{Scope: CompanyScope(nil)})
	require.NoError(t, err)

	submitted, err := svc.Submit(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, DocStatusSubmitted, submitted.DocStatus)

	// A submitted target cannot be submitted again.
	_, err = svc.Submit(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)

	cancelled, err := svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, DocStatusCancelled, cancelled.DocStatus)

	_, err = svc.Cancel(context.Background(), created.ID)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestRefreshIsIdempotentForFrozenClock(t *testing.T) {
	repo := newMemRepo()
	sales := &stubSales{allocated: map[int64]float64{10: 40}}
	dir := &stubDirectory{salesPersonByEmployee: map[int64]int64{1: 10}}
	now := date(2024, time.February, 15)
	svc := newTestService(repo, sales, dir, now)

	created, err := svc.Create(context.Background(), Target{
		Scope:         IndividualScope(1, nil),
		StartDate:     date(2024, time.January, 1),
		EndDate:       date(2024, time.December, 31),
		MonthlyTarget: 100,
	})
	require.NoError(t, err)

	first, err := svc.Refresh(context.Background(), created.ID, now)
	require.NoError(t, err)
	second, err := svc.Refresh(context.Background(), created.ID, now)
	require.NoError(t, err)

	assert.Equal(t, first.Derived(), second.Derived())
	assert.Equal(t, 160.0, second.MonthlyTargetCurrent)
	assert.Equal(t, 2, repo.derivedSaves)
}

func TestRefreshTracksElapsingTime(t *testing.T) {
	repo := newMemRepo()
	sales := &stubSales{allocated: map[int64]float64{10: 0}}
	dir := &stubDirectory{salesPersonByEmployee: map[int64]int64{1: 10}}
	svc := newTestService(repo, sales, dir, date(2024, time.January, 10))

	created, err := svc.Create(context.Background(), Target{
		Scope:         IndividualScope(1, nil),
		StartDate:     date(2024, time.January, 1),
		EndDate:       date(2024, time.December, 31),
		MonthlyTarget: 100,
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, created.MonthlyTargetCurrent)

	// With no sales, the obligation grows by one nominal target per
	// elapsed month.
	refreshed, err := svc.Refresh(context.Background(), created.ID, date(2024, time.March, 10))
	require.NoError(t, err)
	assert.Equal(t, 300.0, refreshed.MonthlyTargetCurrent)
}

func TestRefreshRunsForSubmittedAndCancelledTargets(t *testing.T) {
	repo := newMemRepo()
	sales := &stubSales{allocated: map[int64]float64{10: 0}}
	dir := &stubDirectory{salesPersonByEmployee: map[int64]int64{1: 10}}
	now := date(2024, time.January, 10)
	svc := newTestService(repo, sales, dir, now)

	created, err := svc.Create(context.Background(), Target{
		Scope:         IndividualScope(1, nil),
		StartDate:     date(2024, time.January, 1),
		EndDate:       date(2024, time.December, 31),
		MonthlyTarget: 100,
	})
	require.NoError(t, err)
	_, err = svc.Submit(context.Background(), created.ID)
	require.NoError(t, err)
	_, err = svc.Cancel(context.Background(), created.ID)
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), created.ID, now)
	require.NoError(t, err)
	assert.Equal(t, DocStatusCancelled, refreshed.DocStatus)
	assert.Equal(t, 100.0, refreshed.MonthlyTargetCurrent)
}

func TestProgressClamping(t *testing.T) {
	assert.Equal(t, 0.0, Progress(50, 0))
	assert.Equal(t, 0.0, Progress(50, -10))
	assert.Equal(t, 50.0, Progress(50, 100))
	assert.Equal(t, 100.0, Progress(150, 100))
	assert.Equal(t, 0.0, Progress(-20, 100))
}
