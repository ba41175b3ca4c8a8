package patient

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalapp/clinic-api/internal/model"
	"github.com/vitalapp/clinic-api/internal/repository"
	"github.com/vitalapp/clinic-api/internal/repository/memory"
	"github.com/vitalapp/clinic-api/internal/search"
	apperrors "github.com/vitalapp/clinic-api/pkg/errors"
)

var fixedNow = time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *repository.Repositories) {
	t.Helper()
	repos := memory.NewRepositories(memory.NewDB())
	svc := NewService(repos.Patients, repos.Users, nil, WithClock(func() time.Time { return fixedNow }))
	return svc, repos
}

func createReq(name, doc string, birth model.Date, gender model.Gender) *model.CreatePatientRequest {
	return &model.CreatePatientRequest{
		FullName:       name,
		DocumentNumber: doc,
		BirthDate:      &birth,
		Gender:         gender,
		Phone:          "5512345678",
	}
}

func seed(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	reqs := []*model.CreatePatientRequest{
		createReq("Ana Gomez", "10001", model.NewDate(1990, 1, 10), model.GenderFemale),
		createReq("Bruno Diaz", "10002", model.NewDate(1985, 5, 20), model.GenderMale),
		createReq("Carla Ruiz", "10003", model.NewDate(2000, 3, 3), model.GenderFemale),
		createReq("Dario Paz", "10004", model.NewDate(1970, 12, 1), model.GenderMale),
		createReq("Elena Anaya", "10005", model.NewDate(1995, 7, 7), model.GenderOther),
	}
	for _, r := range reqs {
		_, err := svc.Create(ctx, r)
		require.NoError(t, err)
	}
}

func TestCreate_ComputesAgeAndRejectsDuplicate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	birth := model.DateOf(fixedNow.AddDate(-30, 0, -1))
	p, err := svc.Create(ctx, createReq("Ana Gomez", "55555", birth, model.GenderFemale))
	require.NoError(t, err)
	assert.Equal(t, 30, p.Age)
	assert.True(t, p.Active)
	assert.Equal(t, int64(1), p.Version)

	_, err = svc.Create(ctx, createReq("Otra Persona", "55555", birth, model.GenderFemale))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicate))
}

func TestCreate_ValidatesRequest(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Create(context.Background(), createReq("A1", "1", model.NewDate(1990, 1, 1), "X"))

	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrValidation, appErr.Code)
	assert.Contains(t, appErr.Details, "fullName")
	assert.Contains(t, appErr.Details, "documentNumber")
	assert.Contains(t, appErr.Details, "gender")
}

func TestCreate_UnknownLinkedUser(t *testing.T) {
	svc, _ := newTestService(t)
	req := createReq("Ana Gomez", "55555", model.NewDate(1990, 1, 1), model.GenderFemale)
	missing := uuid.New()
	req.UserID = &missing

	_, err := svc.Create(context.Background(), req)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestFetchPage_NoFiltersReturnsEverything(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	page, err := svc.FetchPage(context.Background(), search.PatientQuery{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Len(t, page.Content, 5)
	assert.Equal(t, 1, page.TotalPages)
	assert.True(t, page.First)
	assert.True(t, page.Last)
}

func TestFetchPage_FiltersAndSorts(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	female := model.GenderFemale
	page, err := svc.FetchPage(context.Background(), search.PatientQuery{
		Size:          10,
		SortBy:        "birthDate",
		SortDirection: "desc",
		Filter:        search.PatientFilter{Gender: &female},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Carla Ruiz", page.Content[0].FullName)
	assert.Equal(t, "Ana Gomez", page.Content[1].FullName)
	assert.Equal(t, 34, page.Content[1].Age)
}

func TestFetchPage_NameIsCaseInsensitiveSubstring(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	page, err := svc.FetchPage(context.Background(), search.PatientQuery{
		Size:   10,
		SortBy: "fullName",
		Filter: search.PatientFilter{FullName: "ANA"},
	})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "Ana Gomez", page.Content[0].FullName)
	assert.Equal(t, "Elena Anaya", page.Content[1].FullName)
}

func TestFetchPage_InvertedBirthRangeIsEmpty(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	from, to := model.NewDate(2000, 1, 1), model.NewDate(1990, 1, 1)
	page, err := svc.FetchPage(context.Background(), search.PatientQuery{
		Size:   10,
		Filter: search.PatientFilter{BirthDateFrom: &from, BirthDateTo: &to},
	})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(0), page.TotalElements)
}

func TestFetchPage_UnknownSortFallsBackToID(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	byID, err := svc.FetchPage(context.Background(), search.PatientQuery{Size: 10, SortBy: "id", SortDirection: "DESC"})
	require.NoError(t, err)
	unknown, err := svc.FetchPage(context.Background(), search.PatientQuery{Size: 10, SortBy: "passwordHash", SortDirection: "DESC"})
	require.NoError(t, err)
	assert.Equal(t, byID.Content, unknown.Content)
}

func TestFetchPage_PagingMetadata(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	page, err := svc.FetchPage(context.Background(), search.PatientQuery{Page: 2, Size: 2, SortBy: "fullName"})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, "Elena Anaya", page.Content[0].FullName)
	assert.Equal(t, 3, page.TotalPages)
	assert.False(t, page.First)
	assert.True(t, page.Last)
}

func TestFetchPage_InvalidPage(t *testing.T) {
	svc, _ := newTestService(t)

	for _, q := range []search.PatientQuery{{Page: -1, Size: 10}, {Size: 0}, {Size: 101}} {
		_, err := svc.FetchPage(context.Background(), q)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation), "%+v", q)
	}
}

func TestFetchPage_HugePageIndex(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)

	_, err := svc.FetchPage(context.Background(), search.PatientQuery{Page: math.MaxInt/10 + 1, Size: 10})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))

	page, err := svc.FetchPage(context.Background(), search.PatientQuery{Page: search.MaxPage(10), Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Positive(t, page.TotalElements)
	assert.True(t, page.Last)
}

func TestUpdate_AppliesFieldsAndChecksVersion(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, createReq("Ana Gomez", "55555", model.NewDate(1990, 1, 1), model.GenderFemale))
	require.NoError(t, err)

	addr := "Calle 1"
	updated, err := svc.Update(ctx, p.ID, &model.UpdatePatientRequest{Address: &addr})
	require.NoError(t, err)
	assert.Equal(t, "Calle 1", updated.Address)
	assert.Equal(t, "Ana Gomez", updated.FullName)
	assert.Equal(t, int64(2), updated.Version)

	stale := int64(1)
	_, err = svc.Update(ctx, p.ID, &model.UpdatePatientRequest{Address: &addr, Version: &stale})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrConflict))
}

func TestDeactivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, createReq("Ana Gomez", "55555", model.NewDate(1990, 1, 1), model.GenderFemale))
	require.NoError(t, err)

	got, err := svc.Deactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = svc.Create(ctx, createReq("Ana Gomez", "55555", model.NewDate(1990, 1, 1), model.GenderFemale))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrDuplicate))
}

func TestDelete_CascadesAndHandlesEmptyPatient(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()

	withRecords, err := svc.Create(ctx, createReq("Ana Gomez", "55555", model.NewDate(1990, 1, 1), model.GenderFemale))
	require.NoError(t, err)
	bare, err := svc.Create(ctx, createReq("Bruno Diaz", "66666", model.NewDate(1990, 1, 1), model.GenderMale))
	require.NoError(t, err)

	require.NoError(t, repos.Triages.Create(ctx, &model.Triage{PatientID: withRecords.ID, SeverityLevel: 2, Status: model.TriageStatusPending}))
	require.NoError(t, repos.Appointments.Create(ctx, &model.Appointment{PatientID: withRecords.ID, ScheduledAt: fixedNow.Add(time.Hour), Status: model.AppointmentStatusScheduled}))

	require.NoError(t, svc.Delete(ctx, withRecords.ID))
	require.NoError(t, svc.Delete(ctx, bare.ID))

	triages, err := repos.Triages.List(ctx, model.TriageFilters{PatientID: &withRecords.ID})
	require.NoError(t, err)
	assert.Empty(t, triages)
	appts, err := repos.Appointments.List(ctx, model.AppointmentFilters{PatientID: &withRecords.ID})
	require.NoError(t, err)
	assert.Empty(t, appts)

	_, err = svc.Get(ctx, withRecords.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
	assert.True(t, apperrors.HasCode(svc.Delete(ctx, bare.ID), apperrors.ErrNotFound))
}

func TestSearchByNameAndDocument(t *testing.T) {
	svc, _ := newTestService(t)
	seed(t, svc)
	ctx := context.Background()

	got, err := svc.SearchByName(ctx, "ruiz")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "10003", got[0].DocumentNumber)

	p, err := svc.GetByDocumentNumber(ctx, "10004")
	require.NoError(t, err)
	assert.Equal(t, "Dario Paz", p.FullName)
}
