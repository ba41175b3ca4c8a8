package memory

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
	"github.com/vitalapp/clinic-api/internal/search"
)

func seedPatients(t *testing.T, repo repository.PatientRepository, names ...string) []*model.Patient {
	t.Helper()
	out := make([]*model.Patient, 0, len(names))
	for i, name := range names {
		p := &model.Patient{
			FullName:       name,
			DocumentNumber: uuid.NewString()[:8] + string(rune('a'+i)),
			Gender:         model.GenderOther,
			Active:         true,
		}
		require.NoError(t, repo.Create(context.Background(), p))
		out = append(out, p)
	}
	return out
}

func TestPatientRepository_DuplicateDocument(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Patient{FullName: "Ana", DocumentNumber: "12345"}))
	err := repo.Create(ctx, &model.Patient{FullName: "Other", DocumentNumber: "12345"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	exists, err := repo.ExistsByDocumentNumber(ctx, "12345")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByDocumentNumber(ctx, "99999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestPatientRepository_FindSortsAndPages(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	seedPatients(t, repo, "Carla", "Ana", "Beto", "Diana", "Elena")
	ctx := context.Background()

	page, total, err := repo.Find(ctx, nil, search.NewSort("fullName", "ASC"), search.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "Ana", page[0].FullName)
	assert.Equal(t, "Beto", page[1].FullName)

	page, _, err = repo.Find(ctx, nil, search.NewSort("fullName", "desc"), search.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Ana", page[0].FullName)

	page, total, err = repo.Find(ctx, nil, search.NewSort("fullName", "ASC"), search.PageRequest{Page: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(5), total)
}

func TestPatientRepository_FindOrdersNamesByteWise(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	seedPatients(t, repo, "ana", "Álvaro", "Beto")

	page, _, err := repo.Find(context.Background(), nil, search.NewSort("fullName", "ASC"), search.PageRequest{Page: 0, Size: 10})
	require.NoError(t, err)
	require.Len(t, page, 3)
	assert.Equal(t, []string{"Beto", "ana", "Álvaro"}, []string{page[0].FullName, page[1].FullName, page[2].FullName})
}

func TestPatientRepository_FindHugeOffsetIsEmpty(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	seedPatients(t, repo, "Ana", "Beto")

	page, total, err := repo.Find(context.Background(), nil, search.NewSort("id", ""), search.PageRequest{Page: math.MaxInt/10 + 1, Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(2), total)
}

func TestPatientRepository_FindWithPredicate(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	seedPatients(t, repo, "Ana Maria", "Mariana", "Pedro")

	pred := search.NewPatientPredicate().FullName("MARI").Build()
	got, total, err := repo.Find(context.Background(), pred, search.NewSort("id", "ASC"), search.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, got, 2)
}

func TestPatientRepository_OptimisticUpdate(t *testing.T) {
	repo := NewPatientRepository(NewDB())
	ctx := context.Background()
	p := seedPatients(t, repo, "Ana")[0]

	first, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	second, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)

	first.Address = "Calle 1"
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, int64(2), first.Version)

	second.Address = "Calle 2"
	assert.ErrorIs(t, repo.Update(ctx, second), repository.ErrVersionConflict)

	stored, err := repo.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Calle 1", stored.Address)
}

func TestPatientRepository_DeleteCascades(t *testing.T) {
	db := NewDB()
	patients := NewPatientRepository(db)
	triages := NewTriageRepository(db)
	appointments := NewAppointmentRepository(db)
	ctx := context.Background()

	seeded := seedPatients(t, patients, "Ana", "Beto")
	target, other := seeded[0], seeded[1]

	for i := 0; i < 2; i++ {
		require.NoError(t, triages.Create(ctx, &model.Triage{PatientID: target.ID, SeverityLevel: 2}))
		require.NoError(t, appointments.Create(ctx, &model.Appointment{PatientID: target.ID, ScheduledAt: time.Now().Add(time.Hour)}))
	}
	require.NoError(t, triages.Create(ctx, &model.Triage{PatientID: other.ID, SeverityLevel: 2}))

	res, err := patients.Delete(ctx, target.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Triages)
	assert.Equal(t, int64(2), res.Appointments)

	_, err = patients.Get(ctx, target.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	left, err := triages.List(ctx, model.TriageFilters{})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, other.ID, left[0].PatientID)

	res, err = patients.Delete(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Appointments)

	_, err = patients.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestNotificationRepository_UnreadAndExpiry(t *testing.T) {
	repo := NewNotificationRepository(NewDB())
	ctx := context.Background()
	me, other := uuid.New(), uuid.New()
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	mine := []*model.Notification{
		{RecipientID: &me, Title: "a"},
		{RecipientID: &me, Title: "b", ExpiresAt: &past},
		{RecipientID: &me, Title: "c", ExpiresAt: &future},
	}
	for _, n := range mine {
		require.NoError(t, repo.Create(ctx, n))
	}
	require.NoError(t, repo.Create(ctx, &model.Notification{RecipientID: &other, Title: "x"}))

	count, err := repo.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	read, err := repo.MarkRead(ctx, mine[0].ID, time.Now())
	require.NoError(t, err)
	assert.True(t, read.Read)
	assert.NotNil(t, read.ReadAt)

	count, err = repo.CountUnread(ctx, me)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	marked, err := repo.MarkAllRead(ctx, me, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = repo.CountUnread(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.Get(ctx, mine[1].ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepository_ListActiveOrdered(t *testing.T) {
	repo := NewUserRepository(NewDB())
	ctx := context.Background()

	for _, u := range []*model.User{
		{Username: "zoe", Email: "zoe@example.com", Active: true},
		{Username: "adam", Email: "adam@example.com", Active: true},
		{Username: "mike", Email: "mike@example.com", Active: false},
	} {
		require.NoError(t, repo.Create(ctx, u))
	}
	assert.ErrorIs(t, repo.Create(ctx, &model.User{Username: "new", Email: "ZOE@example.com"}), repository.ErrDuplicate)

	active, err := repo.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "adam", active[0].Username)
	assert.Equal(t, "zoe", active[1].Username)

	all, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUserRepository_DeleteReleasesReferences(t *testing.T) {
	db := NewDB()
	users := NewUserRepository(db)
	patients := NewPatientRepository(db)
	triages := NewTriageRepository(db)
	notifications := NewNotificationRepository(db)
	ctx := context.Background()

	nurse := &model.User{Username: "nurse", Email: "nurse@example.com", Active: true}
	require.NoError(t, users.Create(ctx, nurse))
	p := seedPatients(t, patients, "Ana")[0]
	p.UserID = &nurse.ID
	require.NoError(t, patients.Update(ctx, p))

	tr := &model.Triage{PatientID: p.ID, SeverityLevel: 4, CreatedBy: &nurse.ID}
	require.NoError(t, triages.Create(ctx, tr))
	require.NoError(t, notifications.Create(ctx, &model.Notification{
		RecipientID: &nurse.ID, Title: "Aviso", Message: "m",
		Type: model.NotificationTypeInfo, Priority: model.NotificationPriorityLow,
	}))

	require.NoError(t, users.Delete(ctx, nurse.ID))

	storedTriage, err := triages.Get(ctx, tr.ID)
	require.NoError(t, err)
	assert.Nil(t, storedTriage.CreatedBy)

	storedPatient, err := patients.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, storedPatient.UserID)

	left, err := notifications.List(ctx, model.NotificationFilters{RecipientID: &nurse.ID})
	require.NoError(t, err)
	assert.Empty(t, left)
}
