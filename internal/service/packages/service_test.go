package packages

import (
	"context"
	"testing"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type fakePackagesRepo struct {
	byID       map[string]*model.Package
	byTracking map[string]*model.Package
	listed     []model.Package
	deletedIDs []string

	archiveCutoff time.Time
	archivedRows  int64
}

func (f *fakePackagesRepo) Insert(ctx context.Context, tx *sqlx.Tx, p model.Package) error {
	return nil
}

func (f *fakePackagesRepo) GetByID(ctx context.Context, id string) (*model.Package, error) {
	return f.byID[id], nil
}

func (f *fakePackagesRepo) GetByTrackingNumber(ctx context.Context, tn string) (*model.Package, error) {
	return f.byTracking[tn], nil
}

func (f *fakePackagesRepo) List(ctx context.Context, clientID string, limit, offset int) ([]model.Package, error) {
	if clientID == "" {
		return f.listed, nil
	}
	var out []model.Package
	for _, p := range f.listed {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePackagesRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.PackageStatus, location *string) error {
	return nil
}

func (f *fakePackagesRepo) Delete(ctx context.Context, id string) error {
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakePackagesRepo) ArchiveOldPickedUp(ctx context.Context, cutoff time.Time) (int64, error) {
	f.archiveCutoff = cutoff
	return f.archivedRows, nil
}

type fakeProfilesRepo struct {
	profiles map[string]*model.Profile
	admins   []string
	clients  []string
}

func (f *fakeProfilesRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Profile, error) {
	for _, p := range f.profiles {
		if p.APIKey == apiKey {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeProfilesRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return f.profiles[id], nil
}

func (f *fakeProfilesRepo) GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	out := make(map[string]model.Profile, len(ids))
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok && p != nil {
			out[id] = *p
		}
	}
	return out, nil
}

func (f *fakeProfilesRepo) List(ctx context.Context, _ repository.ProfileFilters, _, _ int) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range f.profiles {
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakeProfilesRepo) ListClientIDs(ctx context.Context) ([]string, error) {
	return f.clients, nil
}

func (f *fakeProfilesRepo) ListAdminIDs(ctx context.Context) ([]string, error) {
	return f.admins, nil
}

func newTestService(pkgs *fakePackagesRepo, profiles *fakeProfilesRepo, retention time.Duration) *Service {
	return New(nil, pkgs, profiles, nil, nil, notify.New(), retention)
}

func TestCreate_rejectsEmptyTracking(t *testing.T) {
	svc := newTestService(&fakePackagesRepo{}, &fakeProfilesRepo{}, 0)

	_, err := svc.Create(context.Background(), CreateInput{
		TrackingNumber: "   ",
		ClientID:       "client-1",
	})
	require.Error(t, err)
}

func TestCreate_rejectsUnknownClient(t *testing.T) {
	svc := newTestService(&fakePackagesRepo{}, &fakeProfilesRepo{profiles: map[string]*model.Profile{}}, 0)

	_, err := svc.Create(context.Background(), CreateInput{
		TrackingNumber: "CHN-1",
		ClientID:       "nope",
	})
	require.ErrorIs(t, err, ErrUnknownClient)
}

func TestCreate_rejectsAdminAsClient(t *testing.T) {
	profiles := &fakeProfilesRepo{profiles: map[string]*model.Profile{
		"admin-1": {ID: "admin-1", Role: model.RoleAdmin},
	}}
	svc := newTestService(&fakePackagesRepo{}, profiles, 0)

	_, err := svc.Create(context.Background(), CreateInput{
		TrackingNumber: "CHN-1",
		ClientID:       "admin-1",
	})
	require.ErrorIs(t, err, ErrUnknownClient)
}

func TestCreate_rejectsDuplicateTracking(t *testing.T) {
	pkgs := &fakePackagesRepo{byTracking: map[string]*model.Package{
		"CHN-1": {ID: "pkg-1", TrackingNumber: "CHN-1"},
	}}
	profiles := &fakeProfilesRepo{profiles: map[string]*model.Profile{
		"client-1": {ID: "client-1", Role: model.RoleClient},
	}}
	svc := newTestService(pkgs, profiles, 0)

	_, err := svc.Create(context.Background(), CreateInput{
		TrackingNumber: "CHN-1",
		ClientID:       "client-1",
	})
	require.ErrorIs(t, err, ErrTrackingTaken)
}

func TestUpdateStatus_rejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakePackagesRepo{}, &fakeProfilesRepo{}, 0)

	_, err := svc.UpdateStatus(context.Background(), "pkg-1", model.PackageStatus("teleported"), "")
	require.ErrorIs(t, err, notify.ErrUnknownStatus)
}

func TestUpdateStatus_missingPackage(t *testing.T) {
	svc := newTestService(&fakePackagesRepo{byID: map[string]*model.Package{}}, &fakeProfilesRepo{}, 0)

	_, err := svc.UpdateStatus(context.Background(), "pkg-404", model.StatusInTransit, "")
	require.ErrorIs(t, err, ErrPackageMissing)
}

func TestGet_missingPackage(t *testing.T) {
	svc := newTestService(&fakePackagesRepo{byID: map[string]*model.Package{}}, &fakeProfilesRepo{}, 0)

	_, err := svc.Get(context.Background(), "pkg-404")
	require.ErrorIs(t, err, ErrPackageMissing)
}

func TestList_scopesToClient(t *testing.T) {
	pkgs := &fakePackagesRepo{listed: []model.Package{
		{ID: "pkg-1", ClientID: "client-1"},
		{ID: "pkg-2", ClientID: "client-2"},
		{ID: "pkg-3", ClientID: "client-1"},
	}}
	svc := newTestService(pkgs, &fakeProfilesRepo{}, 0)

	got, err := svc.List(context.Background(), "client-1", 50, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, p := range got {
		require.Equal(t, "client-1", p.ClientID)
	}
}

func TestList_hydratesClientProfiles(t *testing.T) {
	pkgs := &fakePackagesRepo{listed: []model.Package{
		{ID: "pkg-1", ClientID: "client-1"},
		{ID: "pkg-2", ClientID: "client-2"},
		{ID: "pkg-3", ClientID: "client-1"},
	}}
	first := "Aïssata"
	profiles := &fakeProfilesRepo{profiles: map[string]*model.Profile{
		"client-1": {ID: "client-1", Email: "aissata@example.com", FirstName: &first},
	}}
	svc := newTestService(pkgs, profiles, 0)

	got, err := svc.List(context.Background(), "", 50, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got[0].Client)
	require.Equal(t, "aissata@example.com", got[0].Client.Email)
	require.NotNil(t, got[2].Client)

	// Profile row gone? The package still lists, just without a client.
	require.Nil(t, got[1].Client)
}

func TestGet_includesClientProfile(t *testing.T) {
	pkgs := &fakePackagesRepo{byID: map[string]*model.Package{
		"pkg-1": {ID: "pkg-1", ClientID: "client-1", TrackingNumber: "CHN-1"},
	}}
	profiles := &fakeProfilesRepo{profiles: map[string]*model.Profile{
		"client-1": {ID: "client-1", Email: "aissata@example.com"},
	}}
	svc := newTestService(pkgs, profiles, 0)

	got, err := svc.Get(context.Background(), "pkg-1")
	require.NoError(t, err)
	require.NotNil(t, got.Client)
	require.Equal(t, "client-1", got.Client.ID)
}

func TestArchiveOldPickedUp_defaultRetention(t *testing.T) {
	pkgs := &fakePackagesRepo{archivedRows: 3}
	svc := newTestService(pkgs, &fakeProfilesRepo{}, 0) // 0 → 15-day default

	n, err := svc.ArchiveOldPickedUp(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	wantCutoff := time.Now().Add(-15 * 24 * time.Hour)
	require.WithinDuration(t, wantCutoff, pkgs.archiveCutoff, 5*time.Second)
}

func TestArchiveOldPickedUp_customRetention(t *testing.T) {
	pkgs := &fakePackagesRepo{}
	svc := newTestService(pkgs, &fakeProfilesRepo{}, 48*time.Hour)

	_, err := svc.ArchiveOldPickedUp(context.Background())
	require.NoError(t, err)

	wantCutoff := time.Now().Add(-48 * time.Hour)
	require.WithinDuration(t, wantCutoff, pkgs.archiveCutoff, 5*time.Second)
}
