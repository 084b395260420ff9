package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/chat"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/jmoiron/sqlx"
	echo "github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

type fakeProfilesRepo struct {
	profiles map[string]*model.Profile

	listFilters repository.ProfileFilters
	listed      []model.Profile
}

func (f *fakeProfilesRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Profile, error) {
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

func (f *fakeProfilesRepo) List(ctx context.Context, filters repository.ProfileFilters, limit, offset int) ([]model.Profile, error) {
	f.listFilters = filters
	return f.listed, nil
}

func (f *fakeProfilesRepo) ListClientIDs(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeProfilesRepo) ListAdminIDs(ctx context.Context) ([]string, error)  { return nil, nil }

type fakePackagesRepo struct {
	byID map[string]*model.Package
}

func (f *fakePackagesRepo) Insert(ctx context.Context, tx *sqlx.Tx, p model.Package) error {
	return nil
}

func (f *fakePackagesRepo) GetByID(ctx context.Context, id string) (*model.Package, error) {
	return f.byID[id], nil
}

func (f *fakePackagesRepo) GetByTrackingNumber(ctx context.Context, tn string) (*model.Package, error) {
	return nil, nil
}

func (f *fakePackagesRepo) List(ctx context.Context, clientID string, limit, offset int) ([]model.Package, error) {
	return nil, nil
}

func (f *fakePackagesRepo) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id string, status model.PackageStatus, location *string) error {
	return nil
}

func (f *fakePackagesRepo) Delete(ctx context.Context, id string) error { return nil }

func (f *fakePackagesRepo) ArchiveOldPickedUp(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeChatRepo struct {
	messages []model.ChatMessage
	unread   int
}

func (f *fakeChatRepo) Insert(ctx context.Context, tx *sqlx.Tx, m model.ChatMessage) error {
	return nil
}

func (f *fakeChatRepo) ListByPackage(ctx context.Context, packageID string, limit, offset int) ([]model.ChatMessage, error) {
	return f.messages, nil
}

func (f *fakeChatRepo) MarkRead(ctx context.Context, readerID string, ids []string) error {
	return nil
}

func (f *fakeChatRepo) CountUnread(ctx context.Context, packageID, readerID string) (int, error) {
	return f.unread, nil
}

type fakeCHDeliveriesRepo struct {
	filters repository.DeliveryFilters
	rows    []model.Delivery
}

func (f *fakeCHDeliveriesRepo) List(ctx context.Context, filters repository.DeliveryFilters, limit, offset int) ([]model.Delivery, error) {
	f.filters = filters
	return f.rows, nil
}

var (
	_ repository.ProfilesRepository     = (*fakeProfilesRepo)(nil)
	_ repository.PackagesRepository     = (*fakePackagesRepo)(nil)
	_ repository.ChatRepository         = (*fakeChatRepo)(nil)
	_ repository.CHDeliveriesRepository = (*fakeCHDeliveriesRepo)(nil)
)

func newTestContext(t *testing.T, target string, p *model.Profile) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if p != nil {
		c.Set("profile", p)
	}
	return c, rec
}

func TestListUsersHandler_passesDirectoryFilters(t *testing.T) {
	repo := &fakeProfilesRepo{listed: []model.Profile{
		{ID: "client-1", Email: "aissata@example.com"},
	}}

	c, rec := newTestContext(t, "/v1/admin/users?country=RDC&city=Kinshasa&search=aissata", nil)
	require.NoError(t, listUsersHandler(repo)(c))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "client", repo.listFilters.Role) // default when unspecified
	require.Equal(t, "RDC", repo.listFilters.Country)
	require.Equal(t, "Kinshasa", repo.listFilters.City)
	require.Equal(t, "aissata", repo.listFilters.Search)

	var body struct {
		Count   int             `json:"count"`
		Results []model.Profile `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, "client-1", body.Results[0].ID)
}

func TestListUsersHandler_roleOverride(t *testing.T) {
	repo := &fakeProfilesRepo{}

	c, rec := newTestContext(t, "/v1/admin/users?role=admin", nil)
	require.NoError(t, listUsersHandler(repo)(c))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "admin", repo.listFilters.Role)
}

func TestListChatHandler_includesUnreadBadge(t *testing.T) {
	chatRepo := &fakeChatRepo{
		messages: []model.ChatMessage{{ID: "m1", PackageID: "pkg-1"}},
		unread:   3,
	}
	pkgsRepo := &fakePackagesRepo{byID: map[string]*model.Package{
		"pkg-1": {ID: "pkg-1", ClientID: "client-1"},
	}}
	profilesRepo := &fakeProfilesRepo{}

	formatter := notify.New()
	pkgSvc := packages.New(nil, pkgsRepo, profilesRepo, nil, nil, formatter, 0)
	chatSvc := chat.New(nil, chatRepo, pkgsRepo, profilesRepo, nil, nil, formatter)

	c, rec := newTestContext(t, "/v1/packages/pkg-1/messages", &model.Profile{
		ID:   "client-1",
		Role: model.RoleClient,
	})
	c.SetParamNames("id")
	c.SetParamValues("pkg-1")

	require.NoError(t, listChatHandler(chatSvc, pkgSvc)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int `json:"count"`
		Unread int `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	require.Equal(t, 3, body.Unread)
}

func TestListDeliveriesHandler_parsesDateRange(t *testing.T) {
	repo := &fakeCHDeliveriesRepo{}

	c, rec := newTestContext(t,
		"/v1/admin/reports/deliveries?status=read&date_from=2025-03-01T00:00:00Z&date_to=2025-03-31T23:59:59Z",
		nil,
	)
	require.NoError(t, listDeliveriesHandler(repo)(c))
	require.Equal(t, http.StatusOK, rec.Code)

	require.Equal(t, "read", repo.filters.Status)
	require.NotNil(t, repo.filters.DateFrom)
	require.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), repo.filters.DateFrom.UTC())
	require.NotNil(t, repo.filters.DateTo)
	require.Equal(t, time.Date(2025, 3, 31, 23, 59, 59, 0, time.UTC), repo.filters.DateTo.UTC())
}

func TestListDeliveriesHandler_ignoresBadDates(t *testing.T) {
	repo := &fakeCHDeliveriesRepo{}

	c, rec := newTestContext(t, "/v1/admin/reports/deliveries?date_from=yesterday", nil)
	require.NoError(t, listDeliveriesHandler(repo)(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, repo.filters.DateFrom)
}
