package v1

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/duynhne/catalog-service/internal/core/domain"
	"github.com/duynhne/catalog-service/internal/core/domain/mocks"
	"github.com/duynhne/catalog-service/internal/core/token"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFor(id string, role domain.Role) *Session {
	return &Session{Claims: token.Claims{SubjectID: id, Email: id + "@x.com", Role: role}}
}

func TestFavorites(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockFavoriteRepository(ctrl)
	svc := NewFavoriteService(repo)
	ctx := context.Background()

	_, err := svc.Add(ctx, "u1", "  ")
	require.ErrorIs(t, err, ErrInvalidInput)

	repo.EXPECT().Upsert(gomock.Any(), "u1", "missing").Return(nil, domain.ErrReferenceMissing)
	_, err = svc.Add(ctx, "u1", "missing")
	require.ErrorIs(t, err, ErrContentNotFound)

	fav := &domain.Favorite{UserID: "u1", ContentID: "c1", FavoritedAt: time.Now()}
	repo.EXPECT().Upsert(gomock.Any(), "u1", "c1").Return(fav, nil)
	got, err := svc.Add(ctx, "u1", "c1")
	require.NoError(t, err)
	assert.Equal(t, fav, got)

	repo.EXPECT().ListByUser(gomock.Any(), "u1").Return([]domain.Favorite{*fav}, nil)
	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	repo.EXPECT().Delete(gomock.Any(), "u1", "c1").Return(false, nil)
	require.ErrorIs(t, svc.Remove(ctx, "u1", "c1"), ErrFavoriteNotFound)

	repo.EXPECT().Delete(gomock.Any(), "u1", "c1").Return(true, nil)
	require.NoError(t, svc.Remove(ctx, "u1", "c1"))
}

func TestCatalogIDsLongerThanColumn(t *testing.T) {
	ctrl := gomock.NewController(t)
	favorites := mocks.NewMockFavoriteRepository(ctrl)
	history := mocks.NewMockHistoryRepository(ctrl)
	reviews := mocks.NewMockReviewRepository(ctrl)
	ctx := context.Background()
	long := strings.Repeat("x", maxCatalogIDLength+1)
	progress := 10
	rating := 4.0

	// No repository expectations: over-long ids never reach the store.
	_, err := NewFavoriteService(favorites).Add(ctx, "u1", long)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewHistoryService(history).Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: long, Progress: &progress})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewReviewService(reviews).Create(ctx, "u1", long, domain.CreateReviewRequest{Comment: "ok", Rating: &rating})
	require.ErrorIs(t, err, ErrContentNotFound)

	// Multi-byte ids are measured in characters, like VARCHAR.
	accented := strings.Repeat("é", maxCatalogIDLength)
	favorites.EXPECT().Upsert(gomock.Any(), "u1", accented).Return(nil, domain.ErrReferenceMissing)
	_, err = NewFavoriteService(favorites).Add(ctx, "u1", accented)
	require.ErrorIs(t, err, ErrContentNotFound)

	// A truncation reported by the store is still a client error.
	history.EXPECT().Upsert(gomock.Any(), "u1", "m1", progress).Return(nil, fmt.Errorf("upsert history: %w", domain.ErrValueTooLong))
	_, err = NewHistoryService(history).Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: "m1", Progress: &progress})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestHistory_Record(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewHistoryService(repo)
	ctx := context.Background()

	for _, p := range []int{-1, 101} {
		_, err := svc.Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: "m1", Progress: &p})
		require.ErrorIs(t, err, ErrInvalidInput, "progress %d", p)
	}
	_, err := svc.Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: "m1"})
	require.ErrorIs(t, err, ErrInvalidInput)

	progress := 100
	repo.EXPECT().Upsert(gomock.Any(), "u1", "missing", 100).Return(nil, domain.ErrReferenceMissing)
	_, err = svc.Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: "missing", Progress: &progress})
	require.ErrorIs(t, err, ErrMediaNotFound)

	entry := &domain.HistoryEntry{UserID: "u1", MediaID: "m1", Progress: 100}
	repo.EXPECT().Upsert(gomock.Any(), "u1", "m1", 100).Return(entry, nil)
	got, err := svc.Record(ctx, "u1", domain.RecordHistoryRequest{MediaID: "m1", Progress: &progress})
	require.NoError(t, err)
	assert.Equal(t, 100, got.Progress)
}

func TestHistory_GetAndRemove(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockHistoryRepository(ctrl)
	svc := NewHistoryService(repo)
	ctx := context.Background()

	repo.EXPECT().Get(gomock.Any(), "u1", "m1").Return(nil, nil)
	_, err := svc.Get(ctx, "u1", "m1")
	require.ErrorIs(t, err, ErrHistoryNotFound)

	repo.EXPECT().Get(gomock.Any(), "u1", "m1").Return(nil, errors.New("db down"))
	_, err = svc.Get(ctx, "u1", "m1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrHistoryNotFound)

	repo.EXPECT().ListByUser(gomock.Any(), "u1").Return(nil, nil)
	entries, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)

	repo.EXPECT().Delete(gomock.Any(), "u1", "m1").Return(false, nil)
	require.ErrorIs(t, svc.Remove(ctx, "u1", "m1"), ErrHistoryNotFound)
}

func TestReviews_CreateValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReviewRepository(ctrl)
	svc := NewReviewService(repo)
	ctx := context.Background()

	four := 4.0
	tests := []struct {
		name string
		req  domain.CreateReviewRequest
	}{
		{name: "blank comment", req: domain.CreateReviewRequest{Comment: "  ", Rating: &four}},
		{name: "long comment", req: domain.CreateReviewRequest{Comment: strings.Repeat("a", 256), Rating: &four}},
		{name: "missing rating", req: domain.CreateReviewRequest{Comment: "ok"}},
		{name: "rating above five", req: domain.CreateReviewRequest{Comment: "ok", Rating: func() *float64 { v := 5.5; return &v }()}},
		{name: "negative rating", req: domain.CreateReviewRequest{Comment: "ok", Rating: func() *float64 { v := -1.0; return &v }()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, "u1", "c1", tt.req)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestReviews_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReviewRepository(ctrl)
	svc := NewReviewService(repo)
	ctx := context.Background()
	rating := 4.26

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, r *domain.Review) (*domain.Review, error) {
			assert.Equal(t, "u1", r.UserID)
			assert.Equal(t, "Great", r.Comment)
			assert.Equal(t, 4.3, r.Rating)
			out := *r
			out.ID = "r1"
			return &out, nil
		})
	got, err := svc.Create(ctx, "u1", "c1", domain.CreateReviewRequest{Comment: " Great ", Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)

	repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, domain.ErrReferenceMissing)
	_, err = svc.Create(ctx, "u1", "missing", domain.CreateReviewRequest{Comment: "x", Rating: &rating})
	require.ErrorIs(t, err, ErrContentNotFound)
}

func TestReviews_Delete(t *testing.T) {
	review := &domain.Review{ID: "r1", UserID: "author", ContentID: "c1"}

	tests := []struct {
		name    string
		caller  *Session
		wantErr error
	}{
		{name: "author", caller: sessionFor("author", domain.RoleUser)},
		{name: "moderator", caller: sessionFor("mod", domain.RoleModerator)},
		{name: "admin", caller: sessionFor("admin", domain.RoleAdmin)},
		{name: "other user", caller: sessionFor("other", domain.RoleUser), wantErr: ErrAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			repo := mocks.NewMockReviewRepository(ctrl)
			svc := NewReviewService(repo)

			repo.EXPECT().Get(gomock.Any(), "r1").Return(review, nil)
			if tt.wantErr == nil {
				repo.EXPECT().Delete(gomock.Any(), "r1").Return(true, nil)
			}

			err := svc.Delete(context.Background(), tt.caller, "r1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestReviews_DeleteMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockReviewRepository(ctrl)
	svc := NewReviewService(repo)

	repo.EXPECT().Get(gomock.Any(), "nope").Return(nil, nil)
	err := svc.Delete(context.Background(), sessionFor("u1", domain.RoleAdmin), "nope")
	require.ErrorIs(t, err, ErrReviewNotFound)
}

func TestAvatar_Upload(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	store := mocks.NewMockAvatarStore(ctrl)
	svc := NewAvatarService(users, store, 1024, []string{"image/png", "image/jpeg"})
	ctx := context.Background()

	old := "avatars/u1/old.png"
	caller := &domain.UserRow{ID: "u1", AvatarKey: &old}

	_, err := svc.Upload(ctx, caller, strings.NewReader("x"), 2048, "image/png")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.Upload(ctx, caller, strings.NewReader("x"), 1, "image/gif")
	require.ErrorIs(t, err, ErrInvalidInput)
	// Known type but not allowed by configuration.
	_, err = svc.Upload(ctx, caller, strings.NewReader("x"), 1, "image/webp")
	require.ErrorIs(t, err, ErrInvalidInput)

	var stored string
	store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), int64(4), "image/png").
		DoAndReturn(func(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
			stored = key
			return nil
		})
	users.EXPECT().SetAvatarKey(gomock.Any(), "u1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, key *string) error {
			assert.Equal(t, stored, *key)
			return nil
		})
	store.EXPECT().Remove(gomock.Any(), old).Return(errors.New("ignored"))
	store.EXPECT().PublicURL(gomock.Any()).DoAndReturn(func(key string) string { return "https://cdn/" + key })

	url, err := svc.Upload(ctx, caller, strings.NewReader("data"), 4, "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored, "avatars/u1/"))
	assert.True(t, strings.HasSuffix(stored, ".png"))
	assert.Equal(t, "https://cdn/"+stored, url)
}

func TestAvatar_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	store := mocks.NewMockAvatarStore(ctrl)
	svc := NewAvatarService(users, store, 1024, []string{"image/png"})
	ctx := context.Background()

	err := svc.Delete(ctx, &domain.UserRow{ID: "u1"})
	require.ErrorIs(t, err, ErrAvatarNotFound)

	key := "avatars/u1/a.png"
	users.EXPECT().SetAvatarKey(gomock.Any(), "u1", nil).Return(nil)
	store.EXPECT().Remove(gomock.Any(), key).Return(nil)
	require.NoError(t, svc.Delete(ctx, &domain.UserRow{ID: "u1", AvatarKey: &key}))
}
