package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"spendwise/internal/notification/handler/mocks"
	"spendwise/internal/notification/models"
	id "spendwise/pkg/domain"
	dErrors "spendwise/pkg/domain-errors"
	"spendwise/pkg/requestcontext"
	"spendwise/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/notification-mocks.go -package=mocks Service
type NotificationHandlerSuite struct {
	suite.Suite
	userID id.UserID
}

func TestNotificationHandlerSuite(t *testing.T) {
	suite.Run(t, new(NotificationHandlerSuite))
}

func (s *NotificationHandlerSuite) SetupTest() {
	s.userID = id.UserID(uuid.New())
}

func (s *NotificationHandlerSuite) newHandler(t *testing.T) (*mocks.MockService, chi.Router) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockService(ctrl)
	authenticate := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(requestcontext.WithUserID(r.Context(), s.userID)))
		})
	}
	r := chi.NewRouter()
	New(mockService, slog.New(slog.NewTextHandler(io.Discard, nil)), authenticate).Register(r)
	return mockService, r
}

func (s *NotificationHandlerSuite) TestList() {
	s.T().Run("unread filter and limit are forwarded", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		resp := &models.ListResponse{
			Notifications: []*models.NotificationResponse{{
				ID:        uuid.NewString(),
				Type:      models.TypeGroupInvite,
				CreatedAt: time.Now().UTC(),
			}},
			UnreadCount: 1,
		}
		mockService.EXPECT().List(gomock.Any(), s.userID, true, 10).Return(resp, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/notifications/?unread=true&limit=10"))

		require.Equal(t, http.StatusOK, rr.Code)
		got := testutil.UnmarshalResponse[models.ListResponse](t, rr)
		require.Len(t, got.Notifications, 1)
		assert.Equal(t, models.TypeGroupInvite, got.Notifications[0].Type)
		assert.Equal(t, 1, got.UnreadCount)
	})

	s.T().Run("invalid limit - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().List(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/notifications/?limit=abc"))

		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *NotificationHandlerSuite) TestMarkRead() {
	notificationID := id.NotificationID(uuid.New())

	s.T().Run("marks read - 204", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().MarkRead(gomock.Any(), s.userID, notificationID).
			Return(&models.Notification{ID: notificationID, IsRead: true}, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost,
			"/api/notifications/"+notificationID.String()+"/read"))

		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	s.T().Run("someone else's notification - 404", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().MarkRead(gomock.Any(), s.userID, notificationID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "notification not found"))

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost,
			"/api/notifications/"+notificationID.String()+"/read"))

		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.T().Run("malformed id - 400", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().MarkRead(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/api/notifications/nope/read"))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func (s *NotificationHandlerSuite) TestCounts() {
	s.T().Run("unread count", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().UnreadCount(gomock.Any(), s.userID).Return(3, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/notifications/unread-count"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "unread_count", float64(3))
	})

	s.T().Run("read all", func(t *testing.T) {
		mockService, router := s.newHandler(t)
		mockService.EXPECT().MarkAllRead(gomock.Any(), s.userID).Return(2, nil)

		rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodPost, "/api/notifications/read-all"))

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "updated", float64(2))
	})
}
