package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/atinyakov/dogify/internal/app/service"
	"github.com/atinyakov/dogify/internal/middleware"
	"github.com/atinyakov/dogify/internal/mocks"
)

func TestDeleteImage(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		mockErr      error
		expectCall   bool
		expectedCode int
	}{
		{name: "deleted", id: "img_1", expectCall: true, expectedCode: http.StatusNoContent},
		{name: "not found", id: "img_2", mockErr: service.ErrRecordNotFound, expectCall: true, expectedCode: http.StatusNotFound},
		{name: "storage failure", id: "img_3", mockErr: service.ErrStorageFailure, expectCall: true, expectedCode: http.StatusInternalServerError},
		{name: "missing id", id: "", expectedCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockLedger := mocks.NewMockLedgerIface(ctrl)
			handler := NewDelete(mockLedger, zap.NewNop())

			if tt.expectCall {
				mockLedger.EXPECT().DeleteForOwner(gomock.Any(), "u1", tt.id).Return(tt.mockErr)
			}

			req := httptest.NewRequest(http.MethodDelete, "/api/user/images/"+tt.id, nil)
			req = withURLParam(middleware.InjectUserID(req, "u1"), "id", tt.id)
			w := httptest.NewRecorder()
			handler.Image(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)
		})
	}
}
