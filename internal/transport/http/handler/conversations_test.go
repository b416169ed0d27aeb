package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-api-realtime/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHistory_InvalidUserID(t *testing.T) {
	h := NewConversationHandler(&mockMessagingSvc{})
	for _, id := range []string{"abc", "0", "-4"} {
		r := withParam(authed(httptest.NewRequest(http.MethodGet, "/v1/conversations/"+id, nil), 1, domain.RoleUser), "userId", id)
		rr := httptest.NewRecorder()
		h.History(rr, r)
		assert.Equal(t, http.StatusBadRequest, rr.Code, id)
	}
}

func TestHistory_InvalidLimit(t *testing.T) {
	h := NewConversationHandler(&mockMessagingSvc{})
	r := withParam(authed(httptest.NewRequest(http.MethodGet, "/v1/conversations/2?limit=500", nil), 1, domain.RoleUser), "userId", "2")
	rr := httptest.NewRecorder()
	h.History(rr, r)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHistory_PassesCursorThrough(t *testing.T) {
	svc := &mockMessagingSvc{}
	svc.On("GetConversation", mock.Anything, int64(1), int64(2), 10, "abc").
		Return([]domain.Message{*sampleMessage()}, "next", nil)
	h := NewConversationHandler(svc)
	r := withParam(authed(httptest.NewRequest(http.MethodGet, "/v1/conversations/2?limit=10&cursor=abc", nil), 1, domain.RoleUser), "userId", "2")
	rr := httptest.NewRecorder()
	h.History(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp PageEnvelope[domain.MessageDTO]
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "next", resp.NextCursor)
	require.Len(t, resp.Data, 1)
	svc.AssertExpectations(t)
}

func TestRecent_EmptyInboxIsEmptyArray(t *testing.T) {
	svc := &mockMessagingSvc{}
	svc.On("GetRecentConversations", mock.Anything, int64(5)).Return([]domain.Message{}, nil)
	h := NewConversationHandler(svc)
	rr := httptest.NewRecorder()
	h.Recent(rr, authed(httptest.NewRequest(http.MethodGet, "/v1/conversations", nil), 5, domain.RoleUser))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":[]}`, rr.Body.String())
}
