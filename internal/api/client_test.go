package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"queuebot/internal/config"
	"queuebot/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&config.APIConfig{
		BaseURL:    srv.URL,
		Token:      "tok",
		QueuesPath: "/api/v1/transaction-queues/",
		ActionPath: "/api/v1/transaction-queues/action/",
		Timeout:    5 * time.Second,
	})
}

func TestListQueues_SendsFilterAndPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/transaction-queues/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(HeaderRequestID))

		q := r.URL.Query()
		assert.Equal(t, "redeem_game", q.Get("type"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("page_size"))
		assert.Equal(t, "alice", q.Get("search"))
		assert.False(t, q.Has("status"))
		assert.False(t, q.Has("date_from"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 11, "next": null, "previous": "http://x/?page=1",
			"results": [{"id": 5, "type": "redeem_game", "status": "pending", "amount": "20.00"}]}`))
	})

	page, err := client.ListQueues(context.Background(), model.ListParams{
		Filter:   model.FilterRedeem,
		Page:     2,
		PageSize: 10,
		Search:   "alice",
	})
	require.NoError(t, err)

	assert.Equal(t, 11, page.Count)
	assert.Nil(t, page.Next)
	require.NotNil(t, page.Previous)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(5), page.Results[0].ID)
	assert.Equal(t, model.StatusPending, page.Results[0].Status)
}

func TestListQueues_UndecodableDataKeepsPage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"count": 2, "next": null, "previous": null, "results": [
			{"id": 1, "type": "recharge_game", "status": "pending", "amount": "5.00", "data": {"new_credits_balance": "N/A"}},
			{"id": 2, "type": "redeem_game", "status": "completed", "amount": "7.00", "data": {"new_credits_balance": "12.5"}}
		]}`))
	})

	page, err := client.ListQueues(context.Background(), model.ListParams{Filter: model.FilterProcessing, Page: 1})
	require.NoError(t, err)
	require.Len(t, page.Results, 2)

	first := page.Results[0]
	assert.Equal(t, int64(1), first.ID)
	assert.Nil(t, first.Data.NewCreditsBalance)
	assert.JSONEq(t, `"N/A"`, string(first.Data.Extra[model.DataKeyNewCreditsBalance]))

	second := page.Results[1]
	require.NotNil(t, second.Data.NewCreditsBalance)
	assert.Equal(t, "12.5", second.Data.NewCreditsBalance.String())
}

func TestListQueues_ErrorStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail": "You do not have permission to perform this action."}`))
	})

	_, err := client.ListQueues(context.Background(), model.ListParams{Filter: model.FilterProcessing, Page: 1})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "You do not have permission to perform this action.", apiErr.Message)
}

func TestPerformAction_PostsBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/transaction-queues/action/", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, float64(9), body["txn_id"])
		assert.Equal(t, "complete", body["type"])
		assert.Equal(t, "100.50", body["new_balance"])
		assert.NotContains(t, body, "new_password")
		assert.NotContains(t, body, "new_username")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 9, "type": "recharge_game", "status": "completed"}`))
	})

	rec, err := client.PerformAction(context.Background(), model.ActionRequest{
		TxnID:      9,
		Type:       model.ActionComplete,
		NewBalance: "100.50",
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, rec.Status)
}

func TestPerformAction_InvalidRequestNeverSent(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := client.PerformAction(context.Background(), model.ActionRequest{TxnID: 1, Type: "refund"})
	require.Error(t, err)
	assert.Equal(t, int32(0), calls.Load())
}

func TestPerformAction_FieldErrorMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"new_balance": ["This field is required."]}`))
	})

	_, err := client.PerformAction(context.Background(), model.ActionRequest{TxnID: 1, Type: model.ActionComplete})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "new_balance: This field is required.")
	assert.False(t, IsNotFound(err))
}

func TestErrorMessage_SeveralFieldErrorsPickFirstField(t *testing.T) {
	body := []byte(`{"new_username": ["Too short."], "new_balance": ["Not a number."], "new_password": ["Required."]}`)
	for i := 0; i < 20; i++ {
		assert.Equal(t, "new_balance: Not a number.", errorMessage(http.StatusBadRequest, body))
	}
}

func TestErrorMessage_FallsBackToStatusText(t *testing.T) {
	assert.Equal(t, "Bad Gateway", errorMessage(http.StatusBadGateway, nil))
	assert.Equal(t, "upstream down", errorMessage(http.StatusBadGateway, []byte("upstream down")))
}
