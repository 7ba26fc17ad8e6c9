package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/ppewatch/internal/buildinfo"
	"github.com/tphakala/ppewatch/internal/compliance"
	"github.com/tphakala/ppewatch/internal/conf"
	"github.com/tphakala/ppewatch/internal/datastore"
	"github.com/tphakala/ppewatch/internal/detection"
	"github.com/tphakala/ppewatch/internal/notification"
	"github.com/tphakala/ppewatch/internal/violation"
)

const testToken = "s3cret"

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (s *recordingSender) Name() string { return "recording" }

func (s *recordingSender) Send(_ context.Context, recipient, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, recipient)
	return nil
}

func setupController(t *testing.T) (*Controller, *datastore.SQLiteStore, *recordingSender) {
	t.Helper()
	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = ":memory:"
	settings.API.Token = testToken

	store := &datastore.SQLiteStore{Settings: settings}
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	sender := &recordingSender{}
	dir := notification.NewDirectory(store, 0, nil)
	b := notification.NewBroadcaster(store, sender, dir, time.Millisecond, nil)
	c := New(store, settings, b, dir, buildinfo.NewContext("1.0.0", "2026-10-01"))
	return c, store, sender
}

func doRequest(t *testing.T, c *Controller, method, target, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c.Echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	c, _, _ := setupController(t)

	rec := doRequest(t, c, http.MethodGet, "/api/v1/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "connected", resp.Database)
	assert.Zero(t, resp.PendingNotifications)
	require.NotNil(t, resp.System)
	assert.Positive(t, resp.System.Goroutines)
}

func TestGetReport(t *testing.T) {
	t.Parallel()
	c, store, _ := setupController(t)

	now := time.Now().UTC()
	require.NoError(t, store.Append(t.Context(), []violation.Record{
		{Timestamp: now.Add(-time.Hour), Missing: compliance.NewEquipmentSet(detection.Helmet), Location: "Gate-1", Confidence: 0.9},
		{Timestamp: now.Add(-2 * time.Hour), Missing: compliance.NewEquipmentSet(detection.Helmet, detection.Vest), Location: "Gate-1", Confidence: 0.7},
	}))

	rec := doRequest(t, c, http.MethodGet, "/api/v1/report?days=7", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		WindowDays int              `json:"window_days"`
		ByType     map[string]int64 `json:"by_type"`
		Groups     []struct {
			Type     string `json:"type"`
			Location string `json:"location"`
			Count    int64  `json:"count"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.WindowDays)
	assert.Equal(t, int64(2), body.ByType["no_helmet"])
	assert.Equal(t, int64(1), body.ByType["no_vest"])
	require.NotEmpty(t, body.Groups)
	assert.Equal(t, "no_helmet", body.Groups[0].Type)

	text := doRequest(t, c, http.MethodGet, "/api/v1/report?format=text", "", "")
	require.Equal(t, http.StatusOK, text.Code)
	assert.Contains(t, text.Body.String(), "Gate-1")

	bad := doRequest(t, c, http.MethodGet, "/api/v1/report?days=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRecipientsRequireToken(t *testing.T) {
	t.Parallel()
	c, _, _ := setupController(t)
	body := `{"chat_id":"1001","name":"Ana","department":"welding"}`

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, c, http.MethodPost, "/api/v1/recipients", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doRequest(t, c, http.MethodPost, "/api/v1/recipients", body, "wrong").Code)

	rec := doRequest(t, c, http.MethodPost, "/api/v1/recipients", body, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	list := doRequest(t, c, http.MethodGet, "/api/v1/recipients?department=welding", "", "")
	require.Equal(t, http.StatusOK, list.Code)
	var got []RecipientDTO
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Ana", got[0].Name)
	require.NotNil(t, got[0].Active)
	assert.True(t, *got[0].Active)

	missing := doRequest(t, c, http.MethodPost, "/api/v1/recipients", `{"name":"no id"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestPostBroadcast(t *testing.T) {
	t.Parallel()
	c, store, sender := setupController(t)

	for _, r := range []datastore.Recipient{
		{ChatID: "1", Name: "A", Department: "paint", Active: true},
		{ChatID: "2", Name: "B", Department: "paint", Active: true},
		{ChatID: "3", Name: "C", Department: "dock", Active: true},
	} {
		require.NoError(t, store.UpsertRecipient(t.Context(), &r))
	}

	rec := doRequest(t, c, http.MethodPost, "/api/v1/broadcast", `{"kind":"helmet","department":"paint","admin":"lead"}`, testToken)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp BroadcastResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Sent)
	assert.Equal(t, 2, resp.Succeeded)
	assert.InDelta(t, 1.0, resp.SuccessRate, 1e-9)
	assert.ElementsMatch(t, []string{"1", "2"}, sender.sent)

	deliveries := doRequest(t, c, http.MethodGet, "/api/v1/deliveries", "", "")
	require.Equal(t, http.StatusOK, deliveries.Code)
	var history []DeliveryDTO
	require.NoError(t, json.Unmarshal(deliveries.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, resp.BatchID, history[0].BatchID)
	assert.Equal(t, "lead", history[0].TriggeredBy)

	outcomes := doRequest(t, c, http.MethodGet, "/api/v1/deliveries/"+resp.BatchID, "", "")
	require.Equal(t, http.StatusOK, outcomes.Code)

	unknown := doRequest(t, c, http.MethodPost, "/api/v1/broadcast", `{"kind":"boots"}`, testToken)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)

	emptyText := doRequest(t, c, http.MethodPost, "/api/v1/broadcast", `{"kind":"text","text":"  "}`, testToken)
	assert.Equal(t, http.StatusBadRequest, emptyText.Code)
}

func TestWriteEndpointsClosedWithoutToken(t *testing.T) {
	t.Parallel()
	c, _, _ := setupController(t)
	c.Settings.API.Token = ""

	rec := doRequest(t, c, http.MethodPost, "/api/v1/broadcast", `{"kind":"general"}`, "anything")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
