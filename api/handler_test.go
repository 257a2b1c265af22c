package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Effec77/aidflow/core/allocation"
	"github.com/Effec77/aidflow/core/dispatch"
	"github.com/Effec77/aidflow/core/model"
)

type fakeRepo struct {
	emergencies map[string]*model.Emergency
	centers     []allocation.CenterInventory
}

func (r *fakeRepo) CreateEmergency(_ context.Context, em *model.Emergency) error {
	if em.ID == "" {
		em.ID = fmt.Sprintf("em-%d", len(r.emergencies)+1)
	}
	r.emergencies[em.ID] = em
	return nil
}

func (r *fakeRepo) GetEmergency(_ context.Context, id string) (*model.Emergency, error) {
	em, ok := r.emergencies[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", dispatch.ErrEmergencyNotFound, id)
	}
	return em, nil
}

func (r *fakeRepo) ListCenters(context.Context) ([]allocation.CenterInventory, error) {
	return r.centers, nil
}

type fakeDispatcher struct {
	res *dispatch.Result
	err error
	by  string
}

func (d *fakeDispatcher) Dispatch(_ context.Context, id, by string) (*dispatch.Result, error) {
	d.by = by
	if d.err != nil {
		return nil, d.err
	}
	res := *d.res
	res.EmergencyID = id
	return &res, nil
}

func newTestRouter(repo *fakeRepo, disp *fakeDispatcher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(repo, disp).RegisterRoutes(r, Config{})
	return r
}

func emptyRepo() *fakeRepo {
	return &fakeRepo{emergencies: make(map[string]*model.Emergency)}
}

func TestCreateAndGetEmergency(t *testing.T) {
	repo := emptyRepo()
	r := newTestRouter(repo, &fakeDispatcher{})

	body := `{
		"kind": "flood",
		"severity": "high",
		"location": {"lat": 30.71, "lon": 76.85},
		"required_resources": [{"name": "medical_kit", "category": "medical", "quantity": 2}]
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/emergencies", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created model.Emergency
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/emergencies/"+created.ID, nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateEmergencyRejectsBadInput(t *testing.T) {
	r := newTestRouter(emptyRepo(), &fakeDispatcher{})

	cases := []struct {
		name string
		body string
	}{
		{"missing kind", `{"severity":"low","required_resources":[{"name":"tent","quantity":1}]}`},
		{"bad latitude", `{"kind":"flood","severity":"low","location":{"lat":95,"lon":0},"required_resources":[{"name":"tent","quantity":1}]}`},
		{"zero quantity", `{"kind":"flood","severity":"low","location":{"lat":30,"lon":76},"required_resources":[{"name":"tent","quantity":0}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/emergencies", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestGetEmergencyNotFound(t *testing.T) {
	r := newTestRouter(emptyRepo(), &fakeDispatcher{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/emergencies/ghost", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatchSuccess(t *testing.T) {
	disp := &fakeDispatcher{res: &dispatch.Result{DispatchID: "d1", TotalResources: 3}}
	r := newTestRouter(emptyRepo(), disp)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/emergencies/em1/dispatch",
		bytes.NewBufferString(`{"dispatched_by":"operator-7"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "operator-7", disp.by)

	var res dispatch.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "em1", res.EmergencyID)
	assert.Equal(t, 3, res.TotalResources)
}

func TestDispatchDefaultsOperator(t *testing.T) {
	disp := &fakeDispatcher{res: &dispatch.Result{}}
	r := newTestRouter(emptyRepo(), disp)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/emergencies/em1/dispatch", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "system", disp.by)
}

func TestDispatchErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{dispatch.ErrEmergencyNotFound, http.StatusNotFound},
		{dispatch.ErrAlreadyDispatched, http.StatusConflict},
		{dispatch.ErrAllocationFailed, http.StatusUnprocessableEntity},
		{allocation.ErrNoCentersAvailable, http.StatusUnprocessableEntity},
		{dispatch.ErrDispatchFailed, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			r := newTestRouter(emptyRepo(), &fakeDispatcher{err: tc.err})
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/emergencies/em1/dispatch", nil))
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestListCenters(t *testing.T) {
	repo := emptyRepo()
	repo.centers = []allocation.CenterInventory{
		{Center: model.Center{ID: "c1", Name: "sector-17"}},
	}
	r := newTestRouter(repo, &fakeDispatcher{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/centers", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var centers []allocation.CenterInventory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &centers))
	require.Len(t, centers, 1)
	assert.Equal(t, "c1", centers[0].Center.ID)
}

func TestHealthz(t *testing.T) {
	r := newTestRouter(emptyRepo(), &fakeDispatcher{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
