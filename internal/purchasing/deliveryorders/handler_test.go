package deliveryorders

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*serviceFixture, http.Handler) {
	t.Helper()
	f := newServiceFixture(t)
	h := NewHandler(testLogger(), f.service, nil)
	r := chi.NewRouter()
	r.Route("/purchasing/delivery-orders", h.MountRoutes)
	return f, r
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerCreateReturnsID(t *testing.T) {
	f, router := newTestRouter(t)
	req := f.seedOrders(10, 4)

	rec := postJSON(t, router, "/purchasing/delivery-orders/", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.ID)
	_, err := uuid.Parse(resp.ID)
	require.NoError(t, err)
}

func TestHandlerCreateValidationFailureCarriesFields(t *testing.T) {
	_, router := newTestRouter(t)

	rec := postJSON(t, router, "/purchasing/delivery-orders/", CreateRequest{})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var resp struct {
		Title  string         `json:"title"`
		Fields map[string]any `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Validation Failed", resp.Title)
	require.Equal(t, "no is required", resp.Fields["no"])
	require.Equal(t, "items is required", resp.Fields["items"])
}

func TestHandlerCreateRejectsMalformedJSON(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/purchasing/delivery-orders/", bytes.NewReader([]byte("{")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetRejectsMalformedID(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerGetUnknownIDReturnsNotFound(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerPostMarksDocument(t *testing.T) {
	f, router := newTestRouter(t)
	req := f.seedOrders(10, 4)

	rec := postJSON(t, router, "/purchasing/delivery-orders/", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = postJSON(t, router, "/purchasing/delivery-orders/"+created.ID+"/post", req)
	require.Equal(t, http.StatusOK, rec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var do DeliveryOrder
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &do))
	require.True(t, do.IsPosted)
}

func TestHandlerReportValidatesSupplierID(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/report?supplier_id=abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerReportValidatesDates(t *testing.T) {
	_, router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/report?date_from=15-06-2024", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerListReturnsPagination(t *testing.T) {
	f, router := newTestRouter(t)
	req := f.seedOrders(10, 4)

	rec := postJSON(t, router, "/purchasing/delivery-orders/", req)
	require.Equal(t, http.StatusCreated, rec.Code)

	listReq := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/?keyword=DO-2024", nil)
	listRec := httptest.NewRecorder()
	router.ServeHTTP(listRec, listReq)
	require.Equal(t, http.StatusOK, listRec.Code)

	var resp struct {
		Data       []DeliveryOrder `json:"data"`
		Pagination struct {
			Page       int `json:"page"`
			PerPage    int `json:"per_page"`
			Total      int `json:"total"`
			TotalPages int `json:"total_pages"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(listRec.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	require.Equal(t, 1, resp.Pagination.Total)
	require.Equal(t, 1, resp.Pagination.Page)
}

func TestHandlerDeleteReturnsNoContent(t *testing.T) {
	f, router := newTestRouter(t)
	req := f.seedOrders(10, 4)

	rec := postJSON(t, router, "/purchasing/delivery-orders/", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	delReq := httptest.NewRequest(http.MethodDelete, "/purchasing/delivery-orders/"+created.ID, nil)
	delRec := httptest.NewRecorder()
	router.ServeHTTP(delRec, delReq)
	require.Equal(t, http.StatusNoContent, delRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/purchasing/delivery-orders/"+created.ID, nil)
	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusNotFound, getRec.Code)
}
