package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyQuery struct {
	Dataset string `query:"dataset" validate:"required"`
	Limit   int    `query:"limit" default:"20" validate:"gte=1,lte=500"`
}

func bindQuery(t *testing.T, target string, req interface{}) []ValidationError {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
	return ReadAndValidateRequest(c, req)
}

func TestReadAndValidateRequest_AppliesDefaults(t *testing.T) {
	req := &historyQuery{}
	require.Nil(t, bindQuery(t, "/api/history?dataset=soybean-mp", req))
	assert.Equal(t, "soybean-mp", req.Dataset)
	assert.Equal(t, 20, req.Limit)
}

func TestReadAndValidateRequest_ReportsWireNames(t *testing.T) {
	errs := bindQuery(t, "/api/history?limit=900", &historyQuery{})
	require.Len(t, errs, 2)

	assert.Equal(t, "ERR_REQUIRED", errs[0].Code)
	assert.Equal(t, "dataset", errs[0].Field)
	assert.Equal(t, "dataset is required", errs[0].Message)

	assert.Equal(t, "ERR_LTE", errs[1].Code)
	assert.Equal(t, "limit", errs[1].Field)
	assert.Equal(t, "500", errs[1].Params["max"])
}

func TestReadAndValidateRequest_BindFailure(t *testing.T) {
	errs := bindQuery(t, "/api/history?dataset=x&limit=many", &historyQuery{})
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
	assert.NotEmpty(t, errs[0].Message)
}
