package v1

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListFlowArchitectures(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/flow/versions", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	domains := decode[map[string]*flowArchitectureView](t, rec)
	require.Len(t, domains, 4)
	raw := domains["raw"]
	require.NotNil(t, raw)
	assert.Equal(t, "RAW Domain", raw.Title)
	require.Len(t, raw.Items, 2)
	assert.Equal(t, "blc", raw.Items[0].ID)
	assert.Equal(t, "raw", raw.Items[0].Type)
}

func TestGetFlowVersionAndModule(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/v1/flow/version/isp-v1", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[flowVersionView](t, rec)
	assert.Equal(t, "Classic ISP", view.Version.Title)
	assert.True(t, view.Version.IsDefault)
	require.Len(t, view.Modules, 3)

	rec = ts.do(http.MethodGet, "/api/v1/flow/version/isp-v9", ts.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/flow/module/ai-denoise", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	module := decode[flowModuleResponse](t, rec)
	assert.Equal(t, "isp-v2", module.VersionID)
	assert.Equal(t, "NPU required.", module.Constraints)

	rec = ts.do(http.MethodGet, "/api/v1/flow/module/missing", ts.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFlowMutationsRequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/flow/versions", ts.userToken, map[string]any{
		"version_id": "isp-v3",
		"title":      "Next",
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, rec))

	rec = ts.do(http.MethodDelete, "/api/v1/flow/modules/blc", ts.userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestFlowVersionLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/flow/versions", ts.adminToken, map[string]any{
		"version_id": "isp-v1",
		"title":      "Duplicate",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/v1/flow/versions/isp-v1", ts.adminToken, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/flow/versions", ts.adminToken, map[string]any{
		"version_id": "isp-v3",
		"title":      "HDR ISP",
		"is_default": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[flowVersionResponse](t, rec)
	assert.True(t, created.IsActive)
	assert.True(t, created.IsDefault)

	// A new default clears the previous one.
	rec = ts.do(http.MethodGet, "/api/v1/flow/version/isp-v1", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[flowVersionView](t, rec).Version.IsDefault)

	rec = ts.do(http.MethodPut, "/api/v1/flow/versions/isp-v3", ts.adminToken, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/flow/version/isp-v3", ts.userToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/flow/modules", ts.adminToken, map[string]any{
		"version_id": "isp-v3",
		"module_id":  "hdr-merge",
		"title":      "HDR Merge",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodDelete, "/api/v1/flow/versions/isp-v3", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestFlowModuleLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/flow/modules", ts.adminToken, map[string]any{
		"version_id": "isp-v1",
		"module_id":  "blc",
		"title":      "Duplicate",
	})
	require.Equal(t, http.StatusConflict, rec.Code)

	// Warm the version view so the write has something to invalidate.
	rec = ts.do(http.MethodGet, "/api/v1/flow/version/isp-v1", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/flow/modules", ts.adminToken, map[string]any{
		"version_id":  "isp-v1",
		"module_id":   "gamma",
		"title":       "Gamma",
		"module_type": "rgb",
		"position_x":  700,
		"position_y":  100,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/v1/flow/version/isp-v1", ts.userToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[flowVersionView](t, rec).Modules, 4)

	rec = ts.do(http.MethodPut, "/api/v1/flow/modules/gamma", ts.adminToken, map[string]any{"principle": "Power law curve."})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Power law curve.", decode[flowModuleResponse](t, rec).Principle)

	rec = ts.do(http.MethodDelete, "/api/v1/flow/modules/gamma", ts.adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(http.MethodGet, "/api/v1/flow/module/gamma", ts.userToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
