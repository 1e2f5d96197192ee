package devbackend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mldash/adapters/api"
	"mldash/adapters/memory"
	"mldash/domain/core"
	"mldash/domain/dataset"
	"mldash/internal/browse"
	"mldash/internal/errors"
	"mldash/internal/logging"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, previewLimit int) *api.Client {
	t.Helper()
	srv := httptest.NewServer(NewServer(memory.NewDatasetStore(), previewLimit, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, 5*time.Second, logging.Discard())
}

func csvWithRows(n int) string {
	var b strings.Builder
	b.WriteString("passenger,fare,survived,port\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "p%02d,%d.25,%t,%s\n", i, i*3, i%2 == 0, []string{"S", "C", "Q"}[i%3])
	}
	return b.String()
}

func TestUploadListGetDelete(t *testing.T) {
	client := newBackend(t, 100)
	ctx := context.Background()

	up, err := client.UploadFile(ctx, "titanic.csv", strings.NewReader(csvWithRows(23)))
	require.NoError(t, err)
	assert.True(t, up.Success)
	assert.Equal(t, 23, up.Rows)
	assert.Equal(t, 4, up.Columns)
	assert.Len(t, up.Preview, 10)

	list, err := client.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "titanic.csv", list[0].FileName)

	resp, err := client.GetDataset(ctx, core.DatasetID(up.FileID))
	require.NoError(t, err)
	require.Len(t, resp.Preview, 23)
	assert.Equal(t, []string{"passenger", "fare", "survived", "port"}, resp.Preview[0].Keys())
	assert.Equal(t, "float64", resp.Dataset.ColumnTypes["fare"])
	assert.Equal(t, "bool", resp.Dataset.ColumnTypes["survived"])

	require.NoError(t, client.DeleteDataset(ctx, core.DatasetID(up.FileID)))
	_, err = client.GetDataset(ctx, core.DatasetID(up.FileID))
	assert.True(t, errors.HasCode(err, errors.CodeNotFound))
}

func TestPreviewLimit(t *testing.T) {
	client := newBackend(t, 15)
	ctx := context.Background()

	up, err := client.UploadFile(ctx, "big.csv", strings.NewReader(csvWithRows(40)))
	require.NoError(t, err)

	resp, err := client.GetDataset(ctx, core.DatasetID(up.FileID))
	require.NoError(t, err)
	assert.Len(t, resp.Preview, 15)
	assert.Equal(t, 40, resp.Dataset.Rows)
}

func TestUploadRejectsUnsupportedFile(t *testing.T) {
	client := newBackend(t, 100)
	for _, name := range []string{"notes.txt", "legacy.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := client.UploadFile(context.Background(), name, strings.NewReader("hello"))
			require.Error(t, err)
			assert.Equal(t, "Unsupported file format. Upload a CSV or Excel file.", api.MessageOf(err))
		})
	}
}

func TestCleanIsNotImplemented(t *testing.T) {
	client := newBackend(t, 100)
	ctx := context.Background()
	up, err := client.UploadFile(ctx, "a.csv", strings.NewReader(csvWithRows(3)))
	require.NoError(t, err)

	_, err = client.CleanDataset(ctx, dataset.CleaningRequest{
		FileID:  up.FileID,
		Actions: []dataset.CleaningAction{dataset.ActionDropNulls},
	})
	require.Error(t, err)
	assert.Equal(t, "cleaning is not available on the development backend", api.MessageOf(err))

	var apiErr *api.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotImplemented, apiErr.StatusCode)
}

func TestHealth(t *testing.T) {
	client := newBackend(t, 100)
	assert.NoError(t, client.Health(context.Background()))
}

// A browsing session over the real HTTP client: every window re-requests
// the full preview.
func TestBrowsingSessionOverHTTP(t *testing.T) {
	client := newBackend(t, 100)
	ctx := context.Background()
	up, err := client.UploadFile(ctx, "titanic.csv", strings.NewReader(csvWithRows(23)))
	require.NoError(t, err)

	s := browse.NewSession(client, browse.DefaultOptions(), logging.Discard())
	require.NoError(t, s.SwitchDataset(ctx, core.DatasetID(up.FileID)))
	require.NoError(t, s.LoadMore(ctx))
	require.NoError(t, s.LoadMore(ctx))

	v := s.View()
	assert.Len(t, v.Rows, 23)
	assert.False(t, v.HasMoreData)
	assert.EqualValues(t, 3, s.Loader().Requests())

	s.SetSearchTerm("P1")
	v = s.View()
	// p10..p19
	assert.Equal(t, 10, v.FilteredCount)
	assert.Equal(t, 1, v.TotalPages)
}

func replaceDataset(t *testing.T, baseURL, id, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPut, baseURL+"/api/upload/"+id, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestReplaceThenRefresh(t *testing.T) {
	client := newBackend(t, 100)
	ctx := context.Background()
	up, err := client.UploadFile(ctx, "titanic.csv", strings.NewReader(csvWithRows(23)))
	require.NoError(t, err)

	s := browse.NewSession(client, browse.DefaultOptions(), logging.Discard())
	require.NoError(t, s.SwitchDataset(ctx, core.DatasetID(up.FileID)))
	require.NoError(t, s.LoadMore(ctx))
	require.Equal(t, 20, s.View().LoadedRows)

	resp := replaceDataset(t, client.BaseURL(), up.FileID, "titanic.csv", csvWithRows(12))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Refresh(ctx))
	v := s.View()
	assert.Equal(t, 12, v.PreviewRows)
	assert.Equal(t, 10, v.LoadedRows)
	assert.True(t, v.HasMoreData)

	list, err := client.ListDatasets(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 12, list[0].Rows)
	assert.NotNil(t, list[0].UpdatedAt)

	resp = replaceDataset(t, client.BaseURL(), "missing", "x.csv", csvWithRows(1))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestsAreLoggedThroughLogrus(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	handler := NewServer(memory.NewDatasetStore(), 100, logger).Handler()

	tests := []struct {
		name   string
		path   string
		status int
		level  logrus.Level
		route  string
	}{
		{"ok", "/health", http.StatusOK, logrus.DebugLevel, "/health"},
		{"not found dataset", "/api/upload/missing", http.StatusNotFound, logrus.DebugLevel, "/api/upload/{id}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "devbackend", entry.Data["component"])
			assert.Equal(t, http.MethodGet, entry.Data["method"])
			assert.Equal(t, tt.route, entry.Data["path"])
			assert.Equal(t, tt.status, entry.Data["status"])
			assert.NotEmpty(t, entry.Data["request_id"])
		})
	}
}
