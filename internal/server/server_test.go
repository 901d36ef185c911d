package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/export"
	"github.com/joseph-ayodele/coc-extractor/internal/llm"
)

type fakeExtractor struct {
	resp *aggregate.Response
	err  error
	path string
}

func (f *fakeExtractor) Process(_ context.Context, path string) (*aggregate.Response, error) {
	f.path = path
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func newTestServer(ex Extractor) *httptest.Server {
	s := New(common.ServerConfig{MaxFileSizeMB: 5}, ex, export.NewService(nil), nil)
	return httptest.NewServer(s.Router())
}

func uploadRequest(t *testing.T, url, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, res *http.Response) errorBody {
	t.Helper()
	var eb errorBody
	require.NoError(t, json.NewDecoder(res.Body).Decode(&eb))
	return eb
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(&fakeExtractor{})
	defer ts.Close()

	res, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get("X-Request-ID"))
}

func TestExtractHappyPath(t *testing.T) {
	ex := &fakeExtractor{resp: &aggregate.Response{
		ExtractedFields: []llm.ExtractedField{{Key: "coc_number", Value: "77812"}},
		GeneralInformation: []llm.ExtractedField{
			{Key: "coc_number", Value: "77812"},
		},
	}}
	ts := newTestServer(ex)
	defer ts.Close()

	req := uploadRequest(t, ts.URL+"/extract", "file", "doc.pdf", []byte("%PDF-1.4 fake"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	var got map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(res.Body).Decode(&got))
	assert.Contains(t, got, "extracted_fields")
	assert.Contains(t, got, "general_information")
	assert.Contains(t, got, "sample_data_information")

	// The spooled upload is removed once the request completes.
	_, statErr := os.Stat(ex.path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestExtractMissingFileField(t *testing.T) {
	ts := newTestServer(&fakeExtractor{})
	defer ts.Close()

	req := uploadRequest(t, ts.URL+"/extract", "document", "doc.pdf", []byte("x"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, common.KindInvalidInput, decodeError(t, res).ErrorKind)
}

func TestExtractRejectsNonPDF(t *testing.T) {
	ts := newTestServer(&fakeExtractor{})
	defer ts.Close()

	req := uploadRequest(t, ts.URL+"/extract", "file", "doc.docx", []byte("x"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, common.KindInvalidInput, decodeError(t, res).ErrorKind)
}

func TestExtractUpstreamFailureMapsTo502(t *testing.T) {
	ex := &fakeExtractor{err: common.NewAppError(common.KindUpstreamFailure,
		"model invocation failed for page 1", nil)}
	ts := newTestServer(ex)
	defer ts.Close()

	req := uploadRequest(t, ts.URL+"/extract", "file", "doc.pdf", []byte("x"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	eb := decodeError(t, res)
	assert.Equal(t, common.KindUpstreamFailure, eb.ErrorKind)
	assert.Equal(t, "model invocation failed for page 1", eb.Message)
}

func TestExtractXLSXFormat(t *testing.T) {
	ex := &fakeExtractor{resp: &aggregate.Response{}}
	ts := newTestServer(ex)
	defer ts.Close()

	req := uploadRequest(t, ts.URL+"/extract?format=xlsx", "file", "lab_form.pdf", []byte("x"))
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		res.Header.Get("Content-Type"))
	assert.Contains(t, res.Header.Get("Content-Disposition"), "lab_form_results.xlsx")
}
