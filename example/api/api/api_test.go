package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"gotest.tools/v3/assert"

	"github.com/pluvio/dbx/example/migrations"
	"github.com/pluvio/dbx/example/notes"
)

type fixture struct {
	url string

	Store *notes.Store
}

func startAPI(ctx context.Context, t testing.TB) *fixture {
	t.Helper()

	dbfix := migrations.SetupDB(ctx, t)
	store, err := notes.NewStore(dbfix.Pool)
	assert.NilError(t, err)

	api := New(ctx, Options{Store: store})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &fixture{
		url:   srv.URL,
		Store: store,
	}
}

func (f *fixture) Get(t testing.TB, path string, out interface{}) (statusCode int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, f.url+path, nil)
	assert.Assert(t, err)
	return f.do(t, req, out)
}

func (f *fixture) Post(t testing.TB, path string, body, out interface{}) (statusCode int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, f.url+path, jsonBody(t, body))
	assert.Assert(t, err)
	return f.do(t, req, out)
}

func (f *fixture) Patch(t testing.TB, path string, body, out interface{}) (statusCode int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPatch, f.url+path, jsonBody(t, body))
	assert.Assert(t, err)
	return f.do(t, req, out)
}

func (f *fixture) Delete(t testing.TB, path string) (statusCode int) {
	t.Helper()

	req, err := http.NewRequest(http.MethodDelete, f.url+path, nil)
	assert.Assert(t, err)
	return f.do(t, req, nil)
}

func (f *fixture) do(t testing.TB, req *http.Request, out interface{}) (statusCode int) {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	assert.Assert(t, err)

	defer func() {
		assert.Check(t, resp.Body.Close())
	}()

	if resp.StatusCode < 300 && out != nil {
		err = json.NewDecoder(resp.Body).Decode(out)
		assert.Assert(t, err)
	}

	return resp.StatusCode
}

func jsonBody(t testing.TB, body interface{}) *bytes.Reader {
	t.Helper()

	b, err := json.Marshal(body)
	assert.Assert(t, err)
	return bytes.NewReader(b)
}
