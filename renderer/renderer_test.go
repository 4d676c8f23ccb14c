package renderer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	r := New("http://localhost", nil)

	assert.Empty(t, r.SelectedCategory)
	assert.Equal(t, RESTConfig{
		"usertokens": "/mymccs",
		"categories": "/accounts/2742928629",
	}, r.GetRESTConfig())
}

func TestSetRESTConfig(t *testing.T) {
	r := New("", nil)
	cfg := RESTConfig{"accounts": "/accounts/{id}"}
	r.SetRESTConfig(cfg)

	assert.Equal(t, cfg, r.GetRESTConfig())
}

func TestURLWithoutKeys(t *testing.T) {
	r := New("", nil)

	u, err := r.URL(&Request{Service: "categories"})
	require.NoError(t, err)
	assert.Equal(t, "/accounts/2742928629", u)
}

func TestURLSubstitutesEveryOccurrence(t *testing.T) {
	r := New("", nil)
	r.SetRESTConfig(RESTConfig{"report": "/accounts/{id}/report/{id}?from={from}"})

	u, err := r.URL(&Request{
		Service: "report",
		Keys:    map[string]string{"id": "42", "from": "2013-01"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/accounts/42/report/42?from=2013-01", u)
}

func TestURLUnknownService(t *testing.T) {
	r := New("", nil)

	_, err := r.URL(&Request{Service: "nope"})
	assert.ErrorIs(t, err, ErrUnknownService)

	err = r.DoReq(context.Background(), &Request{Service: "nope"})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestDoReqCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/mymccs", r.URL.Path)
		assert.Equal(t, "bob:secret", r.Header.Get("X-Access-Token"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	r := New(srv.URL+"/", srv.Client())

	var got []byte
	req := &Request{
		Service:  "usertokens",
		Header:   http.Header{"X-Access-Token": []string{"bob:secret"}},
		Callback: func(data []byte) { got = data },
	}
	require.NoError(t, r.DoReq(context.Background(), req))

	assert.Equal(t, "[]", string(got))
	assert.Equal(t, http.MethodGet, req.Method)
}

func TestDoReqData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "2013-01", r.URL.Query().Get("month"))
		case http.MethodPost:
			body, _ := io.ReadAll(r.Body)
			assert.Equal(t, "month=2013-01", string(body))
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	r := New(srv.URL, srv.Client())
	data := url.Values{"month": []string{"2013-01"}}

	calls := 0
	cb := func([]byte) { calls++ }
	require.NoError(t, r.DoReq(context.Background(), &Request{Service: "categories", Data: data, Callback: cb}))
	require.NoError(t, r.DoReq(context.Background(), &Request{Service: "categories", Method: http.MethodPost, Data: data, Callback: cb}))
	assert.Equal(t, 2, calls)
}

func TestDoReqFailureSkipsCallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	r := New(srv.URL, srv.Client())

	called := false
	err := r.DoReq(context.Background(), &Request{
		Service:  "usertokens",
		Callback: func([]byte) { called = true },
	})
	assert.Error(t, err)
	assert.False(t, called)
}
