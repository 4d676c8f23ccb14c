package renderer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultTimeout = 30 * time.Second
)

var (
	ErrUnknownService = errors.New("unknown service")
)

// RESTConfig maps a service name to a URL template. Templates may contain
// {name} placeholders filled from Request.Keys.
type RESTConfig map[string]string

func DefaultRESTConfig() RESTConfig {
	return RESTConfig{
		"usertokens": "/mymccs",
		"categories": "/accounts/2742928629",
	}
}

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes one call to a configured service.
type Request struct {
	Service string
	// Method defaults to GET.
	Method string
	// Data is sent as the query string for GET and as a form body otherwise.
	Data   url.Values
	Keys   map[string]string
	Header http.Header
	// Callback receives the response body of a successful request.
	Callback func(data []byte)
}

type Renderer struct {
	SelectedCategory string

	baseURL    string
	client     Doer
	restConfig RESTConfig
}

func New(baseURL string, client Doer) *Renderer {
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	r := &Renderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
	r.SetRESTConfig(DefaultRESTConfig())

	return r
}

func (r *Renderer) SetRESTConfig(cfg RESTConfig) {
	r.restConfig = cfg
}

func (r *Renderer) GetRESTConfig() RESTConfig {
	return r.restConfig
}

// URL resolves the service template of req and substitutes every {key}
// occurrence with its value. Values are not escaped.
func (r *Renderer) URL(req *Request) (string, error) {
	u, ok := r.restConfig[req.Service]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownService, req.Service)
	}

	keys := make([]string, 0, len(req.Keys))
	for k := range req.Keys {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		u = strings.ReplaceAll(u, "{"+k+"}", req.Keys[k])
	}

	return u, nil
}

// DoReq performs req and hands the body to req.Callback. The callback is not
// invoked when the request fails or the server answers with a non-2xx status.
func (r *Renderer) DoReq(ctx context.Context, req *Request) error {
	path, err := r.URL(req)
	if err != nil {
		return err
	}

	if req.Method == "" {
		req.Method = http.MethodGet
	}

	target := r.baseURL + path
	var body io.Reader
	if len(req.Data) > 0 {
		if req.Method == http.MethodGet {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + req.Data.Encode()
		} else {
			body = strings.NewReader(req.Data.Encode())
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return fmt.Errorf("building %s request: %w", req.Service, err)
	}
	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	httpReq.Header.Set("Accept", "application/json")

	log.Debugf("request: service=%s method=%s url=%s", req.Service, req.Method, target)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s request: %w", req.Service, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", req.Service, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s request: unexpected status %d", req.Service, resp.StatusCode)
	}

	if req.Callback != nil {
		req.Callback(data)
	}

	return nil
}
