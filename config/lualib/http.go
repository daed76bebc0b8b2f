package lualib

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	luar "layeh.com/gopher-luar"

	"github.com/sapslaj/dynip/pkg/luautils"
)

const defaultRequestTimeout = 30 * time.Second

// Request is the table accepted by http.request.
type Request struct {
	URL                string              `gluamapper:"url"`
	Method             string              `gluamapper:"method"`
	Body               string              `gluamapper:"body"`
	JSON               any                 `gluamapper:"json"`
	Headers            map[string][]string `gluamapper:"headers"`
	TimeoutSeconds     int                 `gluamapper:"timeout_seconds"`
	InsecureSkipVerify bool                `gluamapper:"insecure_skip_verify"`
}

var requestMapper = gluamapper.NewMapper(gluamapper.Option{
	NameFunc: gluamapper.Id,
	TagName:  "gluamapper",
})

// HTTP exposes a minimal HTTP client to configuration scripts as the "http"
// module, mostly so custom address sources can query their own endpoints.
type HTTP struct{}

func NewHTTPLoader() lua.LGFunction {
	return (&HTTP{}).Loader
}

func (h *HTTP) Loader(L *lua.LState) int {
	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"request": h.request,
	})
	L.Push(mod)
	return 1
}

func (h *HTTP) request(L *lua.LState) int {
	var req Request
	if err := requestMapper.Map(L.CheckTable(1), &req); err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}

	timeout := defaultRequestTimeout
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if req.Method == "" {
		req.Method = http.MethodGet
	}

	var reqBody io.Reader
	if req.JSON != nil {
		data, err := json.Marshal(jsonValue(req.JSON))
		if err != nil {
			L.RaiseError("error making request: %v", err)
			return 0
		}
		reqBody = bytes.NewReader(data)
	} else if req.Body != "" {
		reqBody = strings.NewReader(req.Body)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if req.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}
	client := &http.Client{
		Transport: transport,
	}

	httpRequest, err := http.NewRequestWithContext(ctx, strings.ToUpper(req.Method), req.URL, reqBody)
	if err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}
	if req.Headers != nil {
		httpRequest.Header = http.Header(req.Headers)
	}
	if req.JSON != nil && httpRequest.Header.Get("Content-Type") == "" {
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := client.Do(httpRequest)
	if err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}
	defer httpResponse.Body.Close()
	resData, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		L.RaiseError("error making request: %v", err)
		return 0
	}
	resBody := string(resData)

	headers := L.NewTable()
	for key, values := range httpResponse.Header {
		t := L.NewTable()
		for _, value := range values {
			t.Append(lua.LString(value))
		}
		headers.RawSetString(key, t)
	}

	res := L.NewTable()
	res.RawSetString("status_code", lua.LNumber(httpResponse.StatusCode))
	res.RawSetString("headers", headers)
	res.RawSetString("body", lua.LString(resBody))
	res.RawSetString("json", luar.New(L, func(LL *luar.LState) int {
		var raw any
		if err := json.Unmarshal(resData, &raw); err != nil {
			LL.RaiseError("error parsing response JSON: %v", err)
			return 0
		}
		LL.Push(luautils.FromGoValue(LL.LState, raw))
		return 1
	}))
	L.Push(res)
	return 1
}

// jsonValue turns the map[any]any tables produced by gluamapper into values
// encoding/json accepts.
func jsonValue(v any) any {
	switch val := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			if s, ok := k.(string); ok {
				m[s] = jsonValue(item)
			}
		}
		return m
	case map[string]any:
		for k, item := range val {
			val[k] = jsonValue(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = jsonValue(item)
		}
		return val
	}
	return v
}
