package custom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/config/lualib"
)

func loadFetchFunc(t *testing.T, state *lua.LState, code string) *lua.LFunction {
	t.Helper()
	err := state.DoString(code)
	require.NoError(t, err, "failed to execute Lua")
	fn, ok := state.Get(-1).(*lua.LFunction)
	require.True(t, ok, "Lua code did not return a function")
	state.Pop(1)
	return fn
}

func TestFetchAddress(t *testing.T) {
	tests := map[string]struct {
		code    string
		want    string
		wantErr string
	}{
		"returns address": {
			code: `return function() return "198.51.100.7" end`,
			want: "198.51.100.7",
		},
		"trims whitespace": {
			code: `return function() return " 198.51.100.7\n" end`,
			want: "198.51.100.7",
		},
		"returns error message": {
			code:    `return function() return nil, "router unreachable" end`,
			wantErr: "custom: fetch function failed: router unreachable",
		},
		"returns nothing": {
			code:    `return function() end`,
			wantErr: "custom: fetch function returned no address",
		},
		"returns table": {
			code:    `return function() return {} end`,
			wantErr: "custom: fetch function returned table, expected string",
		},
		"raises": {
			code:    `return function() error("boom") end`,
			wantErr: "boom",
		},
		"yields before returning": {
			code: `return function()
				coroutine.yield()
				return "192.0.2.1"
			end`,
			want: "192.0.2.1",
		},
	}

	for desc, tc := range tests {
		t.Run(desc, func(t *testing.T) {
			state := lua.NewState()
			defer state.Close()

			s, err := NewCustomLuaSource(state, loadFetchFunc(t, state, tc.code))
			require.NoError(t, err)

			got, err := s.FetchAddress(context.Background())
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestFetchAddress_Invalid(t *testing.T) {
	state := lua.NewState()
	defer state.Close()

	s, err := NewCustomLuaSource(state, loadFetchFunc(t, state, `return function() return "not an ip" end`))
	require.NoError(t, err)
	_, err = s.FetchAddress(context.Background())
	assert.ErrorIs(t, err, address.ErrInvalidAddress)
}

func TestFetchAddress_Canceled(t *testing.T) {
	state := lua.NewState()
	defer state.Close()

	s, err := NewCustomLuaSource(state, loadFetchFunc(t, state, `return function() return "192.0.2.1" end`))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.FetchAddress(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAddress_DeadlineReachesHTTPRequest(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	state := lua.NewState()
	defer state.Close()
	state.PreloadModule("http", lualib.NewHTTPLoader())
	state.SetGlobal("url", lua.LString(server.URL))

	s, err := NewCustomLuaSource(state, loadFetchFunc(t, state, `return function()
		require("http").request({url = url})
		return "198.51.100.7"
	end`))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	got, err := s.FetchAddress(ctx)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Empty(t, got)

	// The caller's context does not stick to the state.
	assert.Nil(t, state.Context())
}

func TestNewCustomLuaSource_RequiresFunction(t *testing.T) {
	_, err := NewCustomLuaSource(lua.NewState(), nil)
	assert.Error(t, err)
}
