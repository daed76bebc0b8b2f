package custom

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/sapslaj/dynip/address"
	"github.com/sapslaj/dynip/pkg/log"
)

type customLuaSource struct {
	mu        sync.Mutex
	state     *lua.LState
	fetchFunc *lua.LFunction
	logger    *zap.Logger
}

// NewCustomLuaSource wraps a Lua function that returns the current address
// as a string. The function may also return nil and an error message.
func NewCustomLuaSource(state *lua.LState, fetchFunc *lua.LFunction) (address.Source, error) {
	if fetchFunc == nil {
		return nil, fmt.Errorf("custom: fetch function is required")
	}
	s := &customLuaSource{
		state:     state,
		fetchFunc: fetchFunc,
		logger:    log.MustNewLogger().Named("custom_lua_address_source"),
	}
	return s, nil
}

func (s *customLuaSource) FetchAddress(ctx context.Context) (string, error) {
	// LState is not safe for concurrent use.
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	// Threads inherit the parent context, which is also what the http module
	// hands to its requests.
	parentCtx := s.state.Context()
	s.state.SetContext(ctx)
	defer func() {
		if parentCtx == nil {
			s.state.RemoveContext()
		} else {
			s.state.SetContext(parentCtx)
		}
	}()
	co, cancel := s.state.NewThread()
	if cancel != nil {
		defer cancel()
	}

	var ret []lua.LValue
	for {
		st, err, values := s.state.Resume(co, s.fetchFunc)
		if st == lua.ResumeError {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", fmt.Errorf("custom: fetch function interrupted: %w", ctxErr)
			}
			return "", fmt.Errorf("custom: lua.ResumeError: %w", err)
		}
		if len(values) > 0 {
			ret = values
		}
		if st == lua.ResumeOK {
			break
		}
	}
	if len(ret) == 0 || ret[0] == lua.LNil {
		if len(ret) > 1 && ret[1] != lua.LNil {
			return "", fmt.Errorf("custom: fetch function failed: %s", ret[1].String())
		}
		return "", fmt.Errorf("custom: fetch function returned no address")
	}
	str, ok := ret[0].(lua.LString)
	if !ok {
		return "", fmt.Errorf("custom: fetch function returned %s, expected string", ret[0].Type())
	}
	ip, err := address.ValidateIPv4(string(str))
	if err != nil {
		return "", fmt.Errorf("custom: %w", err)
	}
	s.logger.Sugar().Debugw("fetched address", "address", ip)
	return ip, nil
}
