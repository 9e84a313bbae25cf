package dispatch

import (
	"github.com/snowmerak/bridge.go/lib/arena"
	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/manager"
	"github.com/snowmerak/bridge.go/lib/result"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// Shim is the plugin-side adapter: it boxes native manager implementations
// behind opaque handles and serves them through one dispatch table. The shim
// owns every instance it exposes until the far side's Destroy call releases
// it.
type Shim struct {
	instances *arena.Arena
	pagers    *arena.Arena
	table     *Table
}

// NewShim creates a shim with a fully populated table.
func NewShim() *Shim {
	s := &Shim{
		instances: arena.New(),
		pagers:    arena.New(),
	}
	s.table = &Table{
		Identifier:  s.identifier,
		DisplayName: s.displayName,
		Info:        s.info,
		Initialize:  s.initialize,
		Resolve:     s.resolve,
		Destroy:     s.destroy,
		Pager: &PagerTable{
			HasNext: s.pagerHasNext,
			Get:     s.pagerGet,
			Next:    s.pagerNext,
			Destroy: s.pagerDestroy,
		},
	}
	return s
}

// Expose boxes a native implementation and returns the table plus the handle
// the far side will call through. The shim retains ownership of impl; only
// the table's Destroy entry releases it.
func (s *Shim) Expose(impl manager.Interface) (*Table, wire.Handle) {
	return s.table, s.instances.Box(impl)
}

// Live returns the number of instances the shim still owns.
func (s *Shim) Live() int {
	return s.instances.Len()
}

func (s *Shim) instance(errBuf *wire.StringBuffer, h wire.Handle) (manager.Interface, result.Code) {
	v, err := s.instances.Get(h)
	if err != nil {
		return nil, fail(errBuf, result.ErrBadHandle, err.Error())
	}
	return v.(manager.Interface), result.OK
}

func (s *Shim) pager(errBuf *wire.StringBuffer, h wire.Handle) (batch.Source, result.Code) {
	v, err := s.pagers.Get(h)
	if err != nil {
		return nil, fail(errBuf, result.ErrBadHandle, err.Error())
	}
	return v.(batch.Source), result.OK
}

func (s *Shim) identifier(errBuf, out *wire.StringBuffer, h wire.ConstHandle) result.Code {
	return guard(errBuf, func() result.Code {
		impl, code := s.instance(errBuf, wire.Handle(h))
		if code != result.OK {
			return code
		}
		if !out.Write(impl.Identifier()) {
			return fail(errBuf, result.ErrBufferTooSmall, "identifier does not fit")
		}
		return result.OK
	})
}

func (s *Shim) displayName(errBuf, out *wire.StringBuffer, h wire.ConstHandle) result.Code {
	return guard(errBuf, func() result.Code {
		impl, code := s.instance(errBuf, wire.Handle(h))
		if code != result.OK {
			return code
		}
		if !out.Write(impl.DisplayName()) {
			return fail(errBuf, result.ErrBufferTooSmall, "display name does not fit")
		}
		return result.OK
	})
}

func (s *Shim) info(errBuf *wire.StringBuffer, emit func(key, value string), h wire.ConstHandle) result.Code {
	return guard(errBuf, func() result.Code {
		impl, code := s.instance(errBuf, wire.Handle(h))
		if code != result.OK {
			return code
		}
		for k, v := range impl.Info() {
			emit(k, v)
		}
		return result.OK
	})
}

func (s *Shim) initialize(errBuf *wire.StringBuffer, h wire.Handle, settings []wire.Pair) result.Code {
	return guard(errBuf, func() result.Code {
		impl, code := s.instance(errBuf, h)
		if code != result.OK {
			return code
		}
		if err := impl.Initialize(wire.MapFromPairs(settings)); err != nil {
			return failErr(errBuf, err)
		}
		return result.OK
	})
}

func (s *Shim) resolve(errBuf *wire.StringBuffer, outPager *wire.Handle, h wire.Handle, refs []string, pageSize int) result.Code {
	return guard(errBuf, func() result.Code {
		impl, code := s.instance(errBuf, h)
		if code != result.OK {
			return code
		}
		src, err := impl.Resolve(refs, pageSize)
		if err != nil {
			return failErr(errBuf, err)
		}
		if src == nil {
			return fail(errBuf, result.ErrUnknown, "implementation returned no page source")
		}
		*outPager = s.pagers.Box(src)
		return result.OK
	})
}

func (s *Shim) destroy(errBuf *wire.StringBuffer, h wire.Handle) result.Code {
	return guard(errBuf, func() result.Code {
		if _, err := s.instances.Drop(h); err != nil {
			return fail(errBuf, result.ErrBadHandle, err.Error())
		}
		return result.OK
	})
}

func (s *Shim) pagerHasNext(errBuf *wire.StringBuffer, out *bool, h wire.ConstHandle) result.Code {
	return guard(errBuf, func() result.Code {
		src, code := s.pager(errBuf, wire.Handle(h))
		if code != result.OK {
			return code
		}
		*out = src.HasNext()
		return result.OK
	})
}

func (s *Shim) pagerGet(errBuf *wire.StringBuffer, emit func(code result.Code, data []byte, message string), h wire.ConstHandle) result.Code {
	return guard(errBuf, func() result.Code {
		src, code := s.pager(errBuf, wire.Handle(h))
		if code != result.OK {
			return code
		}
		for _, item := range src.Get() {
			if item.Err != nil {
				itemCode, msg := result.Encode(item.Err)
				if !itemCode.IsBatchError() {
					itemCode = result.BatchUnknown
				}
				emit(itemCode, nil, msg)
				continue
			}
			emit(result.OK, item.Data, "")
		}
		return result.OK
	})
}

func (s *Shim) pagerNext(errBuf *wire.StringBuffer, h wire.Handle) result.Code {
	return guard(errBuf, func() result.Code {
		src, code := s.pager(errBuf, h)
		if code != result.OK {
			return code
		}
		if err := src.Next(); err != nil {
			return failErr(errBuf, err)
		}
		return result.OK
	})
}

func (s *Shim) pagerDestroy(errBuf *wire.StringBuffer, h wire.Handle) result.Code {
	return guard(errBuf, func() result.Code {
		v, err := s.pagers.Drop(h)
		if err != nil {
			return fail(errBuf, result.ErrBadHandle, err.Error())
		}
		if err := v.(batch.Source).Close(); err != nil {
			return failErr(errBuf, err)
		}
		return result.OK
	})
}
