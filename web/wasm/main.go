//go:build js && wasm

package main

import (
	"context"
	"syscall/js"

	"github.com/cwbudde/algo-fxchain/codec"
	"github.com/cwbudde/algo-fxchain/config"
	"github.com/cwbudde/algo-fxchain/engine"
	"github.com/cwbudde/algo-fxchain/prefs"
)

var (
	fx    *engine.Engine
	funcs []js.Func
)

// localStorage adapts window.localStorage to prefs.Store.
type localStorage struct {
	v js.Value
}

func (s localStorage) Get(key string) (string, error) {
	item := s.v.Call("getItem", key)
	if item.IsNull() || item.IsUndefined() {
		return "", prefs.ErrNotFound
	}

	return item.String(), nil
}

func (s localStorage) Set(key, value string) error {
	s.v.Call("setItem", key, value)
	return nil
}

func main() {
	api := js.Global().Get("Object").New()

	api.Set("init", export(func(args []js.Value) any {
		cfg := config.Default()
		if len(args) > 0 {
			cfg.SampleRate = args[0].Int()
		}

		opts := []engine.Option{}
		if ls := js.Global().Get("localStorage"); ls.Truthy() {
			opts = append(opts, engine.WithStore(localStorage{v: ls}))
		}

		e, err := engine.New(cfg, opts...)
		if err != nil {
			return err.Error()
		}
		fx = e
		return js.Null()
	}))

	api.Set("loadFile", export(func(args []js.Value) any {
		if fx == nil || len(args) < 1 {
			return js.Null()
		}
		data := make([]byte, args[0].Get("length").Int())
		js.CopyBytesToGo(data, args[0])
		buf, err := codec.Decode(data)
		if err != nil {
			fx.LoadBuffer(nil)
			return err.Error()
		}
		fx.LoadBuffer(buf)
		return js.Null()
	}))

	api.Set("setParameter", export(func(args []js.Value) any {
		if fx == nil || len(args) < 3 {
			return js.Null()
		}
		return result(fx.SetParameter(args[0].String(), args[1].String(), args[2].Float()))
	}))

	api.Set("setBypass", export(func(args []js.Value) any {
		if fx == nil || len(args) < 2 {
			return js.Null()
		}
		return result(fx.SetBypass(args[0].String(), args[1].Bool()))
	}))

	api.Set("reorder", export(func(args []js.Value) any {
		if fx == nil || len(args) < 1 {
			return js.Null()
		}
		arr := args[0]
		order := make([]string, arr.Length())
		for i := range order {
			order[i] = arr.Index(i).String()
		}
		return result(fx.Reorder(order))
	}))

	api.Set("resetAll", export(func(args []js.Value) any {
		if fx == nil {
			return js.Null()
		}
		return result(fx.ResetAll())
	}))

	api.Set("setMasterGain", export(func(args []js.Value) any {
		if fx == nil || len(args) < 1 {
			return js.Null()
		}
		return result(fx.SetMasterGain(args[0].Float()))
	}))

	api.Set("play", export(func(args []js.Value) any {
		if fx == nil {
			return js.Null()
		}
		return result(fx.Play())
	}))

	api.Set("pause", export(func(args []js.Value) any {
		if fx != nil {
			fx.Pause()
		}
		return js.Null()
	}))

	api.Set("seek", export(func(args []js.Value) any {
		if fx == nil || len(args) < 1 {
			return js.Null()
		}
		return result(fx.Seek(args[0].Float()))
	}))

	api.Set("status", export(func(args []js.Value) any {
		if fx == nil {
			return js.Null()
		}
		st := js.Global().Get("Object").New()
		st.Set("state", fx.State().String())
		st.Set("position", fx.Position())
		st.Set("duration", fx.Duration())
		order := fx.Order()
		ids := make([]any, len(order))
		for i, id := range order {
			ids[i] = id
		}
		st.Set("order", js.ValueOf(ids))
		return st
	}))

	// render pulls n interleaved stereo frames for an AudioWorklet.
	api.Set("render", export(func(args []js.Value) any {
		if fx == nil || len(args) < 1 {
			return js.Global().Get("Float32Array").New(0)
		}
		block, err := fx.RenderBlock(args[0].Int())
		if err != nil {
			return js.Global().Get("Float32Array").New(0)
		}
		arr := js.Global().Get("Float32Array").New(len(block))
		for i, v := range block {
			arr.SetIndex(i, v)
		}
		return arr
	}))

	api.Set("renderToFile", export(func(args []js.Value) any {
		if fx == nil {
			return js.Null()
		}
		data, err := fx.RenderToFile(context.Background())
		if err != nil {
			return err.Error()
		}
		arr := js.Global().Get("Uint8Array").New(len(data))
		js.CopyBytesToJS(arr, data)
		return arr
	}))

	api.Set("spectrum", export(func(args []js.Value) any {
		if fx == nil {
			return js.Global().Get("Float32Array").New(0)
		}
		spec := make([]float64, fx.Config().Analyser.FFTSize/2)
		if err := fx.Spectrum(spec); err != nil {
			return js.Global().Get("Float32Array").New(0)
		}
		return float32Array(spec)
	}))

	api.Set("waveform", export(func(args []js.Value) any {
		if fx == nil {
			return js.Global().Get("Float32Array").New(0)
		}
		wave := make([]float64, fx.Config().Analyser.FFTSize)
		fx.Waveform(wave)
		return float32Array(wave)
	}))

	api.Set("meter", export(func(args []js.Value) any {
		if fx == nil {
			return js.Null()
		}
		r := fx.Meter()
		m := js.Global().Get("Object").New()
		m.Set("rmsDb", r.RMSDB)
		m.Set("peakDb", r.PeakDB)
		m.Set("level", r.Level)
		m.Set("peak", r.Peak)
		m.Set("reductionDb", fx.GainReduction())
		return m
	}))

	js.Global().Set("FXChain", api)
	select {}
}

func result(err error) any {
	if err != nil {
		return err.Error()
	}
	return js.Null()
}

func float32Array(v []float64) js.Value {
	arr := js.Global().Get("Float32Array").New(len(v))
	for i, x := range v {
		arr.SetIndex(i, x)
	}
	return arr
}

func export(fn func([]js.Value) any) js.Func {
	f := js.FuncOf(func(_ js.Value, args []js.Value) any {
		return fn(args)
	})
	funcs = append(funcs, f)
	return f
}
