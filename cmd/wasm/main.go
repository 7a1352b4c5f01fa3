//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/figdraw/figdraw/internal/drawing"
	"github.com/figdraw/figdraw/internal/editor"
)

var session *editor.Session

func main() {
	if err := reset(drawing.New(nil, drawing.DefaultDefaults())); err != nil {
		panic(err)
	}

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → editor) ---
	api.Set("apply", js.FuncOf(apply))
	api.Set("undo", js.FuncOf(undo))
	api.Set("redo", js.FuncOf(redo))
	api.Set("setCapacity", js.FuncOf(setCapacity))
	api.Set("load", js.FuncOf(load))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("markClean", js.FuncOf(markClean))

	// --- Queries (frontend ← editor) ---
	api.Set("state", js.FuncOf(state))
	api.Set("export", js.FuncOf(export))
	api.Set("dirty", js.FuncOf(dirty))

	js.Global().Set("figdrawEditor", api)
	js.Global().Set("figdrawWasmReady", js.ValueOf(true))

	select {}
}

func reset(d *drawing.Drawing) error {
	capacity := editor.DefaultCapacity
	if session != nil {
		capacity = session.History().Capacity
		session.Close()
	}
	s, err := editor.NewSession(d, capacity)
	if err != nil {
		return err
	}
	session = s
	return nil
}

func errorValue(err error) js.Value {
	return js.ValueOf(map[string]any{"error": err.Error()})
}

func okValue() js.Value {
	return js.ValueOf(map[string]any{"ok": true})
}

func jsonValue(v any) js.Value {
	data, err := json.Marshal(v)
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}

// apply takes an operation as JSON and returns the result as JSON.
func apply(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing operation JSON"})
	}
	res, err := session.ApplyJSON([]byte(args[0].String()))
	if err != nil {
		return errorValue(err)
	}
	return jsonValue(res)
}

func undo(this js.Value, args []js.Value) any {
	return js.ValueOf(session.Undo())
}

func redo(this js.Value, args []js.Value) any {
	return js.ValueOf(session.Redo())
}

func setCapacity(this js.Value, args []js.Value) any {
	if len(args) < 1 || args[0].Type() != js.TypeNumber {
		return js.ValueOf(map[string]any{"error": "missing capacity"})
	}
	if err := session.SetCapacity(args[0].Int()); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func load(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf(map[string]any{"error": "missing document JSON"})
	}
	if err := session.Load([]byte(args[0].String())); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func loadSample(this js.Value, args []js.Value) any {
	if err := reset(drawing.NewSample(nil)); err != nil {
		return errorValue(err)
	}
	return okValue()
}

func markClean(this js.Value, args []js.Value) any {
	session.MarkClean()
	return nil
}

func state(this js.Value, args []js.Value) any {
	return jsonValue(session.State())
}

func export(this js.Value, args []js.Value) any {
	data, err := session.Export()
	if err != nil {
		return errorValue(err)
	}
	return js.ValueOf(string(data))
}

func dirty(this js.Value, args []js.Value) any {
	return js.ValueOf(session.Dirty())
}
