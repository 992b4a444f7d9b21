package config

import (
	lua "github.com/yuin/gopher-lua"
)

// safeLibs are the only standard libraries opened in a settings VM.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals are removed after the safe libraries are opened. rawset
// would let a settings file shadow fields of the read-only platform table.
var blockedGlobals = []string{
	"os", "io", "debug", "package",
	"require", "module",
	"dofile", "loadfile", "load", "loadstring",
	"rawset", "getfenv", "setfenv",
	"collectgarbage",
}

// sandboxLuaVM removes everything that could execute commands, touch the
// filesystem or load code from L.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua VM with only base, table, string and math
// available.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	sandboxLuaVM(L)
	return L
}
