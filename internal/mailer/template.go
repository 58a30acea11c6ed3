package mailer

import (
	_ "embed"
	"errors"
	"fmt"
	"html"
	"os"
	"strings"

	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

type (
	// Template renders the confirmation email from a Lua script.
	//
	// The script receives a table with the fields code, name and email
	// and must return a table with subject and html.
	Template struct {
		name  string
		proto *lua.FunctionProto
	}

	Rendered struct {
		Subject string
		HTML    string `gluamapper:"html"`
	}
)

var (
	//go:embed confirm_code.lua
	defaultTemplate string
)

// DefaultTemplate returns the template embedded in the binary
func DefaultTemplate() *Template {
	t, err := CompileTemplate("confirm_code.lua", defaultTemplate)
	if err != nil {
		panic(err)
	}
	return t
}

// LoadTemplate compiles the Lua script at path
func LoadTemplate(path string) (*Template, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read mail template %v, cause %w", path, err)
	}
	return CompileTemplate(path, string(buf))
}

func CompileTemplate(name, code string) (*Template, error) {
	chunk, err := parse.Parse(strings.NewReader(code), name)
	if err != nil {
		return nil, fmt.Errorf("unable to parse mail template %v, cause %w", name, err)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, fmt.Errorf("unable to compile mail template %v, cause %w", name, err)
	}
	return &Template{name: name, proto: proto}, nil
}

// Render runs the script on a fresh state, so it is safe to call
// from multiple goroutines.
func (t *Template) Render(code, name, email string) (Rendered, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	openSandbox(L)

	msg := L.NewTable()
	msg.RawSetString("code", lua.LString(code))
	msg.RawSetString("name", lua.LString(name))
	msg.RawSetString("email", lua.LString(email))

	L.Push(L.NewFunctionFromProto(t.proto))
	L.Push(msg)
	if err := L.PCall(1, 1, nil); err != nil {
		return Rendered{}, fmt.Errorf("unable to render mail template %v, cause %w", t.name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return Rendered{}, fmt.Errorf("mail template %v returned %v instead of a table", t.name, ret.Type())
	}
	var out Rendered
	if err := gluamapper.Map(tbl, &out); err != nil {
		return Rendered{}, fmt.Errorf("unable to read mail template %v output, cause %w", t.name, err)
	}
	if out.Subject == "" || out.HTML == "" {
		return Rendered{}, errors.New("mail template must return both subject and html")
	}
	return out, nil
}

// openSandbox loads only the libraries a template needs, scripts cannot
// reach the filesystem or load other modules.
func openSandbox(L *lua.LState) {
	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.f),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.n)); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	L.SetGlobal("html_escape", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(html.EscapeString(L.CheckString(1))))
		return 1
	}))
}
