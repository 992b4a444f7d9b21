package platform

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestInjectPlatformTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{
		OS:       OSLinux,
		Arch:     ArchARM64,
		ArchRaw:  "arm64",
		Platform: "alpine",
		Family:   FamilyAlpine,
		Version:  "3.20.1",
	}
	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"os", `return platform.os`, lua.LString("linux")},
		{"arch", `return platform.arch`, lua.LString("arm64")},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"is_supported", `return platform.is_supported`, lua.LTrue},
		{"is_arm64", `return platform.is_arm64`, lua.LTrue},
		{"is_alpine", `return platform.is_alpine`, lua.LTrue},
		{"distro.version", `return platform.distro.version`, lua.LString("3.20.1")},
		{"when_true", `return platform.when(platform.is_alpine, "musl")`, lua.LString("musl")},
		{"when_false", `return platform.when(platform.is_windows, "exe")`, lua.LNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err != nil {
				t.Fatalf("DoString() error = %v", err)
			}
			got := L.Get(-1)
			L.Pop(1)
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: OSDarwin, Arch: ArchAMD64}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	err := L.DoString(`platform.os = "windows"`)
	if err == nil {
		t.Fatal("expected error when writing to platform table")
	}
	if !strings.Contains(err.Error(), "read-only") {
		t.Errorf("unexpected error: %v", err)
	}

	if err := L.DoString(`return platform.distro`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := L.Get(-1); got != lua.LNil {
		t.Errorf("distro on macOS = %v, want nil", got)
	}
}
