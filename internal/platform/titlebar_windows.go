//go:build windows

package platform

import (
	"syscall"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
)

var (
	dwmapi                    = syscall.NewLazyDLL("dwmapi.dll")
	procDwmSetWindowAttribute = dwmapi.NewProc("DwmSetWindowAttribute")
)

const (
	dwmwaUseImmersiveDarkMode = 20
	dwmwaBorderColor          = 34
	dwmwaCaptionColor         = 35
)

func setDwmAttribute(hwnd unsafe.Pointer, attr uintptr, value uint32) {
	procDwmSetWindowAttribute.Call(
		uintptr(hwnd),
		attr,
		uintptr(unsafe.Pointer(&value)),
		unsafe.Sizeof(value),
	)
}

// setDarkTitleBar matches the window chrome to the dark render output.
// Older Windows versions ignore the attributes.
func setDarkTitleBar(win *glfw.Window) {
	hwnd := win.GetWin32Window()
	if hwnd == nil {
		return
	}
	h := unsafe.Pointer(hwnd)
	setDwmAttribute(h, dwmwaUseImmersiveDarkMode, 1)
	setDwmAttribute(h, dwmwaBorderColor, 0x00000000)
	setDwmAttribute(h, dwmwaCaptionColor, 0x00202020)
}
