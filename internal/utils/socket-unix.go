//go:build linux || darwin

package utils

import (
	"syscall"
)

// setSocketBuffers enlarges the kernel buffers of download connections.
func setSocketBuffers(fd uintptr) {
	syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, socketBufferSize)
	syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_SNDBUF, socketBufferSize)
}
