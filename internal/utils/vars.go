package utils

import (
	"errors"
	"time"
)

const DefaultBufferSize = 1024 * 256 // 256KB read buffer
const socketBufferSize = 1024 * 1024
const DefaultPollInterval = 100 * time.Millisecond
const DefaultTimeout = 5 * time.Second
const DefaultRuntimeCheckTimeout = 1000 * time.Millisecond
const LocalConfigFile = "local.yaml"
const TempDirName = ".everlauncher-temp"
const ToolUserAgent = "everlauncher/1"

var (
	ErrConfig              = errors.New("config error")
	ErrNotInitialized      = errors.New("not initialized")
	ErrTransfer            = errors.New("transfer error")
	ErrIntegrity           = errors.New("integrity error")
	ErrInterrupted         = errors.New("download interrupted")
	ErrTimeout             = errors.New("timeout")
	ErrResolution          = errors.New("resolution error")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrTaskDisposed        = errors.New("task disposed")
	ErrTaskNotSucceeded    = errors.New("task has not succeeded")
)
