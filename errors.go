package adbfs

import "errors"

var (
	ErrNoDevice    = errors.New("no such device attached")
	ErrNoSelection = errors.New("no file selected")
)
