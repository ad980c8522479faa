package logger

import (
	"errors"
)

var (
	// ErrAppNameIsEmpty is returned by Init when Log.AppName is not set.
	ErrAppNameIsEmpty = errors.New("config Log.AppName can not be empty")

	// ErrServiceNameIsEmpty is returned by Init when Log.ServiceName is not
	// set. The name labels the prometheus log counter.
	ErrServiceNameIsEmpty = errors.New("config Log.ServiceName can not be empty")
)
