package main

import (
	"context"
	"time"

	"github.com/spf13/afero"

	"github.com/pacemangg/aatracker/internal/config"
	"github.com/pacemangg/aatracker/internal/reporter"
)

type contextKey int

const (
	contextKeyFileSystem contextKey = iota
	contextKeySecrets
	contextKeySender
)

// secretStore is the keyring as the commands see it.
type secretStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

func getFileSystem(ctx context.Context) afero.Fs {
	if fs, ok := ctx.Value(contextKeyFileSystem).(afero.Fs); ok {
		return fs
	}
	return afero.NewOsFs()
}

func getSecrets(ctx context.Context) secretStore {
	if s, ok := ctx.Value(contextKeySecrets).(secretStore); ok {
		return s
	}
	return config.NewKeyring()
}

func getSender(ctx context.Context, timeout time.Duration) reporter.Sender {
	if s, ok := ctx.Value(contextKeySender).(reporter.Sender); ok {
		return s
	}
	return reporter.NewClient(timeout, trackerVersion())
}
