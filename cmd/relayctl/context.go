package main

import (
	"sync"

	"voicecare-backend/internal/bootstrap"
	"voicecare-backend/internal/shared/config"
)

type buildFunc func(cfg config.Config) (*bootstrap.App, error)

// commandContext builds the application once per invocation, on first use.
type commandContext struct {
	build  buildFunc
	config func() config.Config

	appOnce sync.Once
	app     *bootstrap.App
	appErr  error
}

func newCommandContext(build buildFunc) *commandContext {
	if build == nil {
		build = bootstrap.Build
	}
	return &commandContext{build: build, config: config.Load}
}

func (c *commandContext) ensureApp() (*bootstrap.App, error) {
	c.appOnce.Do(func() {
		c.app, c.appErr = c.build(c.config())
	})
	return c.app, c.appErr
}

func (c *commandContext) close() {
	if c.app != nil {
		c.app.Close()
	}
}
