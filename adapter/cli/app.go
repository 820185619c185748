package cli

import (
	"context"
	"errors"
	"fmt"
	gosync "sync"

	"github.com/felixgeelhaar/taskcal/internal/app"
	"github.com/felixgeelhaar/taskcal/internal/productivity/application/sync"
)

// ErrNotInitialized is returned when a command needs the store but the
// container could not be built.
var ErrNotInitialized = errors.New("application not initialized - store connection required")

// App holds the CLI's view of the application container.
type App struct {
	Container *app.Container

	loadOnce gosync.Once
	loadErr  error
}

// NewApp wraps a container for use by commands.
func NewApp(c *app.Container) *App {
	return &App{Container: c}
}

// Controller returns the sync controller after loading the store once.
func (a *App) Controller(ctx context.Context) (*sync.Controller, error) {
	if a == nil || a.Container == nil {
		return nil, ErrNotInitialized
	}
	a.loadOnce.Do(func() {
		if err := a.Container.Sync.Load(ctx); err != nil {
			a.loadErr = fmt.Errorf("failed to load tasks: %w", err)
		}
	})
	if a.loadErr != nil {
		return nil, a.loadErr
	}
	return a.Container.Sync, nil
}

// Await blocks until op completes and marks gateway failures as changes
// that never reached the store.
func Await(ctx context.Context, op *sync.Operation) error {
	err := op.Wait(ctx)
	if err == nil {
		return nil
	}
	if sync.IsSyncError(err) {
		return fmt.Errorf("change was applied locally but not saved: %w", err)
	}
	return err
}

// current is the global CLI application instance
var current *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	current = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return current
}

// RequireApp returns the global instance or ErrNotInitialized.
func RequireApp() (*App, error) {
	if current == nil || current.Container == nil {
		return nil, ErrNotInitialized
	}
	return current, nil
}
