package construct

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ThomasCrouzet/openzfs-stack/internal/logging"
)

// App is the root of the construct tree. It owns the stacks that will be
// synthesized.
type App struct {
	logger *zap.Logger
	stacks []*Stack
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for construction diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewApp creates an empty App.
func NewApp(opts ...Option) *App {
	a := &App{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the app logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Register adds a fully built stack. Stack names are unique per app.
func (a *App) Register(s *Stack) error {
	for _, existing := range a.stacks {
		if existing.name == s.name {
			return fmt.Errorf("stack %s: %w", s.name, ErrDuplicateStack)
		}
	}
	a.stacks = append(a.stacks, s)
	a.logger.Debug("registered stack",
		zap.String(logging.FieldStack, s.name),
		zap.Int(logging.FieldResources, len(s.order)),
	)
	return nil
}

// Stacks returns the registered stacks in registration order.
func (a *App) Stacks() []*Stack {
	return append([]*Stack(nil), a.stacks...)
}

// Stack looks up a registered stack by name.
func (a *App) Stack(name string) (*Stack, bool) {
	for _, s := range a.stacks {
		if s.name == name {
			return s, true
		}
	}
	return nil, false
}
