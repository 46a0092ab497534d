package logger

import "go.uber.org/zap"

// New builds a named, structured sugared logger. Every long-lived
// component gets its own instance so log lines can be filtered by
// component the way the rest of the fleet's tooling expects.
func New(component string) (*zap.SugaredLogger, error) {
	base, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return base.Sugar().With("component", component), nil
}
