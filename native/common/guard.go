package common

import (
	"strings"

	coreerrors "gridledger/core/errors"
)

// ErrModulePaused rejects transitions addressed to a module that operators
// have paused.
var ErrModulePaused = coreerrors.New("common", "ModulePaused", coreerrors.KindState)

type PauseView interface {
	IsPaused(module string) bool
}

// PauseList is a static PauseView built from configuration.
type PauseList map[string]struct{}

// NewPauseList normalises module names to lower case.
func NewPauseList(modules []string) PauseList {
	out := make(PauseList, len(modules))
	for _, m := range modules {
		if trimmed := strings.ToLower(strings.TrimSpace(m)); trimmed != "" {
			out[trimmed] = struct{}{}
		}
	}
	return out
}

func (p PauseList) IsPaused(module string) bool {
	_, ok := p[strings.ToLower(module)]
	return ok
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
