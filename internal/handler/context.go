package handler

import (
	"io"

	"github.com/l1jgo/eventcopy/internal/persist"
	"github.com/l1jgo/eventcopy/internal/scripting"
	"github.com/l1jgo/eventcopy/internal/world"
	"go.uber.org/zap"
)

// Deps holds shared dependencies injected into command handlers.
type Deps struct {
	Log       *zap.Logger
	World     *world.State
	Saves     *persist.SaveData
	Scripting *scripting.Engine // nil disables .lua
	Out       io.Writer         // command replies
}
