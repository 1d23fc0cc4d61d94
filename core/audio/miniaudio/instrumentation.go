package miniaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/lachanso/safebuddy/core/audio/miniaudio"

var logger = otelslog.NewLogger(scopeName)
