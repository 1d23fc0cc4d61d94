package portaudio

import "go.opentelemetry.io/contrib/bridges/otelslog"

const scopeName = "github.com/lachanso/safebuddy/core/audio/portaudio"

var logger = otelslog.NewLogger(scopeName)
