package console

import (
	"io"
	"log/slog"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
)

// SetupLogger installs a charm log handler as the default slog logger.
func SetupLogger(w io.Writer, verbose bool) *chlog.Logger {
	charm := chlog.NewWithOptions(w, chlog.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "breath",
	})
	charm.SetColorProfile(termenv.TrueColor)
	charm.SetLevel(chlog.InfoLevel)
	if verbose {
		charm.SetLevel(chlog.DebugLevel)
	}
	slog.SetDefault(slog.New(charm))
	return charm
}
