package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog. Production gets plain JSON on stdout;
// everything else gets the human-readable console writer.
func Setup(production bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if production {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
		return
	}

	cw := zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stdout
		w.TimeFormat = time.RFC3339
	})
	log.Logger = zerolog.New(cw).With().Timestamp().Logger()
}
