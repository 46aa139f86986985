package bootstrap

import (
	"errors"
	"io"
	"log/slog"

	"captionview/internal/audio"
	"captionview/internal/config"
	"captionview/internal/glossary"
	"captionview/internal/logging"
	"captionview/internal/ports"
	"captionview/internal/preferences"
	"captionview/internal/providers/wordly"
	"captionview/internal/remote"
	"captionview/internal/usecase"
	"captionview/internal/wakelock"
)

// Services is the assembled runtime graph.
type Services struct {
	Config      config.Config
	Logger      *slog.Logger
	Connection  *usecase.ConnectionManager
	Audio       *usecase.AudioQueue
	Transcript  *usecase.Transcript
	Header      *usecase.HeaderCollapser
	Glossary    *glossary.Glossary
	Preferences *preferences.Store
	WakeLock    ports.WakeLock
	Clipboard   ports.Clipboard
	// Remote is nil unless a listen address is configured.
	Remote *remote.Server

	closers []io.Closer
}

// Build wires all backend dependencies for the current runtime.
func Build(eventSink ports.EventSink, clipboard ports.Clipboard) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	logger, logCloser, err := logging.New(logging.Config{
		Level: cfg.Log.Level,
		JSON:  cfg.Log.JSON,
		File:  cfg.Log.File,
	})
	if err != nil {
		return Services{}, err
	}
	services := Services{Config: cfg, Logger: logger, Clipboard: clipboard}
	services.closers = append(services.closers, logCloser)

	terms, err := glossary.Load(cfg.Glossary.Path, cfg.Glossary.IterationLimit, logger)
	if err != nil {
		logger.Warn("glossary disabled until the file is fixed", "path", cfg.Glossary.Path, "error", err)
	}
	prefs, err := preferences.Open(cfg.Storage.Dir, logger)
	if err != nil {
		_ = services.Close()
		return Services{}, err
	}

	player := newPlayer(cfg.Audio)
	if closer, ok := player.(io.Closer); ok {
		services.closers = append(services.closers, closer)
	}

	queue := usecase.NewAudioQueue(player, eventSink, logger)
	transcript := usecase.NewTranscript(cfg.Transcript.Limit)
	connection := usecase.NewConnectionManager(
		wordly.NewDialer(wordly.Config{
			Endpoint:         cfg.Service.Endpoint,
			HandshakeTimeout: cfg.Service.DialTimeout,
		}),
		queue,
		transcript,
		terms,
		eventSink,
		logger,
		usecase.ConnectionConfig{
			ReconnectInterval: cfg.Service.ReconnectInterval,
			VoiceSettleDelay:  cfg.Service.VoiceSettleDelay,
			DefaultLanguage:   cfg.Service.Language,
		},
	)

	services.Connection = connection
	services.Audio = queue
	services.Transcript = transcript
	services.Header = usecase.NewHeaderCollapser(cfg.Transcript.HeaderCollapseDelay, eventSink)
	services.Glossary = terms
	services.Preferences = prefs
	wakeLock := wakelock.New(nil)
	services.WakeLock = wakeLock
	services.closers = append(services.closers, wakeLock)
	if cfg.Remote.Addr != "" {
		services.Remote = remote.NewServer(cfg.Remote.Addr, connection, transcript, logger)
	}
	return services, nil
}

func newPlayer(cfg config.AudioConfig) ports.Player {
	if cfg.Player == config.PlayerCommand {
		return audio.NewCommandPlayer(cfg.PlayerCommand)
	}
	return audio.NewPortAudioPlayer()
}

// Close releases device, bus and log file handles in reverse order of creation.
func (s Services) Close() error {
	if s.Header != nil {
		s.Header.Stop()
	}
	if s.Audio != nil {
		s.Audio.Stop()
	}
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
