// Command playcdda plays audio CDs straight from the drive.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rabidaudio/playcdda/config"
	"github.com/rabidaudio/playcdda/drive"
	"github.com/rabidaudio/playcdda/logging"
	"github.com/rabidaudio/playcdda/metrics"
	"github.com/rabidaudio/playcdda/output"
	"github.com/rabidaudio/playcdda/player"
	"github.com/rabidaudio/playcdda/scsi"
)

var (
	logger zerolog.Logger
	cfg    config.Config

	configPath  string
	flagDevice  string
	flagBackend string
	flagOutput  string
	flagLevel   string
	flagImages  []string
)

var rootCmd = &cobra.Command{
	Use:               "playcdda",
	Short:             "Play audio CDs straight from the drive",
	Long:              "playcdda streams CD audio from an optical drive to the sound card without ripping it first.",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVarP(&flagDevice, "device", "d", "", "drive device node (default: first drive found)")
	f.StringVar(&flagBackend, "backend", "", "drive backend: sgio, paranoia or image")
	f.StringSliceVar(&flagImages, "image", nil, "WAV files served as a disc by the image backend")
	f.StringVarP(&flagOutput, "output", "o", "", "audio output: speaker, oto or null")
	f.StringVar(&flagLevel, "log-level", "", "log level")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("device") {
		cfg.Device = flagDevice
	}
	if flags.Changed("backend") {
		cfg.Backend = flagBackend
	}
	if flags.Changed("image") {
		cfg.Image = flagImages
		if !flags.Changed("backend") {
			cfg.Backend = drive.BackendImage
		}
	}
	if flags.Changed("output") {
		cfg.Output = flagOutput
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = flagLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err = logging.Setup(cfg.LogLevel, cfg.LogConsole)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// openDrive opens the configured drive, or the default one.
func openDrive() (drive.Device, error) {
	var desc drive.Descriptor
	switch {
	case cfg.Backend == drive.BackendImage:
		desc = drive.Descriptor{Name: "image"}
	case cfg.Device != "":
		desc = drive.Descriptor{Name: filepath.Base(cfg.Device), Path: cfg.Device}
	default:
		list, err := drive.List()
		if err != nil {
			return nil, err
		}
		desc, err = drive.Default(list)
		if err != nil {
			return nil, err
		}
	}
	dev, err := drive.Open(desc, cfg.Backend, cfg.Image)
	if err != nil {
		return nil, err
	}
	logger.Debug().Stringer("drive", desc).Str("backend", cfg.Backend).Msg("opened drive")
	return dev, nil
}

// session is an open drive with a started player and, if configured, a
// metrics endpoint.
type session struct {
	dev    drive.Device
	player *player.Player
	srv    *http.Server
}

func openSession(onStatus func(player.Status)) (*session, error) {
	readCmd, err := scsi.ParseReadCommand(cfg.ReadCommand)
	if err != nil {
		return nil, err
	}
	out, err := output.New(cfg.Output)
	if err != nil {
		return nil, err
	}
	dev, err := openDrive()
	if err != nil {
		return nil, err
	}

	s := &session{dev: dev}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		s.srv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
			if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	}

	s.player = player.New(player.Config{
		Drive:       dev,
		Output:      out,
		ReadCommand: readCmd,
		AbortOnStop: cfg.AbortOnStop,
		Logger:      logger,
		Metrics:     m,
		OnStatus:    onStatus,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.player.LoadTOC(ctx); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.player.SetVolume(cfg.Volume); err != nil {
		s.Close()
		return nil, err
	}
	if err := s.player.Start(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	var errs []error
	if s.player != nil {
		errs = append(errs, s.player.Close())
	}
	if s.srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("metrics shutdown failed")
		}
	}
	errs = append(errs, s.dev.Close())
	return errors.Join(errs...)
}
