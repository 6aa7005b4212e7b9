package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rabidaudio/playcdda/cdda"
	"github.com/rabidaudio/playcdda/drive"
	"github.com/rabidaudio/playcdda/export"
	"github.com/rabidaudio/playcdda/panel"
	"github.com/rabidaudio/playcdda/panel/mock"
	"github.com/rabidaudio/playcdda/player"
	"github.com/rabidaudio/playcdda/scsi"
)

var (
	playAll    bool
	panelMock  bool
	exportName string
	exportSize int64
)

var drivesCmd = &cobra.Command{
	Use:   "drives",
	Short: "List optical drives",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := drive.List()
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return drive.ErrNoDrive
		}
		def, _ := drive.Default(list)
		for _, d := range list {
			mark := " "
			if d == def {
				mark = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mark, d)
		}
		return nil
	},
}

var tocCmd = &cobra.Command{
	Use:   "toc",
	Short: "Print the table of contents of the disc",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := openDrive()
		if err != nil {
			return err
		}
		defer dev.Close()
		toc, err := scsi.RequestTOC(cmd.Context(), dev)
		if err != nil {
			return err
		}
		return printTOC(cmd.OutOrStdout(), toc)
	},
}

func printTOC(w io.Writer, toc cdda.TOC) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TRACK\tTYPE\tSTART\tLENGTH")
	for _, t := range toc.Tracks {
		fmt.Fprintf(tw, "%02d\t%s\t%s\t%s\n", t.Number, t.Type, msf(t.Start), frames(t.Length()))
	}
	fmt.Fprintf(tw, "lead-out\t\t%s\t\n", msf(toc.LeadOut))
	return tw.Flush()
}

func msf(lba int) string {
	m, s, f := cdda.MSF(lba)
	return fmt.Sprintf("%02d:%02d.%02d", m, s, f)
}

// frames formats a sector count as a play time.
func frames(n int) string {
	return msf(n - cdda.PregapSectors)
}

var playCmd = &cobra.Command{
	Use:   "play [track]",
	Short: "Play a track",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runPlay,
}

func trackArg(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 || n > cdda.MaxTracks {
		return 0, fmt.Errorf("invalid track %q", args[0])
	}
	return n, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	n, err := trackArg(args)
	if err != nil {
		return err
	}
	wake := make(chan struct{}, 1)
	s, err := openSession(func(player.Status) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.player.Play(n); err != nil {
		return err
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-sigs:
			logger.Info().Msg("stopping")
			return nil
		case <-wake:
		case <-ticker.C:
		}
		st := s.player.Status()
		if st.State != player.Idle {
			continue
		}
		if st.Err != nil {
			return st.Err
		}
		if !playAll {
			return nil
		}
		err := s.player.Next()
		if errors.Is(err, player.ErrNoSuchTrack) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Drive the player from the front panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var p panel.Panel
		if panelMock || !cfg.Panel.Enabled {
			logger.Warn().Msg("front panel disabled, using an idle mock")
			p = mock.New()
		} else {
			sp, err := panel.Open(uint8(cfg.Panel.ChipSelect), cfg.Panel.SpeedHz)
			if err != nil {
				return fmt.Errorf("open panel: %w", err)
			}
			p = sp
		}
		defer p.Close()

		s, err := openSession(nil)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		logger.Info().Dur("interval", cfg.Panel.PollInterval).Msg("polling front panel")
		return panel.Poll(ctx, p, s.player, cfg.Panel.PollInterval, logger)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <image>",
	Short: "Write the audio tracks to a FAT32 disk image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		readCmd, err := scsi.ParseReadCommand(cfg.ReadCommand)
		if err != nil {
			return err
		}
		dev, err := openDrive()
		if err != nil {
			return err
		}
		defer dev.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		toc, err := scsi.RequestTOC(ctx, dev)
		if err != nil {
			return err
		}
		disc := cdda.Disc{Name: exportName, TOC: toc}
		size := exportSize
		if size == 0 {
			size = export.ImageSize(toc)
		}

		img, err := export.Create(args[0], size, exportName)
		if err != nil {
			return err
		}
		start := time.Now()
		if err := img.WriteDisc(ctx, dev, disc, readCmd); err != nil {
			img.Close()
			return err
		}
		logger.Info().Strs("files", img.Files()).Dur("took", time.Since(start)).Str("image", args[0]).Msg("exported disc")
		return img.Close()
	},
}

var ejectCmd = &cobra.Command{
	Use:   "eject",
	Short: "Open the drive tray",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dev, err := openDrive()
		if err != nil {
			return err
		}
		defer dev.Close()
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		return drive.Eject(ctx, dev)
	},
}

func init() {
	playCmd.Flags().BoolVarP(&playAll, "all", "a", false, "continue with the following tracks")
	panelCmd.Flags().BoolVar(&panelMock, "mock", false, "use a mock panel instead of SPI")
	exportCmd.Flags().StringVarP(&exportName, "name", "n", "", "disc name, used for the directory and volume label")
	exportCmd.Flags().Int64Var(&exportSize, "size", 0, "image size in bytes (default: fits the disc)")

	rootCmd.AddCommand(drivesCmd, tocCmd, playCmd, tuiCmd, panelCmd, exportCmd, ejectCmd)
}
