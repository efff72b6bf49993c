package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/student/gameboy/jeebie"
	"github.com/student/gameboy/jeebie/backend"
	"github.com/student/gameboy/jeebie/backend/headless"
	"github.com/student/gameboy/jeebie/backend/sdl2"
	"github.com/student/gameboy/jeebie/backend/terminal"
	"github.com/student/gameboy/jeebie/input/action"
	"github.com/student/gameboy/jeebie/input/event"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A simple gameboy emulator"
	app.Usage = "jeebie [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.StringFlag{
			Name:  "mode",
			Usage: "Hardware model: auto, dmg or cgb (auto follows the cartridge header)",
			Value: "auto",
		},
		cli.StringFlag{
			Name:  "boot-rom",
			Usage: "Path to a boot ROM image (256 bytes DMG, 2304 bytes CGB)",
		},
		cli.StringFlag{
			Name:  "save-dir",
			Usage: "Directory for battery-backed save files",
			Value: "saves",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "sdl",
			Usage: "Use the SDL2 window backend instead of the terminal (requires an sdl2 build)",
		},
		cli.IntFlag{
			Name:  "scale",
			Usage: "Window scale factor for the SDL2 backend",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "log",
			Usage: "Write logs to this file instead of stderr",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func setupLogging(path string, headlessRun bool) error {
	var out io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		out = f
	} else if !headlessRun {
		// a terminal frontend owns the screen; logs go nowhere useful
		out = io.Discard
	}

	level := slog.LevelInfo
	if headlessRun {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})))
	return nil
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	headlessRun := c.Bool("headless")
	if err := setupLogging(c.String("log"), headlessRun); err != nil {
		return err
	}

	mode, err := jeebie.ParseMode(c.String("mode"))
	if err != nil {
		return err
	}

	rom, err := os.ReadFile(romPath)
	if err != nil {
		return fmt.Errorf("reading ROM: %w", err)
	}

	var bootROM []byte
	if path := c.String("boot-rom"); path != "" {
		bootROM, err = os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading boot ROM: %w", err)
		}
	}

	machine, err := jeebie.NewMachine(jeebie.Config{
		Mode:     mode,
		ROM:      rom,
		BootROM:  bootROM,
		Headless: headlessRun,
		SaveDir:  c.String("save-dir"),
	})
	if err != nil {
		return err
	}

	var b backend.Backend
	switch {
	case headlessRun:
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}
		snapshots, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return err
		}
		b = headless.New(frames, snapshots)
	case c.Bool("sdl"):
		b = sdl2.New()
	default:
		b = terminal.New()
	}

	if err := b.Init(backend.BackendConfig{
		Title: "Jeebie",
		Scale: c.Int("scale"),
		VSync: true,
		APU:   machine.APU(),
	}); err != nil {
		return err
	}
	defer b.Cleanup()

	return runLoop(machine, b)
}

// runLoop drives the machine one frame at a time, handing each finished
// frame to the backend and draining its input events back into the machine.
func runLoop(machine *jeebie.Machine, b backend.Backend) error {
	for {
		if err := machine.RunUntilFrame(); err != nil {
			return err
		}

		events, err := b.Update(machine.GetCurrentFrame())
		if err != nil {
			return err
		}

		for _, evt := range events {
			switch {
			case evt.Action == action.EmulatorQuit:
				slog.Info("Shutting down")
				return machine.Close()
			case evt.Action == action.EmulatorSnapshot && evt.Type == event.Press:
				saveSnapshot(machine)
			default:
				machine.HandleAction(evt.Action, evt.Type == event.Press)
			}
		}
	}
}

// saveSnapshot dumps the current frame's ASCII projection to the working
// directory, numbered by frame count.
func saveSnapshot(machine *jeebie.Machine) {
	name := fmt.Sprintf("snapshot_%d.txt", machine.FrameCount())
	if err := os.WriteFile(name, []byte(machine.GetCurrentFrame().ToASCII()), 0o644); err != nil {
		slog.Error("Failed to save snapshot", "error", err)
		return
	}
	slog.Info("Saved snapshot", "file", name)
}
