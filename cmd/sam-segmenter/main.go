// Sam-segmenter is a desktop tool for interactive image and video
// segmentation backed by a remote SAM inference server.
//
// Usage:
//
//	sam-segmenter [flags]
//	sam-segmenter config init
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"github.com/spf13/cobra"

	"sam-segmenter/internal/app"
	"sam-segmenter/internal/config"
	"sam-segmenter/internal/gui"
	"sam-segmenter/internal/gui/texture"
	"sam-segmenter/internal/imaging"
	"sam-segmenter/internal/logger"
	"sam-segmenter/internal/opencv"
	"sam-segmenter/internal/predictor/remote"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var (
	configPath string
	serverURL  string
	device     string
	mode       string
	logLevel   string
	jsonLogs   bool
	noOpenCV   bool
)

var rootCmd = &cobra.Command{
	Use:   "sam-segmenter",
	Short: "Interactive SAM segmentation for images and frame sequences",
	Long: `Click a point on an image to segment it with a SAM model served by a
remote inference server. Directories of frames are tracked from a prompt on
the first frame and the resulting masks can be exported as PNG files.

Settings are read from the configuration file, then SAM_SEGMENTER_*
environment variables, then command-line flags.`,
	Example: `  # Discover the inference server over mDNS
  sam-segmenter

  # Connect to a known server in video mode
  sam-segmenter --server-url ws://10.0.0.5:8765/ws --mode video --device cpu`,
	Version:      app.AppVersion,
	SilenceUsage: true,
	RunE:         run,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		if err := config.Default().Save(path); err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to the YAML configuration file")

	rootCmd.Flags().StringVar(&serverURL, "server-url", "", `Inference server WebSocket URL, or "auto" for mDNS discovery`)
	rootCmd.Flags().StringVar(&device, "device", "", "Inference device (cpu, gpu)")
	rootCmd.Flags().StringVar(&mode, "mode", "", "Predictor mode (image, video)")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&jsonLogs, "json-logs", false, "Write logs as JSON")
	rootCmd.Flags().BoolVar(&noOpenCV, "no-opencv", false, "Decode images with the pure Go codecs instead of OpenCV")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("server-url") {
		cfg.ServerURL = serverURL
	}
	if flags.Changed("device") {
		cfg.Device = device
	}
	if flags.Changed("mode") {
		cfg.Mode = mode
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("json-logs") {
		cfg.JSONLogs = jsonLogs
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.JSONLogs)
	if err != nil {
		return err
	}
	log.Info("Main", "starting", map[string]interface{}{
		"version":    app.AppVersion,
		"go_version": runtime.Version(),
		"server_url": cfg.ServerURL,
	})

	client, err := app.ConnectPredictor(context.Background(), cfg, log)
	if err != nil {
		return err
	}

	var decoder imaging.Decoder = opencv.NewDecoder(log)
	if noOpenCV {
		decoder = imaging.FileDecoder{}
	}
	textures := texture.NewStore(texture.DefaultMaxSide)

	application, err := app.New(app.Options{
		Config:   cfg,
		Logger:   log,
		Loader:   remote.NewLoader(client),
		Renderer: textures,
		Decoder:  decoder,
		Client:   client,
	})
	if err != nil {
		client.Close()
		return err
	}

	fyneApp := fyneapp.NewWithID(app.AppID)
	window := fyneApp.NewWindow(app.AppName)
	window.Resize(fyne.NewSize(float32(cfg.WindowWidth), float32(cfg.WindowHeight)))

	manager := gui.NewManager(window, application, textures, cfg, log)
	window.SetContent(manager.GetMainContainer())

	quit := func() {
		manager.Shutdown()
		application.Shutdown()
		fyneApp.Quit()
	}
	application.Listen(func() {
		log.Info("Main", "signal received", nil)
		fyne.Do(quit)
	})
	window.SetCloseIntercept(quit)
	manager.OnQuit = quit

	manager.Start(cfg.FrameInterval())
	window.ShowAndRun()

	// ShowAndRun also returns when the driver stops on its own.
	manager.Shutdown()
	application.Shutdown()
	log.Info("Main", "terminated", nil)
	return nil
}
