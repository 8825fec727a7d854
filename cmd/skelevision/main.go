package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/heyjunin/skelevision/pkg/errors"
	"github.com/heyjunin/skelevision/pkg/logger"
	"github.com/heyjunin/skelevision/pkg/processor"
	"github.com/heyjunin/skelevision/pkg/progress"
	"github.com/spf13/cobra"
)

var (
	tempDir       string
	outputDir     string
	ffmpegBinary  string
	workerCommand []string
	overwrite     bool
	logLevel      string
)

func main() {
	logger.Init()

	rootCmd := &cobra.Command{
		Use:   "skelevision <url> <video-id>",
		Short: "skelevision - render a video's human pose skeleton over its audio",
		Long: `skelevision downloads a single online video, runs pose detection over
every frame, draws the detected skeleton on a black background, and muxes the
rendered frames with the original audio into one output file.`,
		Args: cobra.ExactArgs(2),
		Run:  runProcessor,
	}

	rootCmd.Flags().StringVar(&tempDir, "temp-dir", "temp", "Directory for the temporary input file")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", filepath.Join("public", "processed"), "Directory for the final output file")
	rootCmd.Flags().StringVar(&ffmpegBinary, "ffmpeg", "ffmpeg", "Path to ffmpeg binary")
	rootCmd.Flags().StringArrayVar(&workerCommand, "pose-worker", []string{"python3", "scripts/pose_worker.py"}, "Pose worker command and arguments")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Reprocess even if the output file exists")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runProcessor(cmd *cobra.Command, args []string) {
	logger.SetLevel(logLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-signalChan
		logger.Info("Received signal, shutting down", "main", map[string]interface{}{
			"signal": sig.String(),
		})
		cancel()
	}()

	progressReporter := progress.NewReporter(
		progress.WithDescription("Processing frames..."),
	)

	options := processor.Options{
		URL:           args[0],
		VideoID:       args[1],
		TempDir:       tempDir,
		OutputDir:     outputDir,
		WorkerCommand: workerCommand,
		FFmpegBinary:  ffmpegBinary,
		Overwrite:     overwrite,
	}

	proc, err := processor.New(options, progressReporter)
	if err != nil {
		logger.Fatal("Failed to create processor", "main", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	logger.Info("Starting processing", "main", map[string]interface{}{
		"url":      options.URL,
		"video_id": options.VideoID,
	})

	outputPath, err := proc.Process(ctx)
	if err != nil {
		message := "Processing failed"
		if errors.Is(err, errors.AcquisitionError) {
			message = "Video acquisition failed, nothing was processed"
		}
		logger.Fatal(message, "main", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	absPath, _ := filepath.Abs(outputPath)
	logger.Info("Processing completed successfully", "main", map[string]interface{}{
		"output_path": absPath,
	})
}
