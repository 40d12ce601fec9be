package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/koala/pkg/audio/level"
	"github.com/xaionaro-go/koala/pkg/audio/wav"
	"github.com/xaionaro-go/koala/pkg/config"
	"github.com/xaionaro-go/koala/pkg/delaycheck"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/koala/pkg/noisesuppression/implementations/koala"
	"github.com/xaionaro-go/koala/pkg/noisesuppressionstream"
	"github.com/xaionaro-go/observability"
)

const (
	progressInterval = 100 * time.Millisecond

	// the delay check does not need the whole file
	maxDelayCheckDuration = 10 * time.Second
)

func main() {
	flags := config.NewFlags(pflag.CommandLine)
	flags.String("input-path", "path to the .wav (or .ogg) file with the audio to be enhanced", func(c *config.Config) *string { return &c.File.InputPath })
	flags.String("output-path", "path to the .wav file where the enhanced audio will be stored", func(c *config.Config) *string { return &c.File.OutputPath })
	flags.Bool("check-delay", "measure the actual delay of the engine and compare it to the reported one", func(c *config.Config) *bool { return &c.File.CheckDelay })
	flags.String("delay-syncer", fmt.Sprintf("shift estimator used by --check-delay (one of %v)", delaycheck.Syncers()), func(c *config.Config) *string { return &c.File.DelaySyncer })
	flags.String("net-pprof-listen-addr", "an address to listen for incoming net/pprof connections", func(c *config.Config) *string { return &c.NetPprofListenAddr })
	showInferenceDevices := pflag.Bool("show-inference-devices", false, "list the available inference devices and exit")
	pflag.Parse()

	cfg, err := flags.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	loggerLevel, _ := cfg.LoggerLevel()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	if cfg.NetPprofListenAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(cfg.NetPprofListenAddr, nil)) })
	}

	opts, err := koala.Options{
		AccessKey:   cfg.Engine.AccessKey,
		ModelPath:   cfg.Engine.ModelPath,
		LibraryPath: cfg.Engine.LibraryPath,
		Device:      cfg.Engine.Device,
		Root:        cfg.Engine.Root,
	}.WithDefaults()
	assertNoError(ctx, err)

	if *showInferenceDevices {
		devices, err := koala.ListHardwareDevices(ctx, opts.LibraryPath)
		assertNoError(ctx, err)
		for _, device := range devices {
			fmt.Println(device)
		}
		return
	}

	if cfg.File.InputPath == "" || cfg.File.OutputPath == "" {
		fatal(ctx, fmt.Errorf("--input-path and --output-path are required"))
	}

	err = run(ctx, cfg, opts)
	switch {
	case err == nil:
	case errors.Is(err, noisesuppression.ErrActivationLimitReached):
		fmt.Println("AccessKey has reached its processing limit")
	default:
		assertNoError(ctx, err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts koala.Options) (_err error) {
	engine, err := koala.Create(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the engine: %v", err)
		}
	}()
	fmt.Printf("Koala version: %s\n", engine.Version())

	in, err := openInput(cfg.File.InputPath, engine.SampleRate())
	if err != nil {
		return err
	}
	defer in.Close()

	output, err := wav.Create(cfg.File.OutputPath, engine.SampleRate())
	if err != nil {
		return err
	}
	defer func() {
		if err := output.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to finalize '%s': %w", cfg.File.OutputPath, err)
		}
	}()

	fmt.Println("Processing audio...")
	timed := &timedEngine{NoiseSuppression: engine}
	progressCtx, stopProgress := context.WithCancel(ctx)
	progressDone := make(chan struct{})
	observability.Go(progressCtx, func() {
		defer close(progressDone)
		t := time.NewTicker(progressInterval)
		defer t.Stop()
		for {
			select {
			case <-progressCtx.Done():
				return
			case <-t.C:
				fmt.Printf("\r%s", level.ProgressBar(in.total, min(timed.Samples.Load(), in.total)))
			}
		}
	})

	err = enhance(ctx, in, timed, output)
	stopProgress()
	<-progressDone
	if err != nil {
		fmt.Println()
		return fmt.Errorf("unable to enhance the audio: %w", err)
	}
	fmt.Printf("\r%s\n", level.ProgressBar(in.total, in.total))
	fmt.Printf("Real time factor : %.3f\n", timed.RealTimeFactor(uint64(engine.SampleRate())))

	if cfg.File.CheckDelay {
		samples, err := in.head(int(maxDelayCheckDuration.Seconds() * float64(engine.SampleRate())))
		if err != nil {
			return fmt.Errorf("unable to read the input for the delay check: %w", err)
		}
		if err := checkDelay(ctx, engine, cfg.File.DelaySyncer, samples); err != nil {
			return err
		}
	}
	return nil
}

// enhance writes the enhanced input to the output. Decoded inputs are
// processed at once, WAV inputs are streamed from disk.
func enhance(
	ctx context.Context,
	in *input,
	engine noisesuppression.NoiseSuppression,
	output *wav.Writer,
) error {
	if in.samples != nil {
		enhanced, err := noisesuppression.NewStreamingBlockTransformer(engine).ProcessComplete(ctx, in.samples)
		if err != nil {
			return err
		}
		return output.WriteSamples(enhanced)
	}

	stream, err := noisesuppressionstream.NewNoiseSuppressionStream(ctx, in.pcm, engine, 0)
	if err != nil {
		return fmt.Errorf("unable to start processing: %w", err)
	}
	defer stream.Close()
	_, err = io.Copy(output, stream)
	return err
}

func checkDelay(ctx context.Context, engine *koala.Koala, syncerName string, samples []int16) error {
	s, err := delaycheck.NewSyncer(syncerName, engine.SampleRate())
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := delaycheck.Measure(ctx, engine, s, samples)
	if err != nil {
		return fmt.Errorf("unable to check the delay: %w", err)
	}
	fmt.Println(result)
	if result.Mismatch() > 1 {
		logger.Warnf(ctx, "the measured delay differs from the reported one by %.1f samples", result.Mismatch())
	}
	return nil
}

func assertNoError(ctx context.Context, err error) {
	if err != nil {
		fatal(ctx, err)
	}
}

func fatal(ctx context.Context, err error) {
	logger.Errorf(ctx, "%v", err)
	belt.Flush(ctx)
	os.Exit(1)
}
