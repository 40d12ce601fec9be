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
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/koala/pkg/audio"
	_ "github.com/xaionaro-go/koala/pkg/audio/backends/oto"
	"github.com/xaionaro-go/koala/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/koala/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/koala/pkg/audio/level"
	"github.com/xaionaro-go/koala/pkg/audio/wav"
	"github.com/xaionaro-go/koala/pkg/config"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
	"github.com/xaionaro-go/koala/pkg/noisesuppression/implementations/koala"
	"github.com/xaionaro-go/koala/pkg/syncerstream"
	syncerstreamgccphat "github.com/xaionaro-go/koala/pkg/syncerstream/implementations/gccphat"
	vadnoisesuppression "github.com/xaionaro-go/koala/pkg/vad/implementations/noisesuppression"
	"github.com/xaionaro-go/observability"
)

const (
	speechMarker = " speech"

	// shifts measured with a lower confidence are not reported
	minDelayConfidence = 0.3
)

func main() {
	flags := config.NewFlags(pflag.CommandLine)
	flags.String("output-path", "path to the .wav file where the enhanced recorded audio will be stored", func(c *config.Config) *string { return &c.Mic.OutputPath })
	flags.String("reference-output-path", "optional path to the .wav file where the original recorded audio will be stored", func(c *config.Config) *string { return &c.Mic.ReferenceOutputPath })
	flags.Int("audio-device-index", "index of the input audio device (-1 is the default device)", func(c *config.Config) *int { return &c.Mic.AudioDeviceIndex })
	flags.Bool("monitor", "play the enhanced audio back", func(c *config.Config) *bool { return &c.Mic.Monitor })
	flags.Bool("track-delay", "continuously measure the delay between the recorded and the enhanced audio (logged at the info level)", func(c *config.Config) *bool { return &c.Mic.TrackDelay })
	flags.String("net-pprof-listen-addr", "an address to listen for incoming net/pprof connections", func(c *config.Config) *string { return &c.NetPprofListenAddr })
	showAudioDevices := pflag.Bool("show-audio-devices", false, "list the available audio devices and exit")
	showInferenceDevices := pflag.Bool("show-inference-devices", false, "list the available inference devices and exit")
	speechThreshold := pflag.Float64("speech-threshold", 0.5, "level (0..1) of the enhanced audio above which the speech marker is shown")
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

	if cfg.NetPprofListenAddr != "" {
		observability.Go(ctx, func() { l.Error(http.ListenAndServe(cfg.NetPprofListenAddr, nil)) })
	}

	if *showAudioDevices {
		assertNoError(ctx, printAudioDevices(ctx))
		return
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

	assertNoError(ctx, checkWAVPath("--output-path", cfg.Mic.OutputPath, true))
	assertNoError(ctx, checkWAVPath("--reference-output-path", cfg.Mic.ReferenceOutputPath, false))

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	r := &recording{cfg: cfg, speechThreshold: *speechThreshold}
	err = r.run(ctx, opts)
	fmt.Println()
	if r.lengthSec > 0 {
		fmt.Printf("%.2f seconds of audio have been written to %s.\n", r.lengthSec, cfg.Mic.OutputPath)
		if cfg.Mic.ReferenceOutputPath != "" {
			fmt.Printf("Recorded reference has been written to %s.\n", cfg.Mic.ReferenceOutputPath)
		}
	}
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, noisesuppression.ErrActivationLimitReached):
		fmt.Println("AccessKey has reached its processing limit.")
	default:
		assertNoError(ctx, err)
	}
}

func checkWAVPath(flagName, path string, required bool) error {
	if path == "" {
		if required {
			return fmt.Errorf("missing required argument %s", flagName)
		}
		return nil
	}
	if strings.ToLower(filepath.Ext(path)) != ".wav" {
		return fmt.Errorf("given argument %s must have WAV file extension", flagName)
	}
	return nil
}

type recording struct {
	cfg             *config.Config
	speechThreshold float64
	lengthSec       float64
}

func (r *recording) run(ctx context.Context, opts koala.Options) (_err error) {
	engine, err := koala.Create(ctx, opts)
	if err != nil {
		return err
	}
	defer closeAndCollect(ctx, "the engine", engine, &_err)
	fmt.Printf("Koala version: %s\n", engine.Version())

	sampleRate := engine.SampleRate()
	frameLength := int(engine.FrameLength())
	encoding := audio.EncodingPCM{PCMFormat: audio.PCMFormatS16LE, SampleRate: sampleRate}

	voice, err := vadnoisesuppression.NewVAD(ctx, engine, encoding.SamplesDuration(uint64(frameLength)))
	if err != nil {
		return err
	}
	if voice.ChunkSamples != uint64(frameLength) {
		return fmt.Errorf("the voice detector analyzes chunks of %d samples instead of frames of %d", voice.ChunkSamples, frameLength)
	}

	output, err := wav.Create(r.cfg.Mic.OutputPath, sampleRate)
	if err != nil {
		return err
	}
	defer closeAndCollect(ctx, r.cfg.Mic.OutputPath, output, &_err)

	var reference *wav.Writer
	if r.cfg.Mic.ReferenceOutputPath != "" {
		reference, err = wav.Create(r.cfg.Mic.ReferenceOutputPath, sampleRate)
		if err != nil {
			return err
		}
		defer closeAndCollect(ctx, r.cfg.Mic.ReferenceOutputPath, reference, &_err)
	}

	var m *monitor
	if r.cfg.Mic.Monitor {
		m, err = newMonitor(ctx, sampleRate)
		if err != nil {
			return err
		}
		defer closeAndCollect(ctx, "the monitor", m, &_err)
	}

	var delayTracker syncerstream.SyncerStream
	if r.cfg.Mic.TrackDelay {
		delayTracker, err = (&syncerstreamgccphat.Factory{}).NewSyncer(encoding, 1)
		if err != nil {
			return err
		}
		defer closeAndCollect(ctx, "the delay tracker", delayTracker, &_err)
	}

	recorder, err := newRecorder(ctx, r.cfg.Mic.AudioDeviceIndex)
	if err != nil {
		return err
	}
	defer closeAndCollect(ctx, "the recorder", recorder, &_err)

	pipeReader, pipeWriter := io.Pipe()
	captured := datacounter.NewWriterCounter(pipeWriter)
	recordStream, err := recorder.RecordPCM(ctx, sampleRate, 1, audio.PCMFormatS16LE, captured)
	if err != nil {
		return fmt.Errorf("unable to start recording: %w", err)
	}
	defer closeAndCollect(ctx, "the record stream", recordStream, &_err)

	ctx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()
	observability.Go(ctx, func() {
		<-ctx.Done()
		pipeWriter.CloseWithError(ctx.Err())
	})
	defer func() { logger.Debugf(ctx, "captured %d bytes", captured.Count()) }()

	fmt.Println("Listening... (press Ctrl+C to stop)")
	startTS := time.Now()
	frameBytes := make([]byte, frameLength*2)
	frame := make([]int16, frameLength)
	for {
		if _, err := io.ReadFull(pipeReader, frameBytes); err != nil {
			return fmt.Errorf("unable to read the recorded audio: %w", err)
		}
		if err := audio.S16LEFromBytes(frame, frameBytes); err != nil {
			return err
		}
		if reference != nil {
			if err := reference.WriteSamples(frame); err != nil {
				return err
			}
		}

		speechLevel, _, err := voice.FindNextVoice(ctx, frame, r.speechThreshold, 0)
		if err != nil {
			return fmt.Errorf("unable to enhance the audio: %w", err)
		}
		enhanced := voice.Enhanced
		if err := output.WriteSamples(enhanced); err != nil {
			return err
		}
		r.lengthSec += float64(frameLength) / float64(sampleRate)

		if m != nil {
			m.Push(ctx, enhanced)
		}
		if delayTracker != nil {
			r.trackDelay(ctx, delayTracker, frameBytes, enhanced)
		}

		marker := strings.Repeat(" ", len(speechMarker))
		if speechLevel >= r.speechThreshold {
			marker = speechMarker
		}
		fmt.Printf("\r%s%s", level.VUBar(level.VU(frame)), marker)
		logger.Tracef(ctx, "processed %.2fs in %v", r.lengthSec, time.Since(startTS))
	}
}

func (r *recording) trackDelay(
	ctx context.Context,
	tracker syncerstream.SyncerStream,
	recorded []byte,
	enhanced []int16,
) {
	if err := tracker.PushReference(ctx, recorded); err != nil {
		logger.Errorf(ctx, "unable to track the delay: %v", err)
		return
	}
	results, err := tracker.PushComparison(ctx, 0, audio.S16LE(enhanced))
	if err != nil {
		logger.Errorf(ctx, "unable to track the delay: %v", err)
		return
	}
	for _, result := range results {
		if result.Confidence < minDelayConfidence {
			continue
		}
		logger.Infof(ctx, "measured delay at sample %d: %.1f samples (confidence %.2f)", result.SampleOffset, -result.Shift, result.Confidence)
	}
}

func newRecorder(ctx context.Context, deviceIndex int) (*audio.Recorder, error) {
	if deviceIndex == portaudio.DefaultDeviceIndex {
		return audio.NewRecorderAuto(ctx), nil
	}
	recorder, err := portaudio.NewRecorderPCM(deviceIndex)
	if err != nil {
		return nil, fmt.Errorf("unable to open audio device %d: %w", deviceIndex, err)
	}
	if err := recorder.Ping(ctx); err != nil {
		return nil, multierror.Append(fmt.Errorf("audio device %d is not usable: %w", deviceIndex, err), recorder.Close())
	}
	return audio.NewRecorder(recorder), nil
}

func closeAndCollect(ctx context.Context, what string, c io.Closer, errPtr *error) {
	err := c.Close()
	if err == nil {
		return
	}
	logger.Debugf(ctx, "unable to close %s: %v", what, err)
	if *errPtr == nil {
		*errPtr = fmt.Errorf("unable to close %s: %w", what, err)
	}
}

func assertNoError(ctx context.Context, err error) {
	if err != nil {
		logger.Errorf(ctx, "%v", err)
		belt.Flush(ctx)
		os.Exit(1)
	}
}
