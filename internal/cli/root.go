package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fboucher/terminal-tools/internal/audio"
	"github.com/fboucher/terminal-tools/internal/clipboard"
	"github.com/fboucher/terminal-tools/internal/config"
	"github.com/fboucher/terminal-tools/internal/fetch"
	"github.com/fboucher/terminal-tools/internal/logging"
	"github.com/fboucher/terminal-tools/internal/speech"
	"github.com/fboucher/terminal-tools/internal/version"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spf13/cobra"
)

// resolvedAudio is the submit-ready form of the user's input. url is what goes
// on the wire; wavPath is set only when a local WAV exists for level analysis.
type resolvedAudio struct {
	url     string
	wavPath string
	cleanup func()
}

type appState struct {
	verbose    bool
	jsonLogs   bool
	noProgress bool

	file        string
	language    string
	translate   bool
	returnAudio bool

	endpoint   string
	timeout    time.Duration
	configFile string

	fetchRemote bool
	outputAudio string
	copyText    bool
	silenceGate bool
	silenceDBFS float64
	transcoder  string

	logger *zap.Logger
	out    io.Writer

	resolveFn    func(ctx context.Context, input string) (resolvedAudio, error)
	transcribeFn func(ctx context.Context, apiKey string, req speech.TranscriptionRequest) (*speech.TranscriptionResponse, error)
	copyFn       func(ctx context.Context, value string) error
	keyFn        func(logger *zap.Logger) (string, error)
}

func NewRootCmd() *cobra.Command {
	app := &appState{
		language:    speech.DefaultLanguage,
		endpoint:    speech.DefaultEndpoint,
		timeout:     speech.DefaultTimeout,
		silenceDBFS: -65,
		transcoder:  "auto",
		out:         os.Stdout,
	}
	app.resolveFn = app.resolveSource
	app.transcribeFn = app.transcribe
	app.copyFn = clipboard.CopyText
	app.keyFn = config.LoadAPIKey

	cmd := &cobra.Command{
		Use:           "vaani",
		Short:         "Transcribe and translate audio with the Vaani speech service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Resolve(),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := logging.New(logging.Options{Verbose: app.verbose, JSON: app.jsonLogs})
			if err != nil {
				return fmt.Errorf("initialize logger: %w", err)
			}
			app.logger = logger

			if err := app.applyConfig(cmd); err != nil {
				return err
			}
			app.language = speech.NormalizeLanguage(app.language)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.out = cmd.OutOrStdout()
			return app.runTranscription(cmd.Context())
		},
	}

	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	bindLoggingFlags(cmd, app)
	bindProgressFlag(cmd, app)
	bindRequestFlags(cmd, app)
	bindEndpointFlags(cmd, app)
	bindTranscoderFlag(cmd, app)
	bindSilenceFlags(cmd, app)
	cmd.Flags().BoolVar(&app.fetchRemote, "fetch", false, "Download remote URLs locally instead of passing them to the service")
	cmd.Flags().StringVarP(&app.outputAudio, "output-audio", "o", "", "Write translation audio to this file instead of stdout")
	cmd.Flags().BoolVar(&app.copyText, "copy", false, "Copy the transcript to the clipboard")

	_ = cmd.MarkFlagRequired("file")

	cmd.AddCommand(newLanguagesCmd())
	cmd.AddCommand(newAuthCmd(app))
	cmd.AddCommand(newConvertCmd(app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func bindLoggingFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.verbose, "verbose", app.verbose, "Enable verbose logs")
	cmd.Flags().BoolVar(&app.jsonLogs, "json", app.jsonLogs, "Enable JSON logging")
}

func bindProgressFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.noProgress, "no-progress", app.noProgress, "Disable progress indicators")
}

func bindRequestFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVarP(&app.file, "file", "f", app.file, "Audio file path, remote URL, or data URI to transcribe")
	cmd.Flags().StringVarP(&app.language, "language", "l", app.language, "Target language (run \"vaani languages\" to list)")
	cmd.Flags().BoolVarP(&app.translate, "translate", "t", app.translate, "Translate the transcript into the target language")
	cmd.Flags().BoolVarP(&app.returnAudio, "audio", "a", app.returnAudio, "Request spoken translation audio alongside the text")
}

func bindEndpointFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.endpoint, "endpoint", app.endpoint, "Transcription service endpoint")
	cmd.Flags().DurationVar(&app.timeout, "timeout", app.timeout, "Timeout for the transcription request")
	cmd.Flags().StringVar(&app.configFile, "config", app.configFile, "Config file (default: config.yaml in the vaani config dir)")
}

func bindTranscoderFlag(cmd *cobra.Command, app *appState) {
	cmd.Flags().StringVar(&app.transcoder, "transcoder", app.transcoder, "Audio transcoder: auto|ffmpeg|sox")
}

func bindSilenceFlags(cmd *cobra.Command, app *appState) {
	cmd.Flags().BoolVar(&app.silenceGate, "silence-gate", app.silenceGate, "Skip the service call when local audio is near-silent")
	cmd.Flags().Float64Var(&app.silenceDBFS, "silence-threshold-dbfs", app.silenceDBFS, "Silence gate threshold in dBFS")
}

// applyConfig merges file and environment configuration under explicit flags.
// A flag the user set on the command line always wins.
func (a *appState) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.Load(config.Options{ConfigFile: a.configFile})
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if !flags.Changed("language") {
		a.language = cfg.Language
	}
	if !flags.Changed("translate") {
		a.translate = cfg.Translate
	}
	if !flags.Changed("audio") {
		a.returnAudio = cfg.ReturnAudio
	}
	if !flags.Changed("endpoint") {
		a.endpoint = cfg.Endpoint
	}
	if !flags.Changed("timeout") {
		a.timeout = cfg.Timeout
	}
	if !flags.Changed("silence-gate") {
		a.silenceGate = cfg.SilenceGate
	}
	if !flags.Changed("silence-threshold-dbfs") {
		a.silenceDBFS = cfg.SilenceThresholdDBFS
	}
	if !flags.Changed("transcoder") {
		a.transcoder = cfg.Transcoder
	}
	return nil
}

func (a *appState) runTranscription(ctx context.Context) error {
	language, err := speech.ValidateLanguage(a.language)
	if err != nil {
		return err
	}

	keyFn := a.keyFn
	if keyFn == nil {
		keyFn = config.LoadAPIKey
	}
	apiKey, err := keyFn(a.log())
	if err != nil {
		return err
	}

	resolveFn := a.resolveFn
	if resolveFn == nil {
		resolveFn = a.resolveSource
	}
	resolved, err := resolveFn(ctx, a.file)
	if err != nil {
		return err
	}
	if resolved.cleanup != nil {
		defer resolved.cleanup()
	}

	if a.skipForSilence(resolved.wavPath) {
		return nil
	}

	transcribeFn := a.transcribeFn
	if transcribeFn == nil {
		transcribeFn = a.transcribe
	}

	req := speech.NewTranscriptionRequest(resolved.url, language, a.translate, a.returnAudio)

	a.log().Info("transcribing...",
		zap.String("language", language),
		zap.Bool("translate", a.translate),
		zap.Bool("return_audio", a.returnAudio),
	)
	stopSpinner := startSpinner(a.progressEnabled(), "Transcribing")
	started := time.Now()
	resp, err := transcribeFn(ctx, apiKey, req)
	stopSpinner()
	if err != nil {
		a.log().Warn("transcription failed", zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		return err
	}
	a.log().Info("transcription finished", zap.Duration("elapsed", time.Since(started)))

	return a.emitResult(ctx, resp)
}

// resolveSource turns the -f value into something the service accepts. Data
// URIs and remote URLs pass through unchanged; local files are normalized and
// inlined as data URIs.
func (a *appState) resolveSource(ctx context.Context, input string) (resolvedAudio, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return resolvedAudio{}, errors.New("audio file is required")
	}

	switch audio.ClassifySource(input) {
	case audio.SourceDataURI:
		a.log().Debug("submitting data URI unchanged")
		return resolvedAudio{url: input, cleanup: func() {}}, nil
	case audio.SourceRemoteURL:
		if !a.fetchRemote {
			a.log().Debug("passing remote URL to the service", zap.String("url", input))
			return resolvedAudio{url: input, cleanup: func() {}}, nil
		}
		return a.fetchAndPrepare(ctx, input)
	default:
		return a.prepareLocal(ctx, input, nil)
	}
}

func (a *appState) fetchAndPrepare(ctx context.Context, url string) (resolvedAudio, error) {
	path, err := fetch.Audio(ctx, fetch.Options{URL: url, NoProgress: a.noProgress, Logger: a.log()})
	if err != nil {
		return resolvedAudio{}, err
	}

	removeDownload := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			a.log().Warn("failed to remove downloaded audio", zap.String("path", path), zap.Error(err))
		}
	}

	resolved, err := a.prepareLocal(ctx, path, removeDownload)
	if err != nil {
		removeDownload()
		return resolvedAudio{}, err
	}
	return resolved, nil
}

func (a *appState) prepareLocal(ctx context.Context, path string, extraCleanup func()) (resolvedAudio, error) {
	source, err := audio.ResolveLocalFile(ctx, path, audio.ResolveOptions{
		Transcoder: a.transcoder,
		Logger:     a.log(),
	})
	if err != nil {
		if extraCleanup != nil {
			extraCleanup()
		}
		return resolvedAudio{}, err
	}

	cleanup := func() {
		source.Cleanup()
		if extraCleanup != nil {
			extraCleanup()
		}
	}

	return resolvedAudio{url: source.DataURI, wavPath: source.WAVPath, cleanup: cleanup}, nil
}

func (a *appState) transcribe(ctx context.Context, apiKey string, req speech.TranscriptionRequest) (*speech.TranscriptionResponse, error) {
	client, err := speech.NewClient(speech.ClientConfig{
		Endpoint: a.endpoint,
		APIKey:   apiKey,
		Timeout:  a.timeout,
		Logger:   a.log(),
	})
	if err != nil {
		return nil, err
	}
	return client.Transcribe(ctx, req)
}

func (a *appState) skipForSilence(wavPath string) bool {
	if !a.silenceGate || wavPath == "" {
		return false
	}

	report, err := audio.MeasureFileLevels(wavPath)
	if err != nil {
		a.log().Warn("silence gate analysis failed; submitting audio anyway", zap.Error(err), zap.String("audio", wavPath))
		return false
	}

	if !report.Silent(a.silenceDBFS) {
		return false
	}

	a.log().Info(
		"audio considered silent; skipping the transcription request",
		zap.String("audio", wavPath),
		zap.Float64("rms_dbfs", report.RMSdBFS),
		zap.Float64("peak_dbfs", report.PeakdBFS),
		zap.Float64("threshold_dbfs", a.silenceDBFS),
	)
	return true
}

func (a *appState) emitResult(ctx context.Context, resp *speech.TranscriptionResponse) error {
	text := strings.TrimSpace(resp.TranscriptText())

	// Audio fields count only when the caller asked for translation audio;
	// anything the service volunteers beyond that stays part of the raw payload.
	translationAudio := ""
	if a.returnAudio {
		translationAudio = resp.TranslationAudio()
	}

	switch {
	case text != "":
		fmt.Fprintln(a.outWriter(), text)
	case translationAudio == "":
		raw := strings.TrimSpace(string(resp.Raw()))
		if raw != "" {
			a.log().Warn("response carried no transcript field; printing raw payload")
			fmt.Fprintln(a.outWriter(), raw)
		}
	}

	if translationAudio != "" {
		if err := a.emitAudio(ctx, translationAudio); err != nil {
			return err
		}
	}

	if a.copyText && text != "" {
		a.copyTranscript(ctx, text)
	}

	return nil
}

func (a *appState) emitAudio(ctx context.Context, value string) error {
	if a.outputAudio == "" {
		fmt.Fprintln(a.outWriter(), value)
		return nil
	}
	return a.saveTranslationAudio(ctx, value, a.outputAudio)
}

func (a *appState) saveTranslationAudio(ctx context.Context, value, dest string) error {
	if audio.IsDataURI(value) {
		_, data, err := audio.DecodeDataURI(value)
		if err != nil {
			return fmt.Errorf("decode translation audio: %w", err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil {
			return fmt.Errorf("write translation audio: %w", err)
		}
	} else {
		if _, err := fetch.File(ctx, fetch.Options{
			URL:         value,
			Destination: dest,
			NoProgress:  a.noProgress,
			Logger:      a.log(),
		}); err != nil {
			return fmt.Errorf("download translation audio: %w", err)
		}
	}

	a.log().Info("translation audio saved", zap.String("path", dest))
	fmt.Fprintf(a.outWriter(), "Translation audio saved to %s\n", dest)
	return nil
}

// copyTranscript is best-effort; the transcript is already on stdout, so
// clipboard failures only warn.
func (a *appState) copyTranscript(ctx context.Context, text string) {
	copyFn := a.copyFn
	if copyFn == nil {
		copyFn = clipboard.CopyText
	}

	if err := copyFn(ctx, text); err != nil {
		if errors.Is(err, clipboard.ErrUnavailable) {
			a.log().Warn("clipboard tool unavailable; transcript left on stdout")
			return
		}
		a.log().Warn("failed to copy transcript to clipboard; transcript left on stdout", zap.Error(err))
		return
	}

	a.log().Info("transcript copied to clipboard")
}

func (a *appState) log() *zap.Logger {
	if a.logger == nil {
		return zap.NewNop()
	}
	return a.logger
}

func (a *appState) progressEnabled() bool {
	if a.noProgress {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func (a *appState) outWriter() io.Writer {
	if a.out == nil {
		return os.Stdout
	}
	return a.out
}
