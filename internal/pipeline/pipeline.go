package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/voxnote/internal/metrics"
	"github.com/snarg/voxnote/internal/notify"
	"github.com/snarg/voxnote/internal/report"
	"github.com/snarg/voxnote/internal/sentiment"
	"github.com/snarg/voxnote/internal/storage"
	"github.com/snarg/voxnote/internal/synthesize"
	"github.com/snarg/voxnote/internal/transcribe"
)

// Fixed request parameters for both flows.
const (
	LanguageCode  = "en-US"
	audioChannels = 1
)

// Flow identifies which of the two pipelines ran.
type Flow string

const (
	FlowAudio Flow = "audio"
	FlowText  Flow = "text"
)

// State is a pipeline step. A run ends in Completed or one of the Failed states.
type State string

const (
	StateReceived         State = "received"
	StateValidated        State = "validated"
	StateStored           State = "stored"
	StateTranscribed      State = "transcribed"
	StateSynthesized      State = "synthesized"
	StateAnalyzed         State = "analyzed"
	StateReported         State = "reported"
	StateCompleted        State = "completed"
	StateFailedValidation State = "failed_validation"
	StateFailedUpstream   State = "failed_upstream"
	StateFailedStorage    State = "failed_storage"
)

// Result describes how far a run got. Filename is set once the artifact
// is durable, even when a later stage failed.
type Result struct {
	Flow       Flow
	State      State
	Bucket     storage.Bucket
	Filename   string
	Transcript string
	Sentiment  sentiment.Summary
}

// ReportName returns the report filename, or "" if no artifact was written.
func (r Result) ReportName() string {
	if r.Filename == "" {
		return ""
	}
	return storage.ReportName(r.Filename)
}

// AudioUpload is an inbound recording. Data is nil when no file part was sent.
type AudioUpload struct {
	Data     []byte
	Filename string
}

// Options wires an Orchestrator. Store, Transcriber, Synthesizer and Analyzer
// are required.
type Options struct {
	Store       storage.ArtifactStore
	Namer       *storage.Namer // defaults to a wall-clock Namer
	Transcriber transcribe.Transcriber
	Synthesizer synthesize.Synthesizer
	Analyzer    sentiment.Analyzer
	Publisher   notify.Publisher // defaults to notify.Nop

	// UpstreamTimeout bounds each capability call. 0 means no deadline
	// beyond the request context.
	UpstreamTimeout time.Duration

	Log zerolog.Logger
}

// Orchestrator runs the audio-in and text-in pipelines. It holds no
// per-request state; concurrent calls are independent.
type Orchestrator struct {
	store       storage.ArtifactStore
	namer       *storage.Namer
	transcriber transcribe.Transcriber
	synthesizer synthesize.Synthesizer
	analyzer    sentiment.Analyzer
	publisher   notify.Publisher
	timeout     time.Duration
	log         zerolog.Logger
}

func New(opts Options) *Orchestrator {
	if opts.Namer == nil {
		opts.Namer = storage.NewNamer(nil)
	}
	if opts.Publisher == nil {
		opts.Publisher = notify.Nop{}
	}
	return &Orchestrator{
		store:       opts.Store,
		namer:       opts.Namer,
		transcriber: opts.Transcriber,
		synthesizer: opts.Synthesizer,
		analyzer:    opts.Analyzer,
		publisher:   opts.Publisher,
		timeout:     opts.UpstreamTimeout,
		log:         opts.Log,
	}
}

// SeedNamer advances the Namer past every artifact already on disk.
func (o *Orchestrator) SeedNamer(ctx context.Context) error {
	for _, b := range storage.Buckets {
		names, err := o.store.List(ctx, b)
		if err != nil {
			return err
		}
		if len(names) > 0 {
			o.namer.Observe(b, names[0]) // newest first
		}
	}
	return nil
}

// ProcessAudio stores an uploaded recording, transcribes it, scores the
// transcript and writes the report next to the recording.
func (o *Orchestrator) ProcessAudio(ctx context.Context, in AudioUpload) (Result, error) {
	res := Result{Flow: FlowAudio, State: StateReceived, Bucket: storage.Recordings}

	if in.Data == nil {
		return o.finish(res, &ValidationError{Msg: "No audio data"})
	}
	if in.Filename == "" {
		return o.finish(res, &ValidationError{Msg: "No selected file"})
	}
	res.State = StateValidated

	name := o.namer.Assign(storage.Recordings)
	if err := o.store.Save(ctx, storage.Recordings, name, in.Data, storage.ContentType(name)); err != nil {
		return o.finish(res, &StorageError{Op: "save artifact", Name: name, Err: err})
	}
	metrics.ArtifactBytesTotal.WithLabelValues(string(storage.Recordings)).Add(float64(len(in.Data)))
	res.Filename = name
	res.State = StateStored

	var transcript string
	err := o.call(ctx, "transcribe", func(ctx context.Context) error {
		var err error
		transcript, err = o.transcriber.Recognize(ctx, in.Data, transcribe.RecognizeOpts{
			LanguageCode: LanguageCode,
			ChannelCount: audioChannels,
		})
		return err
	})
	if err != nil {
		return o.finish(res, &UpstreamError{Stage: "transcribe", Err: err})
	}
	res.Transcript = transcript
	res.State = StateTranscribed

	summary, err := o.analyze(ctx, transcript)
	if err != nil {
		return o.finish(res, err)
	}
	res.Sentiment = summary
	res.State = StateAnalyzed

	text := report.Format(report.Report{
		Origin:     report.AudioUpload,
		OriginRef:  name,
		Transcript: transcript,
		Sentiment:  summary,
	})
	if err := o.saveReport(ctx, storage.Recordings, name, text); err != nil {
		return o.finish(res, err)
	}
	res.State = StateReported

	return o.finish(res, nil)
}

// ProcessText synthesizes speech for text, stores the audio, scores the
// input text and writes the report next to the audio.
func (o *Orchestrator) ProcessText(ctx context.Context, text string) (Result, error) {
	res := Result{Flow: FlowText, State: StateReceived, Bucket: storage.Synthesized}

	if strings.TrimSpace(text) == "" {
		return o.finish(res, &ValidationError{Msg: "Text input is empty"})
	}
	res.Transcript = text
	res.State = StateValidated

	var audio []byte
	err := o.call(ctx, "synthesize", func(ctx context.Context) error {
		var err error
		audio, err = o.synthesizer.Synthesize(ctx, text, synthesize.SynthesizeOpts{
			LanguageCode: LanguageCode,
			VoiceGender:  synthesize.VoiceNeutral,
			Encoding:     synthesize.Linear16,
		})
		return err
	})
	if err != nil {
		return o.finish(res, &UpstreamError{Stage: "synthesize", Err: err})
	}
	res.State = StateSynthesized

	name := o.namer.Assign(storage.Synthesized)
	if err := o.store.Save(ctx, storage.Synthesized, name, audio, storage.ContentType(name)); err != nil {
		return o.finish(res, &StorageError{Op: "save artifact", Name: name, Err: err})
	}
	metrics.ArtifactBytesTotal.WithLabelValues(string(storage.Synthesized)).Add(float64(len(audio)))
	res.Filename = name
	res.State = StateStored

	summary, err := o.analyze(ctx, text)
	if err != nil {
		return o.finish(res, err)
	}
	res.Sentiment = summary
	res.State = StateAnalyzed

	body := report.Format(report.Report{
		Origin:     report.TextInput,
		OriginRef:  text,
		Transcript: text,
		Sentiment:  summary,
	})
	if err := o.saveReport(ctx, storage.Synthesized, name, body); err != nil {
		return o.finish(res, err)
	}
	res.State = StateReported

	return o.finish(res, nil)
}

func (o *Orchestrator) analyze(ctx context.Context, text string) (sentiment.Summary, error) {
	var score sentiment.Score
	err := o.call(ctx, "analyze", func(ctx context.Context) error {
		var err error
		score, err = o.analyzer.Analyze(ctx, text)
		return err
	})
	if err != nil {
		return sentiment.Summary{}, &UpstreamError{Stage: "analyze", Err: err}
	}
	return sentiment.Summarize(score), nil
}

func (o *Orchestrator) saveReport(ctx context.Context, bucket storage.Bucket, artifact, body string) error {
	name := storage.ReportName(artifact)
	if err := o.store.Save(ctx, bucket, name, []byte(body), storage.ContentType(name)); err != nil {
		return &StorageError{Op: "save report", Name: name, Err: err}
	}
	return nil
}

// call runs one upstream capability call under the configured deadline.
func (o *Orchestrator) call(ctx context.Context, capability string, fn func(context.Context) error) error {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	start := time.Now()
	err := fn(ctx)
	metrics.ObserveUpstream(capability, start, err)
	return err
}

// finish sets the terminal state, records the run and publishes on success.
func (o *Orchestrator) finish(res Result, err error) (Result, error) {
	log := o.log.With().
		Str("flow", string(res.Flow)).
		Str("bucket", string(res.Bucket)).
		Str("filename", res.Filename).
		Str("reached", string(res.State)).
		Logger()

	switch {
	case err == nil:
		res.State = StateCompleted
		log.Info().
			Str("label", string(res.Sentiment.Label)).
			Float64("score", res.Sentiment.Score).
			Float64("magnitude", res.Sentiment.Magnitude).
			Msg("pipeline completed")
		o.publish(res, log)
	case errors.Is(err, ErrValidation):
		res.State = StateFailedValidation
		log.Debug().Err(err).Msg("pipeline rejected input")
	case errors.Is(err, ErrUpstream):
		res.State = StateFailedUpstream
		log.Error().Err(err).Msg("pipeline upstream failure")
	default:
		res.State = StateFailedStorage
		log.Error().Err(err).Msg("pipeline storage failure")
	}

	metrics.PipelineRunsTotal.WithLabelValues(string(res.Flow), string(res.State)).Inc()
	return res, err
}

func (o *Orchestrator) publish(res Result, log zerolog.Logger) {
	ev := notify.NewEvent(string(res.Flow), string(res.Bucket), res.Filename, res.ReportName())
	ev.Label = string(res.Sentiment.Label)
	ev.Score = res.Sentiment.Score
	ev.Magnitude = res.Sentiment.Magnitude

	// Detached from the request: the run already succeeded.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.publisher.Publish(ctx, ev); err != nil {
		log.Warn().Err(err).Msg("event publish failed")
	}
}
