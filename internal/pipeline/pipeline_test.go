package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/voxnote/internal/notify"
	"github.com/snarg/voxnote/internal/sentiment"
	"github.com/snarg/voxnote/internal/storage"
	"github.com/snarg/voxnote/internal/synthesize"
	"github.com/snarg/voxnote/internal/transcribe"
)

type fakeTranscriber struct {
	text string
	err  error

	mu   sync.Mutex
	got  []byte
	opts transcribe.RecognizeOpts
}

func (f *fakeTranscriber) Name() string { return "fake" }
func (f *fakeTranscriber) Recognize(ctx context.Context, audio []byte, opts transcribe.RecognizeOpts) (string, error) {
	f.mu.Lock()
	f.got, f.opts = audio, opts
	f.mu.Unlock()
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio []byte
	err   error
	opts  synthesize.SynthesizeOpts
	calls int
}

func (f *fakeSynthesizer) Name() string { return "fake" }
func (f *fakeSynthesizer) Synthesize(ctx context.Context, text string, opts synthesize.SynthesizeOpts) ([]byte, error) {
	f.calls++
	f.opts = opts
	return f.audio, f.err
}

type fakeAnalyzer struct {
	score sentiment.Score
	err   error
	got   string
}

func (f *fakeAnalyzer) Name() string { return "fake" }
func (f *fakeAnalyzer) Analyze(ctx context.Context, text string) (sentiment.Score, error) {
	f.got = text
	return f.score, f.err
}

// failingStore fails Save for names matching failOn.
type failingStore struct {
	storage.ArtifactStore
	failOn func(name string) bool
}

func (s failingStore) Save(ctx context.Context, b storage.Bucket, name string, data []byte, ct string) error {
	if s.failOn(name) {
		return errors.New("disk full")
	}
	return s.ArtifactStore.Save(ctx, b, name, data, ct)
}

// remoteCountingStore counts Open and Exists calls, which on a tiered store
// may reach the remote for names missing locally.
type remoteCountingStore struct {
	storage.ArtifactStore
	mu    sync.Mutex
	calls []string
}

func (s *remoteCountingStore) Open(ctx context.Context, b storage.Bucket, name string) (io.ReadCloser, error) {
	s.record(name)
	return s.ArtifactStore.Open(ctx, b, name)
}

func (s *remoteCountingStore) Exists(ctx context.Context, b storage.Bucket, name string) bool {
	s.record(name)
	return s.ArtifactStore.Exists(ctx, b, name)
}

func (s *remoteCountingStore) record(name string) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, ev notify.Event) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

type fixture struct {
	dir   string
	store storage.ArtifactStore
	stt   *fakeTranscriber
	tts   *fakeSynthesizer
	nlp   *fakeAnalyzer
	pub   *recordingPublisher
	clock time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		dir:   dir,
		store: store,
		stt:   &fakeTranscriber{text: "the service is great"},
		tts:   &fakeSynthesizer{audio: []byte("RIFFfakewav")},
		nlp:   &fakeAnalyzer{score: sentiment.Score{Score: 0.6, Magnitude: 0.6}},
		pub:   &recordingPublisher{},
		clock: time.Date(2026, 10, 14, 15, 45, 1, 0, time.UTC),
	}
}

func (f *fixture) orchestrator() *Orchestrator {
	return New(Options{
		Store:       f.store,
		Namer:       storage.NewNamer(func() time.Time { return f.clock }),
		Transcriber: f.stt,
		Synthesizer: f.tts,
		Analyzer:    f.nlp,
		Publisher:   f.pub,
		Log:         zerolog.Nop(),
	})
}

// files returns the sorted entries of a bucket directory.
func (f *fixture) files(t *testing.T, b storage.Bucket) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.dir, string(b)))
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func (f *fixture) read(t *testing.T, b storage.Bucket, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.dir, string(b), name))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func wantFiles(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
}

func TestProcessAudio(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()
	audio := []byte("RIFF....WAVEfmt ")

	res, err := o.ProcessAudio(context.Background(), AudioUpload{Data: audio, Filename: "blob"})
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}

	if res.State != StateCompleted {
		t.Errorf("state = %s", res.State)
	}
	if res.Bucket != storage.Recordings {
		t.Errorf("bucket = %s", res.Bucket)
	}
	if res.Filename != "20261014-154501PM.wav" {
		t.Errorf("filename = %q", res.Filename)
	}
	if res.Transcript != "the service is great" {
		t.Errorf("transcript = %q", res.Transcript)
	}
	if res.Sentiment.Label != sentiment.Positive {
		t.Errorf("label = %s", res.Sentiment.Label)
	}

	if string(f.stt.got) != string(audio) {
		t.Error("transcriber did not receive the uploaded bytes")
	}
	if f.stt.opts != (transcribe.RecognizeOpts{LanguageCode: "en-US", ChannelCount: 1}) {
		t.Errorf("recognize opts = %+v", f.stt.opts)
	}
	if f.nlp.got != "the service is great" {
		t.Errorf("analyzer got %q", f.nlp.got)
	}

	wantFiles(t, f.files(t, storage.Recordings), "20261014-154501PM.wav", "20261014-154501PM.wav.txt")
	if f.read(t, storage.Recordings, res.Filename) != string(audio) {
		t.Error("stored artifact differs from upload")
	}
	wantReport := "Original Audio File: 20261014-154501PM.wav\n\nTranscript:\nthe service is great\n\nSentiment: Positive\nScore: 0.6\nMagnitude: 0.6"
	if got := f.read(t, storage.Recordings, res.ReportName()); got != wantReport {
		t.Errorf("report =\n%s\nwant\n%s", got, wantReport)
	}

	if len(f.pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(f.pub.events))
	}
	ev := f.pub.events[0]
	if ev.Flow != "audio" || ev.Filename != res.Filename || ev.Label != "Positive" {
		t.Errorf("event = %+v", ev)
	}
}

func TestProcessAudio_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   AudioUpload
		msg  string
	}{
		{"no_file_part", AudioUpload{Filename: "x"}, "No audio data"},
		{"empty_filename", AudioUpload{Data: []byte("abc")}, "No selected file"},
		{"empty_part_no_filename", AudioUpload{Data: []byte{}}, "No selected file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			res, err := f.orchestrator().ProcessAudio(context.Background(), tt.in)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tt.msg {
				t.Errorf("message = %q, want %q", err.Error(), tt.msg)
			}
			if res.State != StateFailedValidation {
				t.Errorf("state = %s", res.State)
			}
			wantFiles(t, f.files(t, storage.Recordings))
			if f.stt.got != nil {
				t.Error("transcriber should not run")
			}
			if len(f.pub.events) != 0 {
				t.Error("no event expected")
			}
		})
	}
}

func TestProcessAudio_EmptyPayloadAccepted(t *testing.T) {
	f := newFixture(t)
	f.stt.text = ""
	f.nlp.score = sentiment.Score{}

	res, err := f.orchestrator().ProcessAudio(context.Background(), AudioUpload{Data: []byte{}, Filename: "blob"})
	if err != nil {
		t.Fatalf("ProcessAudio: %v", err)
	}
	if res.Sentiment.Label != sentiment.Neutral {
		t.Errorf("label = %s", res.Sentiment.Label)
	}
	if got := f.read(t, storage.Recordings, res.ReportName()); !strings.Contains(got, "Transcript:\n\n\nSentiment: Neutral") {
		t.Errorf("report = %q", got)
	}
}

func TestProcessAudio_TranscribeFailureKeepsAudio(t *testing.T) {
	f := newFixture(t)
	f.stt.err = errors.New("503 from upstream")

	res, err := f.orchestrator().ProcessAudio(context.Background(), AudioUpload{Data: []byte("wav"), Filename: "blob"})
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Stage != "transcribe" {
		t.Errorf("error = %#v", err)
	}
	if res.State != StateFailedUpstream {
		t.Errorf("state = %s", res.State)
	}
	wantFiles(t, f.files(t, storage.Recordings), res.Filename)
	if len(f.pub.events) != 0 {
		t.Error("no event expected")
	}
}

func TestProcessAudio_AnalyzeFailure(t *testing.T) {
	f := newFixture(t)
	f.nlp.err = errors.New("quota")

	res, err := f.orchestrator().ProcessAudio(context.Background(), AudioUpload{Data: []byte("wav"), Filename: "blob"})
	var ue *UpstreamError
	if !errors.As(err, &ue) || ue.Stage != "analyze" {
		t.Fatalf("error = %v", err)
	}
	if res.Transcript != "the service is great" {
		t.Errorf("transcript = %q", res.Transcript)
	}
	wantFiles(t, f.files(t, storage.Recordings), res.Filename)
}

func TestProcessAudio_StorageFailures(t *testing.T) {
	t.Run("artifact", func(t *testing.T) {
		f := newFixture(t)
		f.store = failingStore{ArtifactStore: f.store, failOn: func(string) bool { return true }}

		res, err := f.orchestrator().ProcessAudio(context.Background(), AudioUpload{Data: []byte("wav"), Filename: "blob"})
		if !errors.Is(err, ErrStorage) {
			t.Fatalf("expected storage error, got %v", err)
		}
		if res.State != StateFailedStorage || res.Filename != "" {
			t.Errorf("result = %+v", res)
		}
		if f.stt.got != nil {
			t.Error("transcriber must not run without a stored artifact")
		}
	})
	t.Run("report", func(t *testing.T) {
		f := newFixture(t)
		f.store = failingStore{ArtifactStore: f.store, failOn: func(n string) bool { return filepath.Ext(n) == ".txt" }}

		res, err := f.orchestrator().ProcessAudio(context.Background(), AudioUpload{Data: []byte("wav"), Filename: "blob"})
		var se *StorageError
		if !errors.As(err, &se) || se.Op != "save report" {
			t.Fatalf("error = %v", err)
		}
		if res.State != StateFailedStorage {
			t.Errorf("state = %s", res.State)
		}
		wantFiles(t, f.files(t, storage.Recordings), res.Filename)
	})
}

func TestProcessText(t *testing.T) {
	f := newFixture(t)
	f.nlp.score = sentiment.Score{Score: 0.1, Magnitude: 0.1}

	res, err := f.orchestrator().ProcessText(context.Background(), "hello there")
	if err != nil {
		t.Fatalf("ProcessText: %v", err)
	}
	if res.State != StateCompleted || res.Bucket != storage.Synthesized {
		t.Errorf("result = %+v", res)
	}
	if f.nlp.got != "hello there" {
		t.Errorf("analyzer got %q", f.nlp.got)
	}
	wantOpts := synthesize.SynthesizeOpts{
		LanguageCode: "en-US",
		VoiceGender:  synthesize.VoiceNeutral,
		Encoding:     synthesize.Linear16,
	}
	if f.tts.opts != wantOpts {
		t.Errorf("synthesize opts = %+v", f.tts.opts)
	}

	if got := f.read(t, storage.Synthesized, res.Filename); got != "RIFFfakewav" {
		t.Errorf("audio = %q", got)
	}
	wantReport := "Original TTS Input:\nhello there\n\nSentiment: Neutral\nScore: 0.1\nMagnitude: 0.1"
	if got := f.read(t, storage.Synthesized, res.ReportName()); got != wantReport {
		t.Errorf("report =\n%s\nwant\n%s", got, wantReport)
	}
	wantFiles(t, f.files(t, storage.Recordings))
}

func TestProcessText_Blank(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		f := newFixture(t)
		res, err := f.orchestrator().ProcessText(context.Background(), text)
		if !errors.Is(err, ErrValidation) || err.Error() != "Text input is empty" {
			t.Fatalf("ProcessText(%q) error = %v", text, err)
		}
		if res.State != StateFailedValidation {
			t.Errorf("state = %s", res.State)
		}
		if f.tts.calls != 0 {
			t.Error("synthesizer should not run")
		}
		wantFiles(t, f.files(t, storage.Synthesized))
	}
}

func TestProcessText_SynthesizeFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.tts.err = errors.New("unavailable")

	res, err := f.orchestrator().ProcessText(context.Background(), "hello")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if res.State != StateFailedUpstream {
		t.Errorf("state = %s", res.State)
	}
	wantFiles(t, f.files(t, storage.Synthesized))
}

func TestLabelThresholds(t *testing.T) {
	tests := []struct {
		score float64
		want  sentiment.Label
	}{
		{0.9, sentiment.Positive},
		{0.21, sentiment.Positive},
		{0.2, sentiment.Neutral},
		{0, sentiment.Neutral},
		{-0.2, sentiment.Neutral},
		{-0.21, sentiment.Negative},
		{-1, sentiment.Negative},
	}
	for _, tt := range tests {
		f := newFixture(t)
		f.nlp.score = sentiment.Score{Score: tt.score}
		res, err := f.orchestrator().ProcessText(context.Background(), "some words")
		if err != nil {
			t.Fatal(err)
		}
		if res.Sentiment.Label != tt.want {
			t.Errorf("score %v: label = %s, want %s", tt.score, res.Sentiment.Label, tt.want)
		}
	}
}

type blockingTranscriber struct{}

func (blockingTranscriber) Name() string { return "blocking" }
func (blockingTranscriber) Recognize(ctx context.Context, _ []byte, _ transcribe.RecognizeOpts) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestUpstreamTimeout(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()
	o.timeout = 10 * time.Millisecond
	o.transcriber = blockingTranscriber{}

	_, err := o.ProcessAudio(context.Background(), AudioUpload{Data: []byte("wav"), Filename: "blob"})
	if !errors.Is(err, ErrUpstream) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want upstream deadline", err)
	}
}

func TestNamesUniqueWithinSecond(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		res, err := o.ProcessAudio(context.Background(), AudioUpload{Data: []byte{byte(i)}, Filename: "blob"})
		if err != nil {
			t.Fatal(err)
		}
		if seen[res.Filename] {
			t.Errorf("duplicate name %s", res.Filename)
		}
		seen[res.Filename] = true
	}
	if n := len(f.files(t, storage.Recordings)); n != 6 {
		t.Errorf("recordings has %d files, want 6", n)
	}
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator()
	ctx := context.Background()

	first, err := o.ProcessAudio(ctx, AudioUpload{Data: []byte("a"), Filename: "blob"})
	if err != nil {
		t.Fatal(err)
	}
	f.clock = f.clock.Add(time.Hour)
	f.stt.err = errors.New("down")
	orphan, _ := o.ProcessAudio(ctx, AudioUpload{Data: []byte("b"), Filename: "blob"})
	if _, err := o.ProcessText(ctx, "hi"); err != nil {
		t.Fatal(err)
	}

	l, err := o.Listing(ctx)
	if err != nil {
		t.Fatal(err)
	}
	wantRec := []Entry{
		{Name: orphan.Filename},
		{Name: first.Filename, HasReport: true, Label: sentiment.Positive},
	}
	if !reflect.DeepEqual(l.Recordings, wantRec) {
		t.Errorf("recordings = %+v, want %+v", l.Recordings, wantRec)
	}
	if len(l.Synthesized) != 1 {
		t.Errorf("synthesized = %+v", l.Synthesized)
	}

	again, err := o.Listing(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, again) {
		t.Error("listing is not idempotent")
	}

	inv, err := o.Inventory(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(inv) != 2 || inv[0].Artifacts != 2 || inv[0].Reports != 1 {
		t.Errorf("inventory = %+v", inv)
	}
}

func TestListing_MissingReportStaysLocal(t *testing.T) {
	f := newFixture(t)
	counting := &remoteCountingStore{ArtifactStore: f.store}
	f.store = counting
	f.stt.err = errors.New("down")
	o := f.orchestrator()
	ctx := context.Background()

	orphan, _ := o.ProcessAudio(ctx, AudioUpload{Data: []byte("a"), Filename: "blob"})
	if orphan.Filename == "" {
		t.Fatal("artifact not stored")
	}

	if _, err := o.Listing(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := o.Inventory(ctx); err != nil {
		t.Fatal(err)
	}
	if len(counting.calls) != 0 {
		t.Errorf("store fallback lookups for %v, want none", counting.calls)
	}
}

func TestSeedNamer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.Save(ctx, storage.Recordings, "20261014-154501PM.wav", []byte("x"), "audio/wav"); err != nil {
		t.Fatal(err)
	}

	o := f.orchestrator()
	if err := o.SeedNamer(ctx); err != nil {
		t.Fatal(err)
	}

	res, err := o.ProcessAudio(ctx, AudioUpload{Data: []byte("y"), Filename: "blob"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Filename != "20261014-154502PM.wav" {
		t.Errorf("filename = %q, want 20261014-154502PM.wav", res.Filename)
	}

	rc, err := f.store.Open(ctx, storage.Recordings, "20261014-154501PM.wav")
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "x" {
		t.Errorf("existing artifact changed: %q", data)
	}
}
