package form

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"video-input-form/application/conversion"
	"video-input-form/domain/media"

	"github.com/rs/zerolog"
)

// --- Mock implementations for testing ---

// mockPreviews records handle lifecycle events in order
type mockPreviews struct {
	mu        sync.Mutex
	events    []string
	live      map[string]*media.VideoResource
	maxLive   int
	next      int
	createErr error
}

func newMockPreviews() *mockPreviews {
	return &mockPreviews{live: make(map[string]*media.VideoResource)}
}

func (m *mockPreviews) Create(video *media.VideoResource) (media.PreviewHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return media.PreviewHandle{}, m.createErr
	}
	m.next++
	token := fmt.Sprintf("h%d", m.next)
	m.live[token] = video
	if len(m.live) > m.maxLive {
		m.maxLive = len(m.live)
	}
	m.events = append(m.events, "create:"+token)
	return media.PreviewHandle{Token: token, URL: "http://preview/" + token}, nil
}

func (m *mockPreviews) Revoke(handle media.PreviewHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.live, handle.Token)
	m.events = append(m.events, "revoke:"+handle.Token)
}

// mockConverter counts invocations
type mockConverter struct {
	mu     sync.Mutex
	calls  int
	audio  *media.AudioResource
	err    error
	gate   chan struct{}
	enter  chan struct{}
	videos []*media.VideoResource
}

func (m *mockConverter) Convert(ctx context.Context, video *media.VideoResource) (*media.AudioResource, error) {
	m.mu.Lock()
	m.calls++
	m.videos = append(m.videos, video)
	m.mu.Unlock()

	if m.enter != nil {
		m.enter <- struct{}{}
	}
	if m.gate != nil {
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.audio, nil
}

// recordingSink keeps every delivered submission
type recordingSink struct {
	delivered []Submission
	err       error
}

func (s *recordingSink) Deliver(ctx context.Context, sub Submission) error {
	s.delivered = append(s.delivered, sub)
	return s.err
}

func video(name string) *media.VideoResource {
	return media.NewVideoResourceFromBytes(name, media.AcceptedVideoType, []byte("0123456789"))
}

func newTestForm(previews *mockPreviews, converter Converter, sink Sink) *Form {
	return New(previews, converter, sink, zerolog.Nop())
}

// --- File selector and preview ---

func TestSelectFiles_SinglePick(t *testing.T) {
	previews := newMockPreviews()
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})
	clip := video("clip.mp4")

	if err := f.SelectFiles([]*media.VideoResource{clip}); err != nil {
		t.Fatalf("SelectFiles() error = %v", err)
	}

	if f.Video() != clip {
		t.Errorf("Video() = %v, want picked file", f.Video())
	}
	handle, ok := f.Preview()
	if !ok {
		t.Fatal("Preview() returned no handle after a pick")
	}
	if previews.live[handle.Token] != clip {
		t.Errorf("preview %s is not derived from the picked file", handle.Token)
	}
}

func TestSelectFiles_SecondPickRevokesFirstHandle(t *testing.T) {
	previews := newMockPreviews()
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})

	first, second := video("first.mp4"), video("second.mp4")
	if err := f.SelectFiles([]*media.VideoResource{first}); err != nil {
		t.Fatalf("SelectFiles(first) error = %v", err)
	}
	firstHandle, _ := f.Preview()

	if err := f.SelectFiles([]*media.VideoResource{second}); err != nil {
		t.Fatalf("SelectFiles(second) error = %v", err)
	}
	secondHandle, _ := f.Preview()

	if want := []string{"create:h1", "revoke:h1", "create:h2"}; !reflect.DeepEqual(previews.events, want) {
		t.Errorf("handle events = %v, want %v", previews.events, want)
	}
	if previews.maxLive != 1 {
		t.Errorf("max live handles = %d, want 1", previews.maxLive)
	}
	if firstHandle.Token == secondHandle.Token {
		t.Error("second pick reused the first handle")
	}
	if f.Video() != second {
		t.Error("Video() is not the second pick")
	}
}

func TestSelectFiles_EmptyPickChangesNothing(t *testing.T) {
	previews := newMockPreviews()
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})

	if err := f.SelectFiles(nil); err != nil {
		t.Fatalf("SelectFiles(nil) error = %v", err)
	}
	if f.Video() != nil {
		t.Error("Video() set by empty pick")
	}
	if _, ok := f.Preview(); ok {
		t.Error("Preview() set by empty pick")
	}

	clip := video("clip.mp4")
	f.SelectFiles([]*media.VideoResource{clip})
	before, _ := f.Preview()

	if err := f.SelectFiles([]*media.VideoResource{}); err != nil {
		t.Fatalf("SelectFiles(empty) error = %v", err)
	}

	after, ok := f.Preview()
	if f.Video() != clip || !ok || after != before {
		t.Error("empty pick changed the selection or its preview")
	}
	if len(previews.events) != 1 {
		t.Errorf("handle events = %v, want a single create", previews.events)
	}
}

func TestSelectFiles_UsesFirstOfSeveral(t *testing.T) {
	f := newTestForm(newMockPreviews(), &mockConverter{}, &recordingSink{})
	a, b := video("a.mp4"), video("b.mp4")

	if err := f.SelectFiles([]*media.VideoResource{a, b}); err != nil {
		t.Fatalf("SelectFiles() error = %v", err)
	}
	if f.Video() != a {
		t.Error("Video() is not the first file of the event")
	}
}

func TestPreview_NotRecomputedWithoutIdentityChange(t *testing.T) {
	previews := newMockPreviews()
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})
	clip := video("clip.mp4")

	f.Select(clip)
	f.SetPrompt("dog")
	f.SetPrompt("dog, bark")
	f.Select(clip)

	if len(previews.events) != 1 {
		t.Errorf("handle events = %v, want a single create", previews.events)
	}

	// Same name and content, but a new pick
	f.Select(video("clip.mp4"))
	if len(previews.events) != 3 {
		t.Errorf("handle events = %v, want create, revoke, create", previews.events)
	}
}

func TestSelect_PreviewFailure(t *testing.T) {
	previews := newMockPreviews()
	previews.createErr = errors.New("registry closed")
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})

	if err := f.Select(video("clip.mp4")); err == nil {
		t.Fatal("Select() expected error when the preview cannot be created")
	}
	if _, ok := f.Preview(); ok {
		t.Error("Preview() returned a handle after failure")
	}
}

func TestClose_RevokesPreview(t *testing.T) {
	previews := newMockPreviews()
	f := newTestForm(previews, &mockConverter{}, &recordingSink{})
	f.Select(video("clip.mp4"))

	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if len(previews.live) != 0 {
		t.Errorf("live handles after Close = %d, want 0", len(previews.live))
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := f.Select(video("other.mp4")); !errors.Is(err, ErrFormClosed) {
		t.Errorf("Select() after Close error = %v, want ErrFormClosed", err)
	}
	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrFormClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrFormClosed", err)
	}
}

// --- Prompt and submission ---

func TestPrompt_DefaultsToEmpty(t *testing.T) {
	f := newTestForm(newMockPreviews(), &mockConverter{}, &recordingSink{})
	if f.Prompt() != "" {
		t.Errorf("Prompt() = %q, want empty", f.Prompt())
	}

	long := make([]byte, 100000)
	for i := range long {
		long[i] = 'a'
	}
	f.SetPrompt(string(long))
	if len(f.Prompt()) != len(long) {
		t.Error("Prompt() truncated a long hint")
	}
}

func TestSubmit_WithoutVideoNeverConverts(t *testing.T) {
	converter := &mockConverter{}
	sink := &recordingSink{}
	f := newTestForm(newMockPreviews(), converter, sink)
	f.SetPrompt("dog, bark")

	_, err := f.Submit(context.Background())
	if !errors.Is(err, media.ErrNoFileSelected) {
		t.Errorf("Submit() error = %v, want ErrNoFileSelected", err)
	}
	if converter.calls != 0 {
		t.Errorf("converter calls = %d, want 0", converter.calls)
	}
	if len(sink.delivered) != 0 {
		t.Errorf("sink received %d submissions, want 0", len(sink.delivered))
	}
}

func TestSubmit_ForwardsAudioAndPrompt(t *testing.T) {
	audio := media.NewAudioResource([]byte{1, 2, 3, 4})
	converter := &mockConverter{audio: audio}
	sink := &recordingSink{}
	f := newTestForm(newMockPreviews(), converter, sink)
	clip := video("clip.mp4")
	f.Select(clip)
	f.SetPrompt("dog, bark")

	sub, err := f.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if converter.videos[0] != clip {
		t.Error("converter did not receive the selected video")
	}
	want := Submission{Video: clip, Audio: audio, Prompt: "dog, bark"}
	if !reflect.DeepEqual(*sub, want) {
		t.Errorf("Submit() = %+v, want %+v", *sub, want)
	}
	if len(sink.delivered) != 1 || !reflect.DeepEqual(sink.delivered[0], want) {
		t.Errorf("sink received %+v", sink.delivered)
	}
}

func TestSubmit_ConversionFailureIsReturned(t *testing.T) {
	cause := media.NewConversionError(media.StageTranscode, errors.New("exit status 1"))
	sink := &recordingSink{}
	f := newTestForm(newMockPreviews(), &mockConverter{err: cause}, sink)
	f.Select(video("clip.mp4"))

	_, err := f.Submit(context.Background())
	if !errors.Is(err, media.ErrTranscodeFailed) {
		t.Errorf("Submit() error = %v, want ErrTranscodeFailed", err)
	}
	if len(sink.delivered) != 0 {
		t.Error("sink received a failed submission")
	}
}

func TestSubmit_SinkFailureIsReturned(t *testing.T) {
	sink := &recordingSink{err: errors.New("disk full")}
	f := newTestForm(newMockPreviews(), &mockConverter{audio: media.NewAudioResource([]byte("x"))}, sink)
	f.Select(video("clip.mp4"))

	if _, err := f.Submit(context.Background()); err == nil {
		t.Error("Submit() expected sink error")
	}
}

func TestSubmit_RejectsConcurrentSubmission(t *testing.T) {
	converter := &mockConverter{
		audio: media.NewAudioResource([]byte("x")),
		gate:  make(chan struct{}),
		enter: make(chan struct{}, 1),
	}
	f := newTestForm(newMockPreviews(), converter, &recordingSink{})
	f.Select(video("clip.mp4"))

	done := make(chan error, 1)
	go func() {
		_, err := f.Submit(context.Background())
		done <- err
	}()
	<-converter.enter

	if _, err := f.Submit(context.Background()); !errors.Is(err, ErrSubmissionInFlight) {
		t.Errorf("second Submit() error = %v, want ErrSubmissionInFlight", err)
	}

	close(converter.gate)
	if err := <-done; err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	// The guard is released once the first submission finishes
	converter.enter = nil
	if _, err := f.Submit(context.Background()); err != nil {
		t.Errorf("Submit() after completion error = %v", err)
	}
}

// --- End to end with the real pipeline ---

// fixedEngine returns the same four bytes for any input
type fixedEngine struct {
	files    map[string][]byte
	execArgs []string
}

func (e *fixedEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	e.files[name] = data
	return nil
}

func (e *fixedEngine) Exec(ctx context.Context, args []string) error {
	e.execArgs = args
	e.files[media.OutputName] = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	return nil
}

func (e *fixedEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	data, ok := e.files[name]
	if !ok {
		return nil, errors.New("missing " + name)
	}
	return data, nil
}

func (e *fixedEngine) DeleteFile(ctx context.Context, name string) error {
	delete(e.files, name)
	return nil
}

func (e *fixedEngine) OnProgress(fn media.ProgressFunc) func() {
	return func() {}
}

type fixedLoader struct{ engine *fixedEngine }

func (l fixedLoader) Load(ctx context.Context) (media.Engine, error) {
	return l.engine, nil
}

func TestSubmit_EndToEnd(t *testing.T) {
	engine := &fixedEngine{files: make(map[string][]byte)}
	pipeline := conversion.NewPipeline(fixedLoader{engine: engine})
	sink := &recordingSink{}
	f := newTestForm(newMockPreviews(), pipeline, sink)

	clip := media.NewVideoResourceFromBytes("clip.mp4", "video/mp4", []byte("0123456789"))
	if err := f.SelectFiles([]*media.VideoResource{clip}); err != nil {
		t.Fatalf("SelectFiles() error = %v", err)
	}
	f.SetPrompt("dog, bark")

	if _, err := f.Submit(context.Background()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if len(sink.delivered) != 1 {
		t.Fatalf("sink received %d submissions, want 1", len(sink.delivered))
	}
	got := sink.delivered[0]
	if !reflect.DeepEqual(got.Audio.Data, []byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Errorf("audio data = %v", got.Audio.Data)
	}
	if got.Audio.MediaType != "audio/mpeg" || got.Audio.Name != "audio.mp3" {
		t.Errorf("audio = %s (%s), want audio.mp3 (audio/mpeg)", got.Audio.Name, got.Audio.MediaType)
	}
	if got.Prompt != "dog, bark" {
		t.Errorf("prompt = %q, want %q", got.Prompt, "dog, bark")
	}
	if !reflect.DeepEqual(engine.execArgs, media.TranscodeArgs()) {
		t.Errorf("engine args = %v", engine.execArgs)
	}
}
