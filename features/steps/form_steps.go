//go:build integration

package steps

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"video-input-form/application/conversion"
	"video-input-form/application/form"
	"video-input-form/cmd"
	"video-input-form/domain/media"
	"video-input-form/infrastructure/filesystem"
	"video-input-form/infrastructure/preview"

	"github.com/cucumber/godog"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const videoDir = "/videos"

type formContext struct {
	fs       afero.Fs
	engine   *fakeEngine
	loader   *fakeLoader
	previews *trackingPreviews
	sink     *capturingSink
	progress []int
	output   bytes.Buffer
	err      error
}

var SharedFormContext = &formContext{}

// fakeEngine stands in for ffmpeg: it emits scripted progress and produces fixed output
type fakeEngine struct {
	mu        sync.Mutex
	files     map[string][]byte
	inputs    [][]byte
	execArgs  [][]string
	listeners map[int]media.ProgressFunc
	nextID    int
	output    []byte
	progress  []float64
	execErr   error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		files:     make(map[string][]byte),
		listeners: make(map[int]media.ProgressFunc),
		output:    []byte("mp3"),
	}
}

func (e *fakeEngine) WriteFile(ctx context.Context, name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[name] = append([]byte(nil), data...)
	if name == media.InputName {
		e.inputs = append(e.inputs, e.files[name])
	}
	return nil
}

func (e *fakeEngine) Exec(ctx context.Context, args []string) error {
	e.mu.Lock()
	e.execArgs = append(e.execArgs, args)
	var listeners []media.ProgressFunc
	for id := 0; id < e.nextID; id++ {
		if fn, ok := e.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	e.mu.Unlock()

	for _, ratio := range e.progress {
		for _, fn := range listeners {
			fn(media.Progress{Ratio: ratio})
		}
	}
	if e.execErr != nil {
		return e.execErr
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.files[media.OutputName] = append([]byte(nil), e.output...)
	return nil
}

func (e *fakeEngine) ReadFile(ctx context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	return data, nil
}

func (e *fakeEngine) DeleteFile(ctx context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.files, name)
	return nil
}

func (e *fakeEngine) OnProgress(fn media.ProgressFunc) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.listeners, id)
	}
}

type fakeLoader struct {
	engine *fakeEngine
	err    error
}

func (l *fakeLoader) Load(ctx context.Context) (media.Engine, error) {
	if l.err != nil {
		return nil, l.err
	}
	return l.engine, nil
}

// trackingPreviews records the handle lifecycle on top of the real registry
type trackingPreviews struct {
	registry *preview.Registry
	events   []string
}

func (p *trackingPreviews) Create(video *media.VideoResource) (media.PreviewHandle, error) {
	handle, err := p.registry.Create(video)
	if err == nil {
		p.events = append(p.events, "create "+video.Name)
	}
	return handle, err
}

func (p *trackingPreviews) Revoke(handle media.PreviewHandle) {
	if video, ok := p.registry.Lookup(handle.Token); ok {
		p.events = append(p.events, "revoke "+video.Name)
	}
	p.registry.Revoke(handle)
}

type capturingSink struct {
	submissions []form.Submission
}

func (s *capturingSink) Deliver(ctx context.Context, sub form.Submission) error {
	s.submissions = append(s.submissions, sub)
	return nil
}

func InitializeFormScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedFormContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		testCtx.fs = afero.NewMemMapFs()
		testCtx.engine = newFakeEngine()
		testCtx.loader = &fakeLoader{engine: testCtx.engine}
		testCtx.previews = &trackingPreviews{registry: preview.NewRegistry("http://preview.test")}
		testCtx.sink = &capturingSink{}
		testCtx.progress = nil
		testCtx.output.Reset()
		testCtx.err = nil
		return c, testCtx.fs.MkdirAll(videoDir, 0755)
	})

	ctx.Step(`^a video file "([^"]*)" with (\d+) bytes$`, testCtx.aVideoFileWithBytes)
	ctx.Step(`^the transcoding engine produces "([^"]*)"$`, testCtx.theTranscodingEngineProduces)
	ctx.Step(`^the transcoding engine reports progress "([^"]*)"$`, testCtx.theTranscodingEngineReportsProgress)
	ctx.Step(`^the transcoding engine cannot be loaded$`, testCtx.theTranscodingEngineCannotBeLoaded)
	ctx.Step(`^the transcoding engine fails to transcode$`, testCtx.theTranscodingEngineFailsToTranscode)

	ctx.Step(`^I fill in the form picking "([^"]*)" with prompt "([^"]*)"$`, testCtx.iFillInTheFormPicking)
	ctx.Step(`^I fill in the form picking "([^"]*)" then "([^"]*)" with prompt "([^"]*)"$`, testCtx.iFillInTheFormPickingThen)
	ctx.Step(`^I fill in the form picking "([^"]*)" then nothing with prompt "([^"]*)"$`, testCtx.iFillInTheFormPickingThenNothing)
	ctx.Step(`^I submit the form without picking a video$`, testCtx.iSubmitTheFormWithoutPickingAVideo)
	ctx.Step(`^I fill in the form picking "([^"]*)" and cancel the upload$`, testCtx.iFillInTheFormAndCancel)
	ctx.Step(`^I convert "([^"]*)" with prompt "([^"]*)"$`, testCtx.iConvertWithPrompt)

	ctx.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	ctx.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	ctx.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	ctx.Step(`^the sink should receive "([^"]*)" of type "([^"]*)" with (\d+) bytes$`, testCtx.theSinkShouldReceiveAudio)
	ctx.Step(`^the sink should receive the prompt "([^"]*)"$`, testCtx.theSinkShouldReceiveThePrompt)
	ctx.Step(`^the sink should receive audio for "([^"]*)"$`, testCtx.theSinkShouldReceiveAudioFor)
	ctx.Step(`^the sink should receive nothing$`, testCtx.theSinkShouldReceiveNothing)
	ctx.Step(`^the engine should have run "([^"]*)"$`, testCtx.theEngineShouldHaveRun)
	ctx.Step(`^the engine should have received (\d+) input bytes$`, testCtx.theEngineShouldHaveReceivedInputBytes)
	ctx.Step(`^the conversion should not run$`, testCtx.theConversionShouldNotRun)
	ctx.Step(`^the preview events should be "([^"]*)"$`, testCtx.thePreviewEventsShouldBe)
	ctx.Step(`^no preview should remain live$`, testCtx.noPreviewShouldRemainLive)
	ctx.Step(`^the progress should be reported as "([^"]*)"$`, testCtx.theProgressShouldBeReportedAs)
}

func (f *formContext) dependencies() cmd.FormDependencies {
	pipeline := conversion.NewPipeline(f.loader, conversion.WithProgressHook(func(percent int) {
		f.progress = append(f.progress, percent)
	}))

	return cmd.FormDependencies{
		Picker:    filesystem.NewPickerWithFs(f.fs),
		Previews:  f.previews,
		Converter: pipeline,
		Sink:      f.sink,
		Log:       zerolog.Nop(),
	}
}

func (f *formContext) runForm(paths []string, confirms []bool, prompt string) {
	for i, p := range paths {
		if p != "" {
			paths[i] = videoDir + "/" + p
		}
	}
	prompter := &MockPrompter{
		pathResponses:      paths,
		confirmResponses:   confirms,
		multilineResponses: []string{prompt},
	}
	f.err = cmd.RunFormWithDependencies(context.Background(), f.dependencies(), prompter, &f.output)
}

func (f *formContext) aVideoFileWithBytes(name string, size int) error {
	return afero.WriteFile(f.fs, videoDir+"/"+name, bytes.Repeat([]byte{0x42}, size), 0644)
}

func (f *formContext) theTranscodingEngineProduces(hexData string) error {
	data, err := hex.DecodeString(hexData)
	if err != nil {
		return fmt.Errorf("invalid hex output %q: %w", hexData, err)
	}
	f.engine.output = data
	return nil
}

func (f *formContext) theTranscodingEngineReportsProgress(list string) error {
	f.engine.progress = nil
	for _, field := range strings.Split(list, ",") {
		ratio, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}
		f.engine.progress = append(f.engine.progress, ratio)
	}
	return nil
}

func (f *formContext) theTranscodingEngineCannotBeLoaded() error {
	f.loader.err = fmt.Errorf("ffmpeg not found")
	return nil
}

func (f *formContext) theTranscodingEngineFailsToTranscode() error {
	f.engine.execErr = fmt.Errorf("exit status 1")
	return nil
}

func (f *formContext) iFillInTheFormPicking(name, prompt string) error {
	// keep the pick, then upload
	f.runForm([]string{name}, []bool{false, true}, prompt)
	return nil
}

func (f *formContext) iFillInTheFormPickingThen(first, second, prompt string) error {
	f.runForm([]string{first, second}, []bool{true, false, true}, prompt)
	return nil
}

func (f *formContext) iFillInTheFormPickingThenNothing(name, prompt string) error {
	f.runForm([]string{name, ""}, []bool{true, false, true}, prompt)
	return nil
}

func (f *formContext) iSubmitTheFormWithoutPickingAVideo() error {
	f.runForm([]string{""}, []bool{true}, "")
	return nil
}

func (f *formContext) iFillInTheFormAndCancel(name string) error {
	f.runForm([]string{name}, []bool{false, false}, "")
	return nil
}

func (f *formContext) iConvertWithPrompt(name, prompt string) error {
	f.err = cmd.RunConvertWithDependencies(context.Background(), f.dependencies(), videoDir+"/"+name, prompt, &f.output)
	return nil
}

func (f *formContext) theCommandShouldSucceed() error {
	if f.err != nil {
		return fmt.Errorf("expected success, got %v\noutput:\n%s", f.err, f.output.String())
	}
	return nil
}

func (f *formContext) theCommandShouldFail() error {
	if f.err == nil {
		return fmt.Errorf("expected an error\noutput:\n%s", f.output.String())
	}
	return nil
}

func (f *formContext) theOutputShouldContain(expected string) error {
	if !strings.Contains(f.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, f.output.String())
	}
	return nil
}

func (f *formContext) lastSubmission() (form.Submission, error) {
	if len(f.sink.submissions) == 0 {
		return form.Submission{}, fmt.Errorf("sink received nothing\noutput:\n%s", f.output.String())
	}
	return f.sink.submissions[len(f.sink.submissions)-1], nil
}

func (f *formContext) theSinkShouldReceiveAudio(name, mediaType string, size int) error {
	sub, err := f.lastSubmission()
	if err != nil {
		return err
	}
	if sub.Audio.Name != name {
		return fmt.Errorf("expected audio name %q, got %q", name, sub.Audio.Name)
	}
	if sub.Audio.MediaType != mediaType {
		return fmt.Errorf("expected audio type %q, got %q", mediaType, sub.Audio.MediaType)
	}
	if sub.Audio.Size() != size {
		return fmt.Errorf("expected %d audio bytes, got %d", size, sub.Audio.Size())
	}
	return nil
}

func (f *formContext) theSinkShouldReceiveThePrompt(prompt string) error {
	sub, err := f.lastSubmission()
	if err != nil {
		return err
	}
	if sub.Prompt != prompt {
		return fmt.Errorf("expected prompt %q, got %q", prompt, sub.Prompt)
	}
	return nil
}

func (f *formContext) theSinkShouldReceiveAudioFor(name string) error {
	sub, err := f.lastSubmission()
	if err != nil {
		return err
	}
	if sub.Video.Name != name {
		return fmt.Errorf("expected audio for %q, got %q", name, sub.Video.Name)
	}
	return nil
}

func (f *formContext) theSinkShouldReceiveNothing() error {
	if len(f.sink.submissions) != 0 {
		return fmt.Errorf("expected no submissions, got %d", len(f.sink.submissions))
	}
	return nil
}

func (f *formContext) theEngineShouldHaveRun(args string) error {
	if len(f.engine.execArgs) != 1 {
		return fmt.Errorf("expected 1 engine run, got %d", len(f.engine.execArgs))
	}
	got := strings.Join(f.engine.execArgs[0], " ")
	if got != args {
		return fmt.Errorf("expected engine args %q, got %q", args, got)
	}
	return nil
}

func (f *formContext) theEngineShouldHaveReceivedInputBytes(size int) error {
	if len(f.engine.inputs) != 1 {
		return fmt.Errorf("expected 1 input write, got %d", len(f.engine.inputs))
	}
	if len(f.engine.inputs[0]) != size {
		return fmt.Errorf("expected %d input bytes, got %d", size, len(f.engine.inputs[0]))
	}
	return nil
}

func (f *formContext) theConversionShouldNotRun() error {
	if len(f.engine.execArgs) != 0 || len(f.engine.inputs) != 0 {
		return fmt.Errorf("expected no conversion, engine ran %d times", len(f.engine.execArgs))
	}
	return nil
}

func (f *formContext) thePreviewEventsShouldBe(expected string) error {
	got := strings.Join(f.previews.events, ", ")
	if got != expected {
		return fmt.Errorf("expected preview events %q, got %q", expected, got)
	}
	return nil
}

func (f *formContext) noPreviewShouldRemainLive() error {
	if live := f.previews.registry.Live(); live != 0 {
		return fmt.Errorf("expected no live previews, got %d", live)
	}
	return nil
}

func (f *formContext) theProgressShouldBeReportedAs(expected string) error {
	parts := make([]string, len(f.progress))
	for i, p := range f.progress {
		parts[i] = strconv.Itoa(p)
	}
	if got := strings.Join(parts, ", "); got != expected {
		return fmt.Errorf("expected progress %q, got %q", expected, got)
	}
	return nil
}
