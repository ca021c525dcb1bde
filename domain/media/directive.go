package media

// Fixed names inside the engine's working storage
const (
	InputName  = "input.mp4"
	OutputName = "output.mp3"
)

// Fixed audio encoding parameters
const (
	AudioStreamMap = "0:a"
	AudioBitrate   = "20k"
	AudioCodec     = "libmp3lame"
)

// TranscodeArgs returns the directive that extracts the audio stream of InputName
// and encodes it as MP3 into OutputName. A fresh slice is returned on every call.
func TranscodeArgs() []string {
	return []string{
		"-i", InputName,
		"-map", AudioStreamMap,
		"-b:a", AudioBitrate,
		"-acodec", AudioCodec,
		OutputName,
	}
}
