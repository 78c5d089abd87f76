// Package audioclock drives a tick from a PortAudio output callback.
package audioclock

import (
	"fmt"

	pa "github.com/gordonklaus/portaudio"
)

// Start opens the default output as a silent mono stream and
// calls tick once per audio buffer from the real-time callback. The
// returned stop function closes the stream and terminates PortAudio.
func Start(sampleRate float64, framesPerBuffer int, tick func()) (stop func() error, err error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("unable to setup portaudio: %w", err)
	}
	stream, err := pa.OpenDefaultStream(0, 1, sampleRate, framesPerBuffer, func(out []float32) {
		for i := range out {
			out[i] = 0
		}
		tick()
	})
	if err != nil {
		_ = pa.Terminate()
		return nil, fmt.Errorf("unable to open portaudio stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		_ = pa.Terminate()
		return nil, fmt.Errorf("unable to start portaudio stream: %w", err)
	}
	return func() error {
		_ = stream.Stop()
		_ = stream.Close()
		return pa.Terminate()
	}, nil
}
