// Package record captures microphone audio and encodes it to MP3, producing
// input files for the document workflow.
package record

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sobandev/docflow/pkg/collections"

	mp3encoder "github.com/braheezy/shine-mp3/pkg/mp3"
	"github.com/gen2brain/malgo"
)

const (
	// DefaultSampleRate is 16kHz, the native sample rate for Whisper.
	DefaultSampleRate = 16000
	// DefaultBufferThreshold is 4KB = 2048 mono samples = 128ms @ 16kHz.
	DefaultBufferThreshold = 4096
)

// Config configures the recorder. Capture is always mono S16LE.
type Config struct {
	// SampleRate is the capture sample rate in Hz.
	SampleRate int

	// BufferThreshold is the number of PCM bytes accumulated before each
	// MP3 encode pass.
	BufferThreshold int
}

// WithDefaults returns a config with default values applied to zero fields.
func (c Config) WithDefaults() Config {
	if c.SampleRate == 0 {
		c.SampleRate = DefaultSampleRate
	}

	if c.BufferThreshold == 0 {
		c.BufferThreshold = DefaultBufferThreshold
	}

	return c
}

// Validate returns an error if the config is invalid.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample rate must be positive")
	}

	if c.BufferThreshold <= 0 {
		return errors.New("buffer threshold must be positive")
	}

	return nil
}

// Recorder captures from the default capture device and streams MP3 frames
// to a writer.
type Recorder struct {
	cfg Config
}

// NewRecorder creates a recorder with defaults applied.
func NewRecorder(cfg Config) (*Recorder, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recorder config: %w", err)
	}

	return &Recorder{cfg: cfg}, nil
}

// Capture records until ctx is cancelled, writing encoded MP3 to w. Any PCM
// still buffered at cancellation is flushed before returning.
func (r *Recorder) Capture(ctx context.Context, w io.Writer) error {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer freeContext(mgCtx)

	dataC := make(chan []byte, 64)

	devCnf := malgo.DefaultDeviceConfig(malgo.Capture)
	devCnf.Capture.Format = malgo.FormatS16
	devCnf.Capture.Channels = 1
	devCnf.SampleRate = uint32(r.cfg.SampleRate)

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			// malgo reuses the callback buffer, so hand off a copy.
			packet := make([]byte, len(samples))
			copy(packet, samples)

			select {
			case dataC <- packet:
			default:
				slog.Debug("Dropping audio packet, encoder behind")
			}
		},
	}

	dev, err := malgo.InitDevice(mgCtx.Context, devCnf, callbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	// shine-mp3's Write advances as stereo regardless of channel count, so
	// encode as stereo and duplicate the mono samples.
	enc := mp3encoder.NewEncoder(r.cfg.SampleRate, 2)
	buffer := make([]byte, 0, r.cfg.BufferThreshold)

	for {
		select {
		case <-ctx.Done():
			if err := dev.Stop(); err != nil {
				slog.Debug("Failed to stop capture device", "error", err)
			}

			return encodeBatch(enc, w, buffer)

		case packet := <-dataC:
			buffer = append(buffer, packet...)

			if len(buffer) >= r.cfg.BufferThreshold {
				if err := encodeBatch(enc, w, buffer); err != nil {
					return err
				}

				buffer = buffer[:0]
			}
		}
	}
}

// encodeBatch converts S16LE mono PCM bytes to duplicated stereo samples and
// writes one MP3 pass.
func encodeBatch(enc *mp3encoder.Encoder, w io.Writer, pcm []byte) error {
	if len(pcm) == 0 {
		return nil
	}

	numSamples := len(pcm) / 2
	mono := make([]int16, numSamples)

	if err := binary.Read(bytes.NewReader(pcm), binary.LittleEndian, mono); err != nil {
		return fmt.Errorf("failed to read PCM samples: %w", err)
	}

	stereo := make([]int16, numSamples*2)
	for i, sample := range mono {
		stereo[i*2] = sample
		stereo[i*2+1] = sample
	}

	if err := enc.Write(w, stereo); err != nil {
		return fmt.Errorf("failed to encode MP3: %w", err)
	}

	return nil
}

// Info describes one capture device.
type Info struct {
	Name      string
	IsDefault bool
}

// Devices enumerates the available capture devices.
func Devices() ([]Info, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer freeContext(mgCtx)

	devices, err := mgCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate capture devices: %w", err)
	}

	return collections.Apply(devices, func(mdi malgo.DeviceInfo) Info {
		return Info{
			Name:      mdi.Name(),
			IsDefault: mdi.IsDefault != 0,
		}
	}), nil
}

func freeContext(mgCtx *malgo.AllocatedContext) {
	if mgCtx == nil {
		return
	}

	if err := mgCtx.Uninit(); err != nil {
		slog.Error("failed to uninitialize malgo context", "error", err)
	}
	mgCtx.Free()
}
