package audio

// Reference: https://gbdev.io/pandocs/Audio_details.html
const (
	// masterClock is the base machine clock the channel periods count in.
	masterClock = 4194304

	// SampleRate is the host-facing output rate.
	SampleRate = 48000

	// BlockSamples is the size of one delivered audio block: 512 stereo
	// pairs of interleaved floats.
	BlockSamples = 1024

	// waveRAMSize is the size of wave pattern RAM in bytes (16 bytes = 32 nibbles)
	waveRAMSize = 16
)
