// Package cdda describes the layout of Red Book (CD-DA) audio discs:
// sector geometry, track descriptors and the table of contents.
package cdda

import "time"

// SampleRate is the number of samples per second. All Redbook audio
// CDs use 44.1KHz.
const SampleRate = 44100

// BytesPerSample is 2 bytes, representing signed 16-bit samples.
const BytesPerSample = 2

// Channels is the number of audio channels in the data. All Redbook
// audio CDs are stereo.
const Channels = 2

// SectorsPerSecond is the number of sectors (frames, in Redbook MM:SS:FF
// terms) in one second of audio.
const SectorsPerSecond = 75

// SamplesPerSector is the number of stereo sample frames in one sector (588).
const SamplesPerSector = SampleRate / SectorsPerSecond

// BytesPerSector is the number of bytes of audio contained in one sector, 2352 bytes.
const BytesPerSector = SampleRate * Channels * BytesPerSample / SectorsPerSecond

// PregapSectors is the two second offset between LBA 0 and MSF 00:02:00.
const PregapSectors = 2 * SectorsPerSecond

// MaxTracks is the largest track number the format allows.
const MaxTracks = 99

// LeadOutTrack is the track number the table of contents uses for the lead-out.
const LeadOutTrack = 0xAA

// SectorsToDuration returns the play time of n sectors.
func SectorsToDuration(n int) time.Duration {
	return time.Duration(n) * time.Second / SectorsPerSecond
}

// DurationToSectors returns the number of whole sectors played in d.
func DurationToSectors(d time.Duration) int {
	return int(d * SectorsPerSecond / time.Second)
}

// MSF converts a logical block address to minutes, seconds and frames,
// including the two second pregap.
func MSF(lba int) (m, s, f int) {
	a := lba + PregapSectors
	m = a / (60 * SectorsPerSecond)
	s = (a / SectorsPerSecond) % 60
	f = a % SectorsPerSecond
	return
}

// LBA converts minutes, seconds and frames back to a logical block address.
func LBA(m, s, f int) int {
	return (m*60+s)*SectorsPerSecond + f - PregapSectors
}
