// Package media wraps the two external media tools. Acquirer runs yt-dlp
// to fetch metadata and audio for remote URLs and validates local files;
// Extractor runs ffmpeg to produce the 16 kHz mono WAV track the speech
// runtime consumes.
package media
